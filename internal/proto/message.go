package proto

import (
	"strings"

	"github.com/vovakirdan/linechat-server/internal/core"
)

const (
	// Prompt follows every server message except the landing banner.
	Prompt = "> "
	// ClearScreen is the ANSI sequence sent for /clear.
	ClearScreen = "\033[2J\033[H"
)

// Encode renders an event as the bytes written to a line client.
func Encode(ev *core.Event) string {
	if ev == nil {
		return ""
	}

	switch ev.Kind {
	case core.EventBanner:
		return body(ev) + "\n"
	case core.EventClear:
		return ClearScreen + Prompt
	}

	return body(ev) + "\n" + Prompt
}

func body(ev *core.Event) string {
	if ev.Kind == core.EventError && ev.Error != nil {
		return ev.Error.Message
	}
	if len(ev.Lines) == 0 {
		return ev.Text
	}

	var b strings.Builder
	b.WriteString(ev.Text)
	for _, line := range ev.Lines {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	return b.String()
}

// TrimLine strips the trailing line terminator a client may send.
func TrimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}
