package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/store/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })

	svc := New(st)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) }
	return svc
}

func TestRoomTranscriptIsAppendOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	prev := 0
	for i := range 4 {
		if _, err := svc.RecordRoom(ctx, "general", "alice", fmt.Sprintf("line %d", i)); err != nil {
			t.Fatalf("record: %v", err)
		}
		n, err := svc.RoomCount(ctx, "general")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != prev+1 {
			t.Fatalf("expected count %d, got %d", prev+1, n)
		}
		prev = n
	}

	lines, err := svc.RoomTranscript(ctx, "general", 0)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if lines[0] != "[12:30:45] alice: line 0" {
		t.Fatalf("unexpected first line: %q", lines[0])
	}

	other, err := svc.RoomTranscript(ctx, "dev", 0)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected empty dev transcript, got %v", other)
	}
}

func TestRecordPrivateLogsBothEnds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	line, err := svc.RecordPrivate(ctx, "alice", "bob", "hello")
	if err != nil {
		t.Fatalf("record private: %v", err)
	}
	if line != "[private] alice -> bob: hello" {
		t.Fatalf("unexpected delivery line: %q", line)
	}

	for _, user := range []string{"alice", "bob"} {
		log, err := svc.PrivateLog(ctx, user, 0)
		if err != nil {
			t.Fatalf("private log %s: %v", user, err)
		}
		if len(log) != 1 || log[0] != "[12:30:45] [private] alice -> bob: hello" {
			t.Fatalf("unexpected private log for %s: %v", user, log)
		}
	}

	// Private lines never leak into room transcripts.
	n, err := svc.RoomCount(ctx, "bob")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no room entries, got %d", n)
	}
}

func TestRecordPrivateToSelfStoredOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.RecordPrivate(ctx, "alice", "alice", "note"); err != nil {
		t.Fatalf("record private: %v", err)
	}
	log, err := svc.PrivateLog(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("private log: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("expected a single entry, got %v", log)
	}
}
