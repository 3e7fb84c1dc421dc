package core

import (
	"regexp"
	"strings"
)

// CommandKind describes what the session wants to do.
type CommandKind int

const (
	// CommandRegister claims a username. Every first line parses to this.
	CommandRegister CommandKind = iota
	CommandHelp
	CommandList
	// CommandSearch, CommandAddFriend and CommandSwitchRoom open a prompt.
	CommandSearch
	CommandAddFriend
	CommandFriends
	CommandSwitchRoom
	CommandExit
	CommandPrivateMessage
	CommandHistory
	CommandStatus
	CommandProfile
	CommandClear
	// CommandChat posts text to the current room.
	CommandChat
	// CommandEmpty is a blank line while idle.
	CommandEmpty
	// CommandSearchTarget, CommandFriendTarget and CommandRoomTarget answer a prompt.
	CommandSearchTarget
	CommandFriendTarget
	CommandRoomTarget
	// CommandMalformed is a recognized command with unusable arguments.
	CommandMalformed
)

var commandNames = map[CommandKind]string{
	CommandRegister:       "register",
	CommandHelp:           "help",
	CommandList:           "list",
	CommandSearch:         "search",
	CommandAddFriend:      "add_friend",
	CommandFriends:        "friends",
	CommandSwitchRoom:     "switch_room",
	CommandExit:           "exit",
	CommandPrivateMessage: "msg",
	CommandHistory:        "history",
	CommandStatus:         "status",
	CommandProfile:        "profile",
	CommandClear:          "clear",
	CommandChat:           "chat",
	CommandEmpty:          "empty",
	CommandSearchTarget:   "search_target",
	CommandFriendTarget:   "friend_target",
	CommandRoomTarget:     "room_target",
	CommandMalformed:      "malformed",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command represents an action requested by a session.
type Command struct {
	Kind CommandKind
	Arg  string // username, prompt answer, room or status target
	Text string // chat or private message body
	Err  string // usage hint for CommandMalformed
}

const msgUsage = "Usage: /msg <username> <message>"

var msgPattern = regexp.MustCompile(`(?is)^/msg\s+(\S+)\s+(.*\S)\s*$`)

var keywords = map[string]CommandKind{
	"help":        CommandHelp,
	"list":        CommandList,
	"search":      CommandSearch,
	"add friend":  CommandAddFriend,
	"friends":     CommandFriends,
	"switch room": CommandSwitchRoom,
	"exit":        CommandExit,
}

var slashCommands = map[string]CommandKind{
	"/history": CommandHistory,
	"/status":  CommandStatus,
	"/profile": CommandProfile,
	"/clear":   CommandClear,
}

// Parse maps one inbound line to a Command given the session state. It has no
// side effects.
func Parse(line string, registered bool, pending PendingMode) Command {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)

	if !registered {
		return Command{Kind: CommandRegister, Arg: trimmed}
	}

	switch pending {
	case PendingSearch:
		return Command{Kind: CommandSearchTarget, Arg: trimmed}
	case PendingFriend:
		return Command{Kind: CommandFriendTarget, Arg: trimmed}
	case PendingRoom:
		return Command{Kind: CommandRoomTarget, Arg: trimmed}
	}

	if trimmed == "" {
		return Command{Kind: CommandEmpty}
	}

	fields := strings.Fields(trimmed)
	normalized := strings.ToLower(strings.Join(fields, " "))
	if kind, ok := keywords[normalized]; ok {
		return Command{Kind: kind}
	}

	head := strings.ToLower(fields[0])
	if head == "/msg" {
		m := msgPattern.FindStringSubmatch(trimmed)
		if m == nil {
			return Command{Kind: CommandMalformed, Err: msgUsage}
		}
		return Command{Kind: CommandPrivateMessage, Arg: m[1], Text: m[2]}
	}

	if kind, ok := slashCommands[head]; ok {
		cmd := Command{Kind: kind}
		if kind == CommandStatus && len(fields) > 1 {
			cmd.Arg = fields[1]
		}
		return cmd
	}

	return Command{Kind: CommandChat, Text: trimmed}
}
