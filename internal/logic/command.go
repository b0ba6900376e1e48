package logic

import "strings"

// CommandKind identifies a remote supervisory command.
type CommandKind string

const (
	CommandOn      CommandKind = "ON"
	CommandOff     CommandKind = "OFF"
	CommandAuto    CommandKind = "AUTO"
	CommandStatus  CommandKind = "STATUS"
	CommandRestart CommandKind = "RESTART"
	CommandUnknown CommandKind = "UNKNOWN"
)

// Command is a parsed inbound command. Raw keeps the trimmed original text
// so unknown commands can be logged verbatim.
type Command struct {
	Kind CommandKind
	Raw  string
}

// Interpret parses a command payload. Matching is case-insensitive and ignores
// surrounding whitespace. Anything unrecognised becomes CommandUnknown.
func Interpret(raw string) Command {
	text := strings.TrimSpace(raw)
	kind := CommandKind(strings.ToUpper(text))
	switch kind {
	case CommandOn, CommandOff, CommandAuto, CommandStatus, CommandRestart:
		return Command{Kind: kind, Raw: text}
	}
	return Command{Kind: CommandUnknown, Raw: text}
}

// ApplyCommand returns the relay mode after cmd. Commands that do not
// address the relay leave mode unchanged.
func ApplyCommand(mode RelayMode, cmd Command) RelayMode {
	switch cmd.Kind {
	case CommandOn:
		return ManualMode(true)
	case CommandOff:
		return ManualMode(false)
	case CommandAuto:
		return AutoMode()
	}
	return mode
}
