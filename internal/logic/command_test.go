package logic

import "testing"

func TestInterpret(t *testing.T) {
	tests := []struct {
		raw      string
		wantKind CommandKind
		wantRaw  string
	}{
		{"ON", CommandOn, "ON"},
		{"on", CommandOn, "on"},
		{"  Off\n", CommandOff, "Off"},
		{"auto", CommandAuto, "auto"},
		{"Status", CommandStatus, "Status"},
		{"RESTART\r\n", CommandRestart, "RESTART"},
		{"", CommandUnknown, ""},
		{"toggle", CommandUnknown, "toggle"},
		{"ON OFF", CommandUnknown, "ON OFF"},
		{"UNKNOWN", CommandUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cmd := Interpret(tt.raw)
			if cmd.Kind != tt.wantKind {
				t.Errorf("kind: got %s, want %s", cmd.Kind, tt.wantKind)
			}
			if cmd.Raw != tt.wantRaw {
				t.Errorf("raw: got %q, want %q", cmd.Raw, tt.wantRaw)
			}
		})
	}
}

func TestApplyCommand(t *testing.T) {
	tests := []struct {
		name string
		from RelayMode
		cmd  CommandKind
		want RelayMode
	}{
		{"on", AutoMode(), CommandOn, ManualMode(true)},
		{"off", AutoMode(), CommandOff, ManualMode(false)},
		{"auto", ManualMode(true), CommandAuto, AutoMode()},
		{"status keeps mode", ManualMode(true), CommandStatus, ManualMode(true)},
		{"restart keeps mode", ManualMode(false), CommandRestart, ManualMode(false)},
		{"unknown keeps mode", ManualMode(true), CommandUnknown, ManualMode(true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyCommand(tt.from, Command{Kind: tt.cmd})
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApplyAutoTwice(t *testing.T) {
	once := ApplyCommand(ManualMode(true), Interpret("AUTO"))
	twice := ApplyCommand(once, Interpret("AUTO"))
	if once != AutoMode() || twice != AutoMode() {
		t.Errorf("AUTO twice: got %+v then %+v", once, twice)
	}
}

func TestApplyOnThenOff(t *testing.T) {
	m := ApplyCommand(AutoMode(), Interpret("on"))
	m = ApplyCommand(m, Interpret("off"))
	if m != ManualMode(false) {
		t.Errorf("ON then OFF: got %+v, want Manual(false)", m)
	}
}
