package protocol

import "testing"

func TestParseClassifiesPrefixes(t *testing.T) {
	p := NewParser()

	tests := []struct {
		raw  string
		kind Kind
	}{
		{"ok", KindReady},
		{"ok T:210.0 /210.0", KindReady},
		{"start", KindOnline},
		{"Grbl 1.1h", KindOnline},
		{"grbl started", KindOnline},
		{"wait", KindWait},
		{"busy:processing", KindBusy},
		{"error:9", KindError},
		{"Error:Line Number is not Last Line Number+1, Last Line: 5", KindError},
		{"fatal:Extruder switched off", KindFault},
		{"ALARM:1", KindFault},
		{"!!", KindFault},
		{"Resend:5", KindResend},
		{"resend: 5", KindResend},
		{"rs:N5", KindResend},
		{"[MSG:Caution]", KindFeedback},
		{"<Idle|MPos:0.0,0.0,0.0>", KindFeedback},
		{"// debug message", KindDebug},
		{"T:200.0 /0.0", KindDevice},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := p.Parse(tt.raw)
			if got.Kind != tt.kind {
				t.Fatalf("Parse(%q).Kind = %v, want %v", tt.raw, got.Kind, tt.kind)
			}
			if got.Message != tt.raw {
				t.Fatalf("Parse(%q).Message = %q, want original", tt.raw, got.Message)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	p := NewParser()
	a := p.Parse("ok")
	b := p.Parse("ok")
	if a != b {
		t.Fatalf("expected equal events for equal input, got %+v != %+v", a, b)
	}
}
