package protocol

import "testing"

func TestDeviceEventLineNumber(t *testing.T) {
	tests := []struct {
		message string
		want    int
	}{
		{"Resend: 5", 5},
		{"resend:12", 12},
		{"rs:N7", 7},
		{"ok", -1},
	}

	for _, tt := range tests {
		e := DeviceEvent{Kind: KindResend, Message: tt.message}
		if got := e.LineNumber(); got != tt.want {
			t.Errorf("LineNumber(%q) = %d, want %d", tt.message, got, tt.want)
		}
	}
}

func TestDeviceEventFieldsPosition(t *testing.T) {
	e := DeviceEvent{Kind: KindFeedback, Message: "<Idle|MPos:1.0,2.0,3.0|WPos:0.0,0.0,0.0>"}
	fields := e.Fields()

	if fields["X"] != 1.0 || fields["Y"] != 2.0 || fields["Z"] != 3.0 {
		t.Fatalf("unexpected MPos fields: %+v", fields)
	}
}

func TestDeviceEventFieldsFirstOccurrenceWins(t *testing.T) {
	e := DeviceEvent{Kind: KindFeedback, Message: "<MPos:1.0,2.0,3.0|WPos:9.0,9.0,9.0>"}
	fields := e.Fields()

	if fields["X"] != 1.0 {
		t.Fatalf("expected MPos to win for X, got %v", fields["X"])
	}
}

func TestDeviceEventFieldsFeedSpeed(t *testing.T) {
	e := DeviceEvent{Kind: KindFeedback, Message: "<Run|FS:1500,8000>"}
	fields := e.Fields()

	if fields["F"] != 1500 || fields["S"] != 8000 {
		t.Fatalf("unexpected FS fields: %+v", fields)
	}
}

func TestDeviceEventFieldsMalformedFSReturnsEmpty(t *testing.T) {
	e := DeviceEvent{Kind: KindFeedback, Message: "<Run|FS:1500>"}
	fields := e.Fields()
	if len(fields) != 0 {
		t.Fatalf("expected empty fields on malformed FS, got %+v", fields)
	}
}

func TestDeviceEventFieldsGenericKey(t *testing.T) {
	e := DeviceEvent{Kind: KindDevice, Message: "T:210.5 /210.0 @:64"}
	fields := e.Fields()

	if fields["T"] != 210.5 {
		t.Fatalf("expected T=210.5, got %+v", fields)
	}
	if fields["@"] != 64 {
		t.Fatalf("expected @=64, got %+v", fields)
	}
}

func TestKindString(t *testing.T) {
	if KindReady.String() != "ready" {
		t.Fatalf("expected 'ready', got %q", KindReady.String())
	}
	if Kind(999).String() != "device" {
		t.Fatalf("expected fallback 'device', got %q", Kind(999).String())
	}
}
