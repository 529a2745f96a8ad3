package protocol

import "strings"

// prefixEntry pairs a wire-response prefix with the event Kind it selects.
// Order matters: the first matching prefix wins.
type prefixEntry struct {
	prefix string
	kind   Kind
}

// prefixTable is the ordered set of recognized response prefixes.
var prefixTable = []prefixEntry{
	{"!!", KindFault},
	{"[", KindFeedback},
	{"//", KindDebug},
	{"<", KindFeedback},
	{"ALARM:", KindFault},
	{"busy:", KindBusy},
	{"error:", KindError},
	{"Error:", KindError},
	{"fatal:", KindFault},
	{"Grbl", KindOnline},
	{"grbl", KindOnline},
	{"ok", KindReady},
	{"Resend:", KindResend},
	{"resend:", KindResend},
	{"rs:", KindResend},
	{"start", KindOnline},
	{"wait", KindWait},
}

// Parser is a stateless classifier of raw device lines into DeviceEvent
// values. It carries no state and is safe to share across goroutines; a
// single instance is reused for every line the Host reads.
type Parser struct{}

// NewParser returns a ready-to-use Parser.
func NewParser() *Parser { return &Parser{} }

// Parse classifies raw against the ordered prefix table (first match
// wins); unrecognized lines become a generic KindDevice event. Equal inputs
// always produce equal events.
//
// A line literally starting with "ok" — including a Marlin "ok T:..."
// temperature report riding on the acknowledgement — classifies as
// KindReady. One wire line produces exactly one event; callers that want
// the embedded temperature fields inspect Fields() on that same event
// rather than expect a second, separate feedback event.
func (p *Parser) Parse(raw string) DeviceEvent {
	for _, entry := range prefixTable {
		if strings.HasPrefix(raw, entry.prefix) {
			return DeviceEvent{Kind: entry.kind, Message: raw}
		}
	}
	return DeviceEvent{Kind: KindDevice, Message: raw}
}
