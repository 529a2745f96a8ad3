package protocol

import "errors"

// errMalformedFeedback is returned internally by extractFields when an "FS"
// status field doesn't carry exactly two comma-separated values. DeviceEvent
// .Fields() swallows this and returns an empty map: the parser is
// intentionally permissive about malformed feedback.
var errMalformedFeedback = errors.New("protocol: malformed feedback field")
