package livechat

import "errors"

// ErrConfiguration reports a missing or invalid configuration, detected
// before any device or network resource is acquired.
var ErrConfiguration = errors.New("livechat: invalid configuration")

// ErrInvalidState reports an operation not permitted in the current
// lifecycle state.
var ErrInvalidState = errors.New("livechat: invalid state")

// ErrDecode reports a malformed audio payload. Decode failures skip the
// offending chunk and leave the session running.
var ErrDecode = errors.New("livechat: malformed audio chunk")
