package ingestion

import "errors"

// ErrConfiguration is the error kind for caller mistakes that must surface
// before any side effect: a missing required parameter, a malformed date, a
// missing API key. No run journal entry exists when this is returned.
var ErrConfiguration = errors.New("configuration error")
