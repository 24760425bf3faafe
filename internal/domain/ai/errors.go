package ai

import "errors"

// FinishReasonStop is the normalized finish reason of a normally completed generation.
const FinishReasonStop = "STOP"

// ErrMissingCredential indicates the provider was built without an API key.
var ErrMissingCredential = errors.New("ai credential missing")
