package model

import "errors"

// ErrAuth marks failures caused by a missing, expired or rejected session.
// Transports wrap it so loops can trigger re-authentication without knowing
// the transport's concrete error types.
var ErrAuth = errors.New("authentication required")
