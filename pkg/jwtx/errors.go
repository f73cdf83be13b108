package jwtx

import "errors"

// Verification failures are distinct so callers can tell "retry with a
// refresh token" (ErrExpired) apart from "reject outright" (everything else).
var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrAlgMismatch  = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)
