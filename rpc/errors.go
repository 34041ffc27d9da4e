package rpc

import "errors"

var (
	ErrMissingAccount     = errors.New("account not set")
	ErrMissingSignature   = errors.New("signature not set")
	ErrMissingTransaction = errors.New("transaction not set")
	ErrUnexpectedEncoding = errors.New("unexpected account data encoding")
)
