package auth

import "errors"

var (
	ErrMissingParameter = errors.New("No InstanceId provided")
	ErrUnauthorized     = errors.New("Incorrect API Key provided")
	ErrMalformedSecret  = errors.New("malformed secret")
)
