// Package common defines shared constants, sentinel errors and coded
// domain errors used across GophAuth layers. Callers should use errors.Is
// to match the sentinels and CodeOf to read the stable code of a domain error.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
)
