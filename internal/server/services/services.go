// Package services contains the server-side business logic: one-time codes,
// the signup/login/verification flows and administrative user management.
// Services talk to storage only through repomanager and return coded errors
// from internal/common.
package services

import (
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

// Option customizes a service.
type Option func(*options)

type options struct {
	now timex.Clock
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c timex.Clock) Option {
	return func(o *options) { o.now = c }
}

func buildOptions(opts []Option) options {
	o := options{now: timex.SystemClock}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func validateUserID(userID string) error {
	if userID == "" {
		return common.InvalidArgument("userId is required", "field", "userId")
	}
	if _, err := uuid.Parse(userID); err != nil {
		return common.InvalidArgument("Invalid userId", "field", "userId")
	}
	return nil
}
