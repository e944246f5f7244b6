package common

import (
	"github.com/samber/oops"
)

// Stable error codes exposed to clients.
const (
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidCode        = "INVALID_CODE"
	CodeAlreadyGenerated   = "ALREADY_GENERATED_CODE"
	CodeAlreadyExists      = "ENTITY_ALREADY_EXISTS"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeForbidden          = "FORBIDDEN"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInfraError         = "INFRA_ERROR"
)

// Messages shared by more than one component.
const (
	MsgInvalidEmailOrPassword = "Invalid email or password"
	MsgInvalidCode            = "The provided code is invalid, used or expired"
	MsgAlreadyGeneratedCode   = "A valid code has already been generated for this user and type"
	MsgInvalidToken           = "Token is invalid or has expired"
	MsgUserNotFound           = "User not found"
	MsgAccessDenied           = "Access denied"
	MsgInternal               = "Internal Server Error"
)

// NewError builds a coded error carrying a user-facing message. kv pairs are
// attached as error context.
func NewError(code, msg string, kv ...any) error {
	return oops.Code(code).With(kv...).Errorf("%s", msg)
}

// InvalidArgument reports malformed input.
func InvalidArgument(msg string, kv ...any) error {
	return NewError(CodeInvalidArgument, msg, kv...)
}

// InvalidCredentials reports a failed login.
func InvalidCredentials() error {
	return NewError(CodeInvalidCredentials, MsgInvalidEmailOrPassword)
}

// InvalidCode reports a missing, used, expired or mismatched one-time code.
func InvalidCode() error {
	return NewError(CodeInvalidCode, MsgInvalidCode)
}

// NotFound reports a missing entity.
func NotFound(msg string, kv ...any) error {
	return NewError(CodeNotFound, msg, kv...)
}

// InvalidToken reports a token that failed verification.
func InvalidToken() error {
	return NewError(CodeInvalidToken, MsgInvalidToken)
}

// Infra wraps a failure of an external dependency. A nil err yields nil.
func Infra(operation string, err error) error {
	return oops.Code(CodeInfraError).With("operation", operation).Wrap(err)
}

// CodeOf returns the stable code carried by err. Errors without a code are
// reported as CodeInfraError.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return CodeInfraError
	}
	if code, ok := oopsErr.Code().(string); ok && code != "" {
		return code
	}
	return CodeInfraError
}

// Context returns the context attached to a coded error, or nil.
func Context(err error) map[string]any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

// EnsureCoded passes coded errors through and wraps anything else as an
// infrastructure failure of operation.
func EnsureCoded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := oops.AsOops(err); ok {
		return err
	}
	return Infra(operation, err)
}
