package approvals

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeWrongSubjectType   = "WRONG_SUBJECT_TYPE"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeTaskNotFound       = "TASK_NOT_FOUND"
	TextCodeAdminUserNotFound  = "ADMIN_USER_NOT_FOUND"
	TextCodeRequesterNotFound  = "REQUESTER_NOT_FOUND"
	TextCodeEmailConflict      = "EMAIL_ALREADY_EXISTS"
	TextCodeInvalidTransition  = "INVALID_TASK_TRANSITION"
	TextCodeTerminalState      = "TERMINAL_TASK_STATE"
)

// ErrUnauthenticated is returned when a request carries no usable token
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their exp claim
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is returned when login fails, regardless of the cause
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrWrongSubjectType is returned when a valid token targets the other audience
var ErrWrongSubjectType = goerrors.New("invalid token type", goerrors.CategoryAuthz).
	WithTextCode(TextCodeWrongSubjectType).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when the role does not allow the operation
var ErrForbidden = goerrors.New("insufficient permissions", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrValidation is the base for payload validation failures
var ErrValidation = goerrors.New("validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrTaskNotFound is returned for unknown task ids
var ErrTaskNotFound = goerrors.New("task not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTaskNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAdminUserNotFound is returned for unknown admin ids
var ErrAdminUserNotFound = goerrors.New("admin user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAdminUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrRequesterNotFound is returned for unknown requester accounts
var ErrRequesterNotFound = goerrors.New("requester not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRequesterNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrEmailConflict is returned when an admin email is already registered
var ErrEmailConflict = goerrors.New("email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailConflict).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid task state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when a task already left the pending state.
var ErrTerminalState = goerrors.New("task state is terminal", goerrors.CategoryConflict).
	WithTextCode(TextCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// withMetadata clones base so package level errors are never mutated.
func withMetadata(base *goerrors.Error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}
	return clone
}

func withMessage(base *goerrors.Error, message string, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Message = message
	clone.Source = base
	if len(metadata) > 0 {
		clone.WithMetadata(metadata)
	}
	return clone
}

// validationError turns ozzo field errors into a rich validation error with
// one metadata entry per offending field.
func validationError(err error) error {
	if err == nil {
		return nil
	}

	fields := map[string]any{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
	} else {
		fields["error"] = err.Error()
	}

	return withMessage(ErrValidation, strings.TrimSpace(err.Error()), map[string]any{
		"fields": fields,
	})
}

// TextCode returns the text code of a rich error or an empty string.
func TextCode(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}

// HasTextCode reports whether err is a rich error with the given text code.
func HasTextCode(err error, code string) bool {
	return err != nil && TextCode(err) == code
}

// HTTPStatus maps an error to the response status for the request that
// triggered it.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return http.StatusInternalServerError
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
