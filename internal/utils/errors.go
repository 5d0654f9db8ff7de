package utils

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"
)

var codeStatus = map[Code]int{
	CodeInvalidArgument: http.StatusBadRequest,
	CodeUnauthorized:    http.StatusUnauthorized,
	CodeForbidden:       http.StatusForbidden,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeTooManyRequests: http.StatusTooManyRequests,
	CodeUnavailable:     http.StatusServiceUnavailable,
	CodeTimeout:         http.StatusGatewayTimeout,
	CodeInternal:        http.StatusInternalServerError,
}

// AppError is the error contract shared by repositories, services and handlers.
// Message is safe to show to API callers; Err never is.
type AppError struct {
	Code    Code
	Op      string // e.g. "EvaluationService.SaveResult"
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

// DB classifies a persistence error: missing rows become NOT_FOUND, unique
// violations become CONFLICT with conflictMsg, everything else is INTERNAL.
func DB(op, msg, conflictMsg string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return E(CodeNotFound, op, "ressource introuvable", err)
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, ErrConflict):
		if conflictMsg == "" {
			conflictMsg = "ressource déjà existante"
		}
		return E(CodeConflict, op, conflictMsg, err)
	default:
		return E(CodeInternal, op, msg, err)
	}
}

func IsCode(err error, code Code) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		if s, ok := codeStatus[ae.Code]; ok {
			return s
		}
		return http.StatusInternalServerError
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a write skipped because the row changed state.
	ErrConflict = errors.New("conflict")
)
