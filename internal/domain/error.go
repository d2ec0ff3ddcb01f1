package domain

import (
	"context"
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeFailedPrecond   ErrorCode = "FAILED_PRECONDITION"
	CodeInternal        ErrorCode = "INTERNAL"
	CodeCanceled        ErrorCode = "CANCELED"
	CodeDataLoss        ErrorCode = "DATA_LOSS"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrMarketNotFound       = errors.New("market not found")
	ErrCatalogEntryNotFound = errors.New("catalog entry not found")
	ErrLocalToolNotFound    = errors.New("local tool not found")
	ErrAlreadyPromoted      = errors.New("catalog entry already promoted")
	ErrRegistryTransport    = errors.New("registry request failed")
	ErrRegistryStatus       = fmt.Errorf("%w: unexpected status", ErrRegistryTransport)
	ErrRegistryDecode       = errors.New("registry response decode failed")
	ErrStore                = errors.New("store operation failed")
	ErrStoreClosed          = errors.New("store is closed")
	ErrChatUnavailable      = errors.New("chat model is not configured")
)

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
	Meta    map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
			Meta:    existing.Meta,
		}
	}
	if code == "" {
		code, _ = CodeFrom(err)
		if code == "" {
			code = CodeInternal
		}
	}
	return E(code, op, "", err)
}

// CodeFrom maps an error chain onto a stable code. Sentinels are checked
// before *Error so a wrapped sentinel keeps its meaning.
func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidArgument, true
	case errors.Is(err, ErrMarketNotFound), errors.Is(err, ErrCatalogEntryNotFound), errors.Is(err, ErrLocalToolNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrAlreadyPromoted):
		return CodeFailedPrecond, true
	case errors.Is(err, ErrRegistryTransport), errors.Is(err, ErrStoreClosed), errors.Is(err, ErrChatUnavailable):
		return CodeUnavailable, true
	case errors.Is(err, ErrRegistryDecode):
		return CodeDataLoss, true
	case errors.Is(err, ErrStore):
		return CodeInternal, true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled, true
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	return "", false
}
