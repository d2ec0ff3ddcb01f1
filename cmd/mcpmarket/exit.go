package main

import "mcpmarket/internal/domain"

type exitError struct {
	code    int
	message string
	silent  bool
}

func (e exitError) Error() string {
	return e.message
}

func exitSilent(code int) error {
	return exitError{code: code, silent: true}
}

func exitCodeFor(err error) int {
	code, ok := domain.CodeFrom(err)
	if !ok {
		return 1
	}
	switch code {
	case domain.CodeInvalidArgument:
		return 2
	case domain.CodeNotFound:
		return 3
	case domain.CodeFailedPrecond:
		return 4
	case domain.CodeUnavailable, domain.CodeDataLoss:
		return 5
	default:
		return 1
	}
}
