package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"mcpmarket/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("rawjson", rawJSONValidator)
	})
	return validate
}

// rawJSONValidator accepts empty blobs and well-formed JSON.
func rawJSONValidator(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(json.RawMessage)
	if !ok {
		return false
	}
	return len(raw) == 0 || json.Valid(raw)
}

type marketInput struct {
	Name       string          `validate:"required,max=128"`
	URL        string          `validate:"required,http_url"`
	AuthConfig json.RawMessage `validate:"rawjson"`
	Status     string          `validate:"omitempty,oneof=ENABLED DISABLED"`
}

type toolInput struct {
	Name   string          `validate:"required,max=256"`
	Kind   string          `validate:"required,oneof=LOCAL REMOTE"`
	Status string          `validate:"omitempty,oneof=ENABLED DISABLED"`
	Config json.RawMessage `validate:"rawjson"`
}

// checkStruct runs the validator and folds field errors into one
// domain.ErrInvalidRequest.
func checkStruct(value any) error {
	err := structValidator().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(msgs, "; "))
}
