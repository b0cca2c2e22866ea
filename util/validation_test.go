package util

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sampleRequest struct {
	Email string `validate:"required,email"`
	Role  string `validate:"oneof=caregiver doctor"`
}

func TestFormatValidationError(t *testing.T) {
	err := validator.New().Struct(sampleRequest{Email: "nope", Role: "admin"})
	msg := FormatValidationError(err)
	assert.Contains(t, msg, "email must be a valid email")
	assert.Contains(t, msg, "role must be one of [caregiver doctor]")

	err = validator.New().Struct(sampleRequest{Role: "doctor"})
	assert.Equal(t, "email is required", FormatValidationError(err))
}

func TestFormatValidationError_PlainError(t *testing.T) {
	assert.Equal(t, "unexpected EOF", FormatValidationError(errors.New("unexpected EOF")))
}
