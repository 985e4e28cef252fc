package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `validate:"required,max=8"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(signup{Username: "alice", Email: "a@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestStruct_CollectsFieldErrors(t *testing.T) {
	err := Struct(signup{Username: "averylongname", Email: "nope", Password: "123"})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 3)

	assert.Equal(t, "Username", verr.Fields[0].Field)
	assert.Equal(t, "max", verr.Fields[0].Tag)
	assert.Contains(t, err.Error(), "username must be at most 8 characters")
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Contains(t, err.Error(), "password must be at least 6 characters")
}

func TestStruct_Required(t *testing.T) {
	err := Struct(signup{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")
}

func TestValidatorIsSingleton(t *testing.T) {
	assert.Same(t, Validator(), Validator())
}

func TestErrorWithoutFields(t *testing.T) {
	assert.Equal(t, "validation failed", (&Error{}).Error())
}
