package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	plain := NotFound("post not found")
	assert.Equal(t, "post not found", plain.Error())

	cause := stderrors.New("boom")
	wrapped := Wrap(cause, ErrCodeInternal, "query failed")
	assert.Equal(t, "query failed: boom", wrapped.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "ignored %d", 1))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	wrapped := Wrap(cause, ErrCodeTimeout, "timed out")
	assert.ErrorIs(t, wrapped, cause)
}

func TestCodePredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("post %s not found", "abc")))
	assert.True(t, IsConflict(Conflict("slug taken")))
	assert.True(t, IsValidation(Validationf("bad %s", "title")))
	assert.True(t, IsValidation(ValidationField("title", "too short")))
	assert.False(t, IsNotFound(Conflict("slug taken")))
	assert.False(t, IsConflict(stderrors.New("plain")))
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	inner := NotFound("post not found")
	outer := Wrap(inner, ErrCodeInternal, "lookup failed")

	// errors.As finds the outermost AppError first.
	assert.False(t, IsNotFound(outer))
	assert.Equal(t, ErrCodeInternal, GetCode(outer))

	plainWrap := stderrors.Join(stderrors.New("ctx"), inner)
	assert.True(t, IsNotFound(plainWrap))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, GetCode(Validation("bad input")))
	assert.Equal(t, ErrorCode(""), GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("title", "too short")
	require.NotNil(t, err)
	assert.Equal(t, "title", err.Field)
	assert.Equal(t, ErrCodeValidation, err.Code)
}
