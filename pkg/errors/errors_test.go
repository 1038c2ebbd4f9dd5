package errors

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, WrapWithCode(nil, ErrorCodeSpawnFailed, "ignored"))
	assert.NoError(t, WrapWithField(nil, "k", "v", "ignored"))
}

func TestWrapWithCodeKeepsOriginal(t *testing.T) {
	err := WrapWithCode(exec.ErrNotFound, ErrorCodeInterpreterNotFound, "interpreter lookup failed")

	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Equal(t, ErrorCodeInterpreterNotFound, GetCode(err))
	assert.Contains(t, err.Error(), "interpreter lookup failed")
	assert.Contains(t, err.Error(), exec.ErrNotFound.Error())
}

func TestRewrapMergesFieldsAndMessage(t *testing.T) {
	base := WrapWithField(errors.New("permission denied"), "pid", 42, "start failed")
	err := WrapWithCode(base, ErrorCodeSpawnFailed, "companion unavailable")

	assert.Equal(t, ErrorCodeSpawnFailed, GetCode(err))
	assert.Equal(t, "companion unavailable: start failed: permission denied", err.Error())

	fields := GetFields(err)
	assert.Equal(t, 42, fields["pid"])
	assert.Equal(t, ErrorCodeSpawnFailed, fields[FieldErrorCode])
	assert.NotEmpty(t, fields[FieldStackTrace])
}

func TestWrapPreservesCodeWhenNoneGiven(t *testing.T) {
	base := NewWithCode(ErrorCodeAlreadyStarted, "already started")
	err := Wrap(base, "start rejected")

	assert.Equal(t, ErrorCodeAlreadyStarted, GetCode(err))
}

func TestGetFieldsPlainError(t *testing.T) {
	fields := GetFields(errors.New("boom"))
	assert.Equal(t, map[string]interface{}{FieldError: "boom"}, fields)
	assert.Nil(t, GetFields(nil))
	assert.Equal(t, ErrorCodeUnknown, GetCode(errors.New("boom")))
	assert.Equal(t, "", GetCode(nil))
}
