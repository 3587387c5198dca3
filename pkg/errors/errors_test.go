package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCarriesTypeAndStack(t *testing.T) {
	err := New(ErrorTypePermission, "endpoint forbidden")

	assert.Equal(t, ErrorTypePermission, err.Type)
	assert.Equal(t, "permission: endpoint forbidden", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, ErrorTypeConnection, "request failed")

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp: refused")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestWrapReclassifies(t *testing.T) {
	inner := New(ErrorTypePermission, "forbidden")
	outer := Wrap(inner, ErrorTypeData, "extraction failed")

	// The outermost classification wins; the original stays reachable as
	// the cause.
	assert.True(t, IsType(outer, ErrorTypeData))
	assert.False(t, IsPermission(outer))
	assert.ErrorIs(t, outer, inner)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeNotFound, "missing").
		WithDetail("status_code", 404).
		WithDetail("url", "https://harvest.greenhouse.io/v1/jobs")

	assert.Equal(t, 404, err.Details["status_code"])
	assert.Len(t, err.Details, 2)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrorTypeRateLimit, "slow down")))
	assert.True(t, IsRetryable(New(ErrorTypeTimeout, "deadline")))
	assert.True(t, IsRetryable(New(ErrorTypeConnection, "refused")))

	assert.False(t, IsRetryable(New(ErrorTypePermission, "forbidden")))
	assert.False(t, IsRetryable(New(ErrorTypeAuthentication, "bad key")))
	assert.False(t, IsRetryable(New(ErrorTypeConfig, "bad config")))
	assert.False(t, IsRetryable(stderrors.New("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsPermission(t *testing.T) {
	assert.True(t, IsPermission(New(ErrorTypePermission, "no")))
	assert.False(t, IsPermission(New(ErrorTypeAuthentication, "no")))
	assert.False(t, IsPermission(stderrors.New("plain")))
	assert.False(t, IsPermission(nil))
}
