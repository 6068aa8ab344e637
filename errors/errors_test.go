package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewf(t *testing.T) {
	err := Newf("unknown filter %q", "reop")
	require.NotNil(t, err)
	assert.Equal(t, `unknown filter "reop"`, err.Error())
}

func TestWrap(t *testing.T) {
	original := New("connection refused")
	wrapped := Wrap(original, "fetch repositories")

	assert.Contains(t, wrapped.Error(), "fetch repositories")
	assert.Contains(t, wrapped.Error(), "connection refused")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("no such table: repositories"), "run 'searchq db migrate' first")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "run 'searchq db migrate' first", hints[0])
}

func TestSentinels(t *testing.T) {
	notFound := NewNotFoundError("repository %s", "github.com/teranos/searchq")
	assert.True(t, IsNotFoundError(notFound))
	assert.False(t, IsInvalidRequestError(notFound))
	assert.Contains(t, notFound.Error(), "github.com/teranos/searchq")

	invalid := NewInvalidRequestError("column %d out of range", 42)
	assert.True(t, IsInvalidRequestError(invalid))
	assert.False(t, IsNotFoundError(invalid))

	assert.False(t, IsNotFoundError(nil))
	assert.False(t, IsInvalidRequestError(nil))
}
