package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := New("error")
	withHint := WithHint(err, "try this fix")

	hints := GetAllHints(withHint)
	require.Len(t, hints, 1)
	assert.Equal(t, "try this fix", hints[0])
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")

	detailed := fmt.Sprintf("%+v", err)
	assert.Contains(t, detailed, "errors_test.go")
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.False(t, IsRecoverable(nil))
	assert.False(t, IsPersistFailure(nil))
	assert.False(t, IsSourceUnavailable(nil))
}

func TestTaxonomyMarkers(t *testing.T) {
	base := New("disk full")

	t.Run("persist failure keeps cause and marker", func(t *testing.T) {
		err := PersistFailure(base, "rewrite ledger")
		assert.True(t, IsPersistFailure(err))
		assert.True(t, Is(err, base))
		assert.Contains(t, err.Error(), "rewrite ledger")
		assert.False(t, IsRecoverable(err))
	})

	t.Run("source unavailable is fatal", func(t *testing.T) {
		err := SourceUnavailable(New("no such file"), "open ledger")
		assert.True(t, IsSourceUnavailable(err))
		assert.False(t, IsRecoverable(err))
	})

	t.Run("driver failure is recoverable", func(t *testing.T) {
		err := DriverFailure(New("exit status 1"), "click new text")
		assert.True(t, Is(err, ErrActionDriverFailure))
		assert.True(t, IsRecoverable(err))
	})

	t.Run("mismatch is recoverable", func(t *testing.T) {
		err := Wrap(ErrVerificationMismatch, "expected 111, observed 112")
		assert.True(t, IsRecoverable(err))
	})

	t.Run("hints survive marking", func(t *testing.T) {
		err := WithHint(PersistFailure(base, "rewrite ledger"), "check free space")
		assert.True(t, IsPersistFailure(err))
		assert.Equal(t, []string{"check free space"}, GetAllHints(err))
	})
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("contact %q", "555")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), `contact "555"`)
	assert.False(t, IsNotFoundError(New("other")))
}

func ExampleWrap() {
	baseErr := New("connection failed")
	err := Wrap(baseErr, "failed to fetch blacklist")
	fmt.Println(err)
	// Output: failed to fetch blacklist: connection failed
}
