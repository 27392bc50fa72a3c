package backuperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOfWrapped(t *testing.T) {
	t.Parallel()

	base := New(ArchiveWriteFailed, "finalize snapshot", "/dest/Backup_20240101_000000.zip", ErrNameCollision)
	wrapped := fmt.Errorf("pass failed: %w", base)

	assert.Equal(t, ArchiveWriteFailed, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ArchiveWriteFailed))
	assert.True(t, errors.Is(wrapped, ErrNameCollision))
	assert.False(t, IsCode(nil, ArchiveWriteFailed))
	assert.Equal(t, Unknown, CodeOf(os.ErrNotExist))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := New(SourceUnavailable, "open source", "/src", os.ErrNotExist)
	assert.Equal(t, "SourceUnavailable: open source /src: file does not exist", err.Error())

	err = New(InvalidPaths, "start scheduler", "", nil)
	assert.Equal(t, "InvalidPaths: start scheduler", err.Error())
}

func TestGlyph(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want string
	}{
		{SourceUnavailable, "✗"},
		{DestUnavailable, "✗"},
		{ArchiveWriteFailed, "✗"},
		{InvalidPaths, "✗"},
		{DeleteFailed, "⚠"},
		{ConfigLoadFailed, "⚠"},
		{ConfigSaveFailed, "⚠"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Glyph(New(tt.code, "op", "", nil)))
		})
	}
	assert.Equal(t, "Code(42)", Code(42).String())
}
