package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "plain error", err: errors.New("boom"), want: ExitUsage},
		{name: "locator not found", err: WrapStage(StageLocate, NewNotFoundError("/x", fs.ErrNotExist)), want: ExitLocate},
		{name: "locator permission", err: WrapStage(StageLocate, NewPermissionError("/x", fs.ErrPermission)), want: ExitLocate},
		{name: "timeout", err: WrapStage(StageMatch, NewTimeoutError(time.Second, StageMatch)), want: ExitTimeout},
		{name: "serialization", err: WrapStage(StageSerialize, NewSerializationError("bad", nil)), want: ExitSerialize},
		{name: "write", err: WrapStage(StageWrite, errors.New("disk full")), want: ExitSerialize},
		{name: "command error", err: NewCommandError(errors.New("usage"), 7), want: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestWrapStageKeepsInnermostStage(t *testing.T) {
	inner := WrapStage(StageLocate, NewNotFoundError("/root", nil))
	outer := WrapStage(StageWrite, fmt.Errorf("scan: %w", inner))

	var se *StageError
	assert.True(t, errors.As(outer, &se))
	assert.Equal(t, StageLocate, se.Stage)
	assert.Nil(t, WrapStage(StageWrite, nil))
}

func TestErrorsUnwrap(t *testing.T) {
	err := WrapStage(StageLocate, NewNotFoundError("/missing", fs.ErrNotExist))

	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "/missing", nf.Path)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.EqualError(t, err, `locate stage failed: path "/missing" does not exist`)
}

func TestDecodeErrorMessage(t *testing.T) {
	assert.EqualError(t, NewDecodeError("a.yml", "invalid UTF-8 at byte 3", nil), `unable to decode "a.yml": invalid UTF-8 at byte 3`)
	assert.EqualError(t, NewDecodeError("a.yml", "yaml", errors.New("bad indent")), `unable to decode "a.yml": yaml: bad indent`)
}
