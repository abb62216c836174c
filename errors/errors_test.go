package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/dargueta/raidfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestRaidfsErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNotFound.WithMessage("/a/b/c")
	assert.Equal(t, "No such file or directory: /a/b/c", newErr.Error())
	assert.ErrorIs(t, newErr, errors.ErrNotFound)
	assert.Equal(t, -errors.ENOENT, newErr.Errno())
}

func TestRaidfsErrorWrap(t *testing.T) {
	originalErr := stderrors.New("mmap failed")
	newErr := errors.ErrIOFailed.WrapError(originalErr)

	assert.Equal(t, "Input/output error: mmap failed", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
	assert.Equal(t, -errors.EIO, newErr.Errno())
}

func TestErrnoMapping(t *testing.T) {
	cases := []struct {
		err  errors.DriverError
		want int
	}{
		{errors.ErrNotFound, -errors.ENOENT},
		{errors.ErrNotADirectory, -errors.ENOTDIR},
		{errors.ErrIsADirectory, -errors.EISDIR},
		{errors.ErrExists, -errors.EEXIST},
		{errors.ErrDirectoryNotEmpty, -errors.ENOTEMPTY},
		{errors.ErrNoSpaceOnDevice, -errors.ENOSPC},
		{errors.ErrNoInodesLeft, -errors.ENOSPC},
		{errors.ErrFileTooLarge, -errors.EFBIG},
		{errors.ErrInvalidArgument, -errors.EINVAL},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Errno())
	}
}
