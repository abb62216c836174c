// This is a compatibility shim for POSIX-defined errno codes across
// platforms, the same role the upstream shim plays: the syscall package
// doesn't define all the values we need identically on every host OS.

package errors

import (
	"fmt"
)

type RaidfsError string

const ErrDirectoryNotEmpty = RaidfsError("Directory not empty")
const ErrExists = RaidfsError("File exists")
const ErrFileSystemCorrupted = RaidfsError("Structure needs cleaning")
const ErrFileTooLarge = RaidfsError("File too large")
const ErrInvalidArgument = RaidfsError("Invalid argument")
const ErrIOFailed = RaidfsError("Input/output error")
const ErrIsADirectory = RaidfsError("Is a directory")
const ErrNoInodesLeft = RaidfsError("No inodes left on device")
const ErrNoSpaceOnDevice = RaidfsError("No space left on device")
const ErrNotADirectory = RaidfsError("Not a directory")
const ErrNotFound = RaidfsError("No such file or directory")
const ErrNotSupported = RaidfsError("Operation not supported")

func (e RaidfsError) Error() string {
	return string(e)
}

func (e RaidfsError) WithMessage(message string) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", string(e), message),
		kind:          e,
		originalError: e,
	}
}

func (e RaidfsError) WrapError(err error) DriverError {
	return customDriverError{
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		kind:          e,
		originalError: err,
	}
}

// Errno returns the negative errno value a POSIX-style dispatcher should
// surface for this error kind. Kinds this module never produces (and kinds
// not otherwise recognized) map to -EIO.
func (e RaidfsError) Errno() int {
	switch e {
	case ErrNotFound:
		return -ENOENT
	case ErrNotADirectory:
		return -ENOTDIR
	case ErrIsADirectory:
		return -EISDIR
	case ErrExists:
		return -EEXIST
	case ErrDirectoryNotEmpty:
		return -ENOTEMPTY
	case ErrNoSpaceOnDevice, ErrNoInodesLeft:
		return -ENOSPC
	case ErrFileTooLarge:
		return -EFBIG
	case ErrInvalidArgument:
		return -EINVAL
	default:
		return -EIO
	}
}

// Standard errno values used by Errno(). Kept as local constants rather than
// imported from "syscall" so error codes are identical regardless of the
// host the dispatcher adapter happens to run on.
const (
	ENOENT    = 2
	EIO       = 5
	EEXIST    = 17
	ENOTDIR   = 20
	EISDIR    = 21
	EINVAL    = 22
	EFBIG     = 27
	ENOSPC    = 28
	ENOTEMPTY = 39
)
