package storage

import (
	"errors"
	"os"

	"github.com/opd-ai/leo/wire"
)

// ErrInvalidPath indicates a resolved path escapes the storage root.
var ErrInvalidPath = errors.New("storage: path escapes storage root")

// ErrNotAFile indicates the target exists but is not a regular file.
var ErrNotAFile = errors.New("storage: target is not a regular file")

// Classify maps a storage-layer error to the stable wire error code the
// session actor and client surface to peers. It never inspects error
// message text (only sentinel identity and os error predicates), so it
// stays correct if messages are reworded.
func Classify(err error) wire.ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidPath):
		return wire.ErrInvalidPath
	case errors.Is(err, ErrNotAFile):
		return wire.ErrNotAFile
	case errors.Is(err, os.ErrNotExist):
		return wire.ErrFileNotFound
	case errors.Is(err, os.ErrPermission):
		return wire.ErrPermissionDenied
	default:
		return wire.ErrIO
	}
}
