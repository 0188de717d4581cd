package errtypes

import "errors"

// IsInvalidInputErr reports whether err's chain contains an InvalidInput.
func IsInvalidInputErr(err error) bool {
	var e IsInvalidInput
	return errors.As(err, &e)
}

// IsNotFoundErr reports whether err's chain contains a NotFound.
func IsNotFoundErr(err error) bool {
	var e IsNotFound
	return errors.As(err, &e)
}

// IsConflictErr reports whether err's chain contains a Conflict.
func IsConflictErr(err error) bool {
	var e IsConflict
	return errors.As(err, &e)
}

// IsUpstreamErr reports whether err's chain contains an Upstream.
func IsUpstreamErr(err error) bool {
	var e IsUpstream
	return errors.As(err, &e)
}

// IsProcessingMalformedErr reports whether err's chain contains a ProcessingMalformed.
func IsProcessingMalformedErr(err error) bool {
	var e IsProcessingMalformed
	return errors.As(err, &e)
}

// IsEncryptedErr reports whether err's chain contains an Encrypted.
func IsEncryptedErr(err error) bool {
	var e IsEncrypted
	return errors.As(err, &e)
}

// IsInternalErr reports whether err's chain contains an Internal.
func IsInternalErr(err error) bool {
	var e IsInternal
	return errors.As(err, &e)
}
