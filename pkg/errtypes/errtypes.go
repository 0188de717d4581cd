// Package errtypes contains the error-kind taxonomy used across docbox.
//
// Each kind is a distinct string type rather than a shared struct so that
// callers can use errors.As/type switches without pulling in a parallel
// "ErrorKind" enum: the type itself is the kind.
package errtypes

// InvalidInput is returned for validation failures: bad names, cycles,
// unknown folders, malformed URLs. No side effect has been performed when
// this is returned.
type InvalidInput string

func (e InvalidInput) Error() string { return "invalid input: " + string(e) }

// IsInvalidInput implements the IsInvalidInput marker interface.
func (e InvalidInput) IsInvalidInput() {}

// NotFound is returned when an entity, scope, or task does not exist.
type NotFound string

func (e NotFound) Error() string { return "not found: " + string(e) }

// IsNotFound implements the IsNotFound marker interface.
func (e NotFound) IsNotFound() {}

// Conflict is returned for unique-constraint violations (scope, bucket,
// tenant).
type Conflict string

func (e Conflict) Error() string { return "conflict: " + string(e) }

// IsConflict implements the IsConflict marker interface.
func (e Conflict) IsConflict() {}

// Upstream wraps an error surfaced by storage, search, the converter, or a
// queue. The underlying cause is preserved for logging via Unwrap.
type Upstream struct {
	Op    string
	Cause error
}

func (e Upstream) Error() string { return "upstream error during " + e.Op + ": " + e.Cause.Error() }

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e Upstream) Unwrap() error { return e.Cause }

// IsUpstream implements the IsUpstream marker interface.
func (e Upstream) IsUpstream() {}

// ProcessingMalformed indicates the uploaded file was structurally invalid
// (corrupt PDF, corrupt office document).
type ProcessingMalformed string

func (e ProcessingMalformed) Error() string { return "malformed file: " + string(e) }

// IsProcessingMalformed implements the IsProcessingMalformed marker interface.
func (e ProcessingMalformed) IsProcessingMalformed() {}

// Encrypted indicates the file is password-protected; upload succeeds
// without derivatives and the condition is recorded on the file row.
type Encrypted string

func (e Encrypted) Error() string { return "file is encrypted: " + string(e) }

// IsEncrypted implements the IsEncrypted marker interface.
func (e Encrypted) IsEncrypted() {}

// Internal wraps anything else. It is logged in full and surfaced to callers
// as a generic server error.
type Internal struct {
	Cause error
}

func (e Internal) Error() string { return "internal error: " + e.Cause.Error() }

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e Internal) Unwrap() error { return e.Cause }

// IsInternal implements the IsInternal marker interface.
func (e Internal) IsInternal() {}

// IsInvalidInput reports whether err (or a wrapped cause) is an InvalidInput.
type IsInvalidInput interface{ IsInvalidInput() }

// IsNotFound reports whether err (or a wrapped cause) is a NotFound.
type IsNotFound interface{ IsNotFound() }

// IsConflict reports whether err (or a wrapped cause) is a Conflict.
type IsConflict interface{ IsConflict() }

// IsUpstream reports whether err (or a wrapped cause) is an Upstream.
type IsUpstream interface{ IsUpstream() }

// IsProcessingMalformed reports whether err is a ProcessingMalformed.
type IsProcessingMalformed interface{ IsProcessingMalformed() }

// IsEncrypted reports whether err is an Encrypted.
type IsEncrypted interface{ IsEncrypted() }

// IsInternal reports whether err is an Internal.
type IsInternal interface{ IsInternal() }
