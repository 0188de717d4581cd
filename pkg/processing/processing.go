// Package processing derives searchable text and preview artifacts from an
// uploaded file's bytes (spec.md §4.5): PDFs, office-convertible documents,
// emails, and images each produce a ProcessingOutput of generated files and
// index metadata; every other mime type is left unprocessed.
package processing

import (
	"context"

	"github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/log"
)

// Error is returned when a file cannot be processed. A caller checks Kind
// to decide whether this should surface as errtypes.ProcessingMalformed,
// errtypes.Encrypted, or an internal failure (spec.md §4.5, §9).
type Error struct {
	Kind  ErrorKind
	Cause error
}

// ErrorKind classifies a processing Error.
type ErrorKind string

const (
	ErrMalformed ErrorKind = "malformed"
	ErrEncrypted ErrorKind = "encrypted"
	ErrInternal  ErrorKind = "internal"
)

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Cause.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

func malformed(cause error) *Error { return &Error{Kind: ErrMalformed, Cause: cause} }
func internal(cause error) *Error  { return &Error{Kind: ErrInternal, Cause: cause} }

// QueuedUpload is one generated artifact waiting to be written to blob
// storage under a key derived from the original file (spec.md §4.3).
type QueuedUpload struct {
	Type     db.GeneratedFileType
	Mime     string
	Contents []byte
}

// AdditionalFile is a derived file that should become its own File row
// rather than a GeneratedFile of the original (used by email processing for
// attachments).
type AdditionalFile struct {
	FixedID *string
	Name    string
	Mime    string
	Bytes   []byte
}

// IndexMetadata is the text handed to the search index for the processed
// file, one entry per page when the source is paginated.
type IndexMetadata struct {
	Pages []IndexPage
}

// IndexPage is one page's extracted text.
type IndexPage struct {
	Page    uint64
	Content string
}

// Output is everything processing a file produced.
type Output struct {
	UploadQueue     []QueuedUpload
	AdditionalFiles []AdditionalFile
	Index           *IndexMetadata
	Encrypted       bool
}

// EmailConfig tunes email attachment handling (spec.md §4.5).
type EmailConfig struct {
	SkipAttachments bool
}

// Config tunes optional processing behavior per tenant/request.
type Config struct {
	Email *EmailConfig
}

// Converter is implemented by pkg/processing/office's HTTP client, kept as
// an interface here so tests can stub conversion without a running server.
type Converter interface {
	IsConvertible(mime string) bool
	ConvertToPDF(ctx context.Context, contents []byte) ([]byte, error)
}

// Pipeline dispatches a file's bytes to the right processor by mime type.
type Pipeline struct {
	converter Converter
	logger    *log.Logger
}

// NewPipeline builds a Pipeline. converter may be nil if no office documents
// will ever be processed (tests, or a deployment without a converter).
func NewPipeline(converter Converter, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Nop()
	}
	return &Pipeline{converter: converter, logger: logger}
}

// Process inspects mime and routes to the matching processor, in the fixed
// dispatch order pdf -> office-convertible -> email -> image -> none
// (spec.md §4.5). A nil Output with a nil error means the mime type has no
// processor and the file is stored as-is with no derived artifacts.
func (p *Pipeline) Process(ctx context.Context, cfg *Config, contents []byte, mimeType string) (*Output, error) {
	switch {
	case isPDFMime(mimeType):
		p.logger.Debug().Msg("processing pdf file")
		return processPDF(contents)

	case p.converter != nil && p.converter.IsConvertible(mimeType):
		p.logger.Debug().Msg("processing office compatible file")
		return p.processOffice(ctx, contents)

	case isMailMime(mimeType):
		p.logger.Debug().Msg("processing email file")
		return processEmail(cfg, contents)

	case isImageMime(mimeType):
		p.logger.Debug().Msg("processing image file")
		return processImage(contents, mimeType)

	default:
		return nil, nil
	}
}

// encryptedConvertError and malformedConvertError are satisfied by the
// office package's converter error without creating an import cycle
// (pkg/processing/office already imports pkg/processing for Converter).
type encryptedConvertError interface{ Encrypted() bool }
type malformedConvertError interface{ Malformed() bool }

func isEncryptedConvertError(err error) bool {
	var e encryptedConvertError
	return errors.As(err, &e) && e.Encrypted()
}

func isMalformedConvertError(err error) bool {
	var e malformedConvertError
	return errors.As(err, &e) && e.Malformed()
}

func (p *Pipeline) processOffice(ctx context.Context, contents []byte) (*Output, error) {
	pdfBytes, err := p.converter.ConvertToPDF(ctx, contents)
	if err != nil {
		if isEncryptedConvertError(err) {
			return &Output{Encrypted: true}, nil
		}
		if isMalformedConvertError(err) {
			return nil, malformed(errors.Wrap(err, "processing: office document malformed"))
		}
		return nil, internal(errors.Wrap(err, "processing: convert office document to pdf"))
	}
	out, err := processPDF(pdfBytes)
	if err != nil || out == nil {
		return out, err
	}
	if out.Encrypted {
		return out, nil
	}
	// The converted PDF itself becomes a generated artifact alongside the
	// cover/thumbnails/text derived from it (spec.md §4.5 office path).
	out.UploadQueue = append([]QueuedUpload{
		{Type: db.GeneratedPdf, Mime: "application/pdf", Contents: pdfBytes},
	}, out.UploadQueue...)
	return out, nil
}
