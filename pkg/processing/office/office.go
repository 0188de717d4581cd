// Package office is the HTTP client for docbox's office-to-PDF converter
// service (spec.md §4.5): a small load-balanced set of converter server
// addresses, tried in round-robin order with retry, grounded on the
// teacher's httpclient idiom (pkg/httpclient) since there is no official Go
// client for the converter's REST API.
package office

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/cenkalti/backoff"
	pkgerrors "github.com/pkg/errors"

	"github.com/docboxhq/docbox/pkg/httpclient"
	"github.com/docboxhq/docbox/pkg/processing"
)

// malformedMarker and encryptedMarker are the converter's plain-text error
// body substrings it uses to report a document it could not open, mirrored
// from the original's "file is encrypted"/"file is corrupted" mapping.
const (
	malformedMarker = "corrupted"
	encryptedMarker = "password protected"
)

// Client round-robins across a set of converter server addresses.
type Client struct {
	http      *http.Client
	addresses []string
	retries   int
	next      uint64
}

// New builds a Client. addresses must be non-empty.
func New(addresses []string, retries int) (*Client, error) {
	if len(addresses) == 0 {
		return nil, pkgerrors.New("office: no converter addresses configured")
	}
	if retries <= 0 {
		retries = 3
	}
	return &Client{http: httpclient.New(), addresses: addresses, retries: retries}, nil
}

// IsConvertible reports whether mimeType is in the converter's supported
// input format set.
func (c *Client) IsConvertible(mimeType string) bool {
	return processing.IsConvertible(mimeType)
}

// ConvertToPDF sends contents to the next address in rotation, moving on to
// the following address after any failure other than an encrypted or
// corrupted-document response, for at most c.retries attempts in total
// (spec.md §4.5).
func (c *Client) ConvertToPDF(ctx context.Context, contents []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		addr := c.addresses[atomic.AddUint64(&c.next, 1)%uint64(len(c.addresses))]
		pdfBytes, err := c.convertOnce(ctx, addr, contents)
		if err == nil {
			return pdfBytes, nil
		}
		if isConversionFatal(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(lastErr, "office: all converter addresses failed")
}

func (c *Client) convertOnce(ctx context.Context, addr string, contents []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, addr+"/convert", bytes.NewReader(contents))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp *http.Response
	op := func() error {
		resp, err = c.http.Do(req)
		return err
	}
	if err := backoff.Retry(op, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := new(bytes.Buffer)
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		msg := body.String()
		switch {
		case strings.Contains(msg, encryptedMarker):
			return nil, &officeError{encrypted: true, msg: msg}
		case strings.Contains(msg, malformedMarker):
			return nil, &officeError{malformed: true, msg: msg}
		default:
			return nil, fmt.Errorf("office: converter returned %d: %s", resp.StatusCode, msg)
		}
	}
	return body.Bytes(), nil
}

// officeError is returned by the converter for a document it could not
// convert because it is encrypted or corrupted. It implements the marker
// interfaces pkg/processing checks for without importing this package back.
type officeError struct {
	malformed bool
	encrypted bool
	msg       string
}

func (e *officeError) Error() string  { return "office: " + e.msg }
func (e *officeError) Malformed() bool { return e.malformed }
func (e *officeError) Encrypted() bool { return e.encrypted }

func isConversionFatal(err error) bool {
	var oe *officeError
	return errors.As(err, &oe)
}
