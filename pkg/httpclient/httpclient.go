// Package httpclient provides a functional-options http.Client wrapper
// shared by the search-index and office-converter backends.
package httpclient

import (
	"net/http"
	"time"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout      time.Duration
	roundTripper http.RoundTripper
}

// Timeout sets the client's overall request timeout.
func Timeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// RoundTripper overrides the transport, useful for tests.
func RoundTripper(rt http.RoundTripper) Option {
	return func(o *options) { o.roundTripper = rt }
}

// New builds an *http.Client with sane defaults: the stdlib default
// transport is never used bare, per the rationale in the teacher's
// pkg/httpclient (a bare default client has no timeout and leaks idle
// connections across hosts in surprising ways).
func New(opts ...Option) *http.Client {
	o := options{timeout: 30 * time.Second}
	for _, fn := range opts {
		fn(&o)
	}
	tr := o.roundTripper
	if tr == nil {
		tr = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   o.timeout,
		Transport: tr,
	}
}
