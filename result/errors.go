package result

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strings"
	"syscall"
)

// ErrorCategory represents the classification of a check failure. The string
// values double as short diagnostic codes.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	CategoryConnectionReset   ErrorCategory = "connection_reset"
	CategoryTLS               ErrorCategory = "tls_error"
	CategoryTooManyRedirects  ErrorCategory = "too_many_redirects"
	Category3xx               ErrorCategory = "3xx"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryUnknown           ErrorCategory = "unknown"
)

// ClassifyError determines the error category from a transport error, an
// HTTP status code, and whether the redirect limit was exceeded.
func ClassifyError(err error, statusCode int, tooManyRedirects bool) ErrorCategory {
	if tooManyRedirects {
		return CategoryTooManyRedirects
	}

	switch {
	case statusCode >= 500:
		return Category5xx
	case statusCode >= 400:
		return Category4xx
	case statusCode >= 300:
		return Category3xx
	}

	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return CategoryTimeout
		}
		return CategoryDNSFailure
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return CategoryConnectionRefused
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return CategoryConnectionReset
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
		return CategoryConnectionRefused
	}

	var certErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) {
		return CategoryTLS
	}

	return CategoryUnknown
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case CategoryConnectionReset:
		return "Connection Reset"
	case CategoryTLS:
		return "TLS Errors"
	case CategoryTooManyRedirects:
		return "Too Many Redirects"
	case Category3xx:
		return "Redirects (3xx)"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	default:
		return "Other Errors"
	}
}
