// SPDX-License-Identifier: MIT

package jobs

import (
	"errors"
)

// Kind classifies why a refresh failed.
type Kind string

const (
	// KindInvalidConfiguration marks a playlist unfit to refresh (for
	// example a remote playlist without a URL). Fatal for that call.
	KindInvalidConfiguration Kind = "invalid_configuration"
	// KindFetchFailed marks a network, transport or HTTP status failure.
	// Transient; the next scheduled attempt retries.
	KindFetchFailed Kind = "fetch_failed"
	// KindEmptyContent marks a fetch that returned nothing usable.
	KindEmptyContent Kind = "empty_content"
	// KindParseFailed marks a structurally invalid document.
	KindParseFailed Kind = "parse_failed"
	// KindStoreFailed marks a storage failure while persisting results.
	KindStoreFailed Kind = "store_failed"
)

var kindMessages = map[Kind]string{
	KindInvalidConfiguration: "invalid playlist configuration",
	KindFetchFailed:          "fetch failed",
	KindEmptyContent:         "empty playlist content",
	KindParseFailed:          "parse failed",
	KindStoreFailed:          "store failed",
}

// RefreshError is the typed outcome of a failed refresh. It always carries a
// human-readable cause alongside the kind.
type RefreshError struct {
	Kind  Kind
	Cause error
}

func (e *RefreshError) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		msg = string(e.Kind)
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *RefreshError) Unwrap() error {
	return e.Cause
}

func refreshErr(kind Kind, cause error) *RefreshError {
	return &RefreshError{Kind: kind, Cause: cause}
}

// KindOf extracts the refresh error kind from err, or "" for untyped errors.
func KindOf(err error) Kind {
	var re *RefreshError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// stage maps an error kind to the metrics stage label.
func stage(kind Kind) string {
	switch kind {
	case KindInvalidConfiguration:
		return "config"
	case KindFetchFailed:
		return "fetch"
	case KindEmptyContent:
		return "content"
	case KindParseFailed:
		return "parse"
	case KindStoreFailed:
		return "store"
	default:
		return "unknown"
	}
}
