package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means no access token is stored for the shop;
	// the merchant must re-authorize. Never retried.
	ErrMissingCredential = errors.New("no access token stored for shop")

	// ErrBadDateRange means the requested date range is unusable: a date
	// failed to parse or start_date is after end_date. Rejected before any
	// network call.
	ErrBadDateRange = errors.New("invalid report date range")

	// ErrPaginationExhausted means the cursor chain exceeded the hard page
	// cap; treated as an upstream failure rather than silent truncation.
	ErrPaginationExhausted = errors.New("pagination exceeded page cap")

	// ErrMalformedTimestamp means an upstream timestamp literal could not
	// be parsed even after normalization.
	ErrMalformedTimestamp = errors.New("malformed upstream timestamp")
)

// UpstreamError is a non-2xx response from the Shopify Admin API. The whole
// aggregation aborts on it; partial results are discarded so a report never
// silently under-counts.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify api returned status %d: %s", e.Status, e.Body)
}

// IsUpstream reports whether err is an upstream API failure, including the
// pagination cap trip.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) || errors.Is(err, ErrPaginationExhausted)
}
