package listing

import "errors"

var (
	// ErrNoMorePages is returned by LoadMore when the last page has no continuation token.
	ErrNoMorePages = errors.New("no more pages")

	// ErrBusy is returned by LoadMore while another fetch is in flight.
	ErrBusy = errors.New("a fetch is already in flight")

	// ErrStale is returned when a response arrived after the selected tag changed.
	ErrStale = errors.New("response superseded by a newer selection")

	// ErrNothingToRetry is returned by Retry when no operation has failed.
	ErrNothingToRetry = errors.New("nothing to retry")

	// ErrInvalidToken is returned when a continuation token is not a positive page number.
	ErrInvalidToken = errors.New("invalid continuation token")
)
