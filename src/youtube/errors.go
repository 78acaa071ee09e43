package youtube

import "errors"

var (
	// ErrNoQuery means the message carried no usable text or caption.
	ErrNoQuery = errors.New("no usable text or caption")

	// ErrKeysExhausted means every configured API key hit its quota.
	ErrKeysExhausted = errors.New("all youtube api keys exhausted")

	// ErrResolveFailed means both the Data API and the extraction fallback
	// failed for a query.
	ErrResolveFailed = errors.New("could not resolve track")

	// ErrDownloadFailed means extraction failed after the one allowed
	// fallback attempt.
	ErrDownloadFailed = errors.New("could not fetch media")

	// ErrTranscodeFailed means the merge/convert subprocess exited non-zero.
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrFormatUnavailable means the requested format id has no matching
	// stream. It is surfaced immediately, without a fallback.
	ErrFormatUnavailable = errors.New("requested format unavailable")
)
