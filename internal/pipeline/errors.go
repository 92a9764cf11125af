package pipeline

import "errors"

// Error kinds a run can fail with. Callers match with errors.Is; the wrapped
// message carries the underlying cause.
var (
	// ErrStorageInit means the backing store was unreachable or unwritable
	// at startup. Fatal; no extraction happens.
	ErrStorageInit = errors.New("storage init failed")

	// ErrExtraction means the upstream API was unreachable or rejected the
	// request. Nothing was persisted; the run is safe to retry as-is.
	ErrExtraction = errors.New("extraction failed")

	// ErrPersistence means a write sub-transaction failed. That batch rolled
	// back; batches committed earlier in the same run stand.
	ErrPersistence = errors.New("persistence failed")
)
