package documents

import "errors"

var (
	// ErrDuplicate is returned by Ingest together with the existing record
	// when the content hash is already known. A conflict, not a failure.
	ErrDuplicate = errors.New("document already ingested")
	// ErrTooLarge indicates the upload exceeded the size ceiling.
	ErrTooLarge = errors.New("document exceeds size limit")
	// ErrEmpty indicates a zero-byte upload.
	ErrEmpty = errors.New("document is empty")
	// ErrNotFound indicates the requested document row does not exist.
	ErrNotFound = errors.New("document not found")
)
