package services

import (
	"fmt"
)

// InvalidInputError means the request was rejected before any I/O took place
// (or on breaching the size ceiling mid-stream). User-correctable, never
// retried automatically.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// StorageFailureError means the blob write failed. No partial artifact
// remains, so the caller may safely retry the whole ingestion.
type StorageFailureError struct {
	Err error
}

func (e *StorageFailureError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageFailureError) Unwrap() error { return e.Err }

// MetadataFailureError means the metadata record could not be persisted after
// a successful blob write. The compensating blob delete has already run.
type MetadataFailureError struct {
	Err error
}

func (e *MetadataFailureError) Error() string {
	return fmt.Sprintf("metadata failure: %v", e.Err)
}

func (e *MetadataFailureError) Unwrap() error { return e.Err }

// OrphanBlobError means the metadata write failed and the compensating blob
// delete failed too: a blob with the given id is left on storage with no
// record pointing at it, and needs a reconciliation sweep to remove.
type OrphanBlobError struct {
	ID  string
	Err error
}

func (e *OrphanBlobError) Error() string {
	return fmt.Sprintf("orphaned blob %s: %v", e.ID, e.Err)
}

func (e *OrphanBlobError) Unwrap() error { return e.Err }
