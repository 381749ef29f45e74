package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/lo"

	"github.com/pstlabs/pst-analyzer/config"
	"github.com/pstlabs/pst-analyzer/logging"
	"github.com/pstlabs/pst-analyzer/models"
	"github.com/pstlabs/pst-analyzer/storage"
)

// RecordStore is the slice of the metadata layer the pipeline needs.
// *models.Database implements it.
type RecordStore interface {
	CreateArtifactRecord(record *models.ArtifactRecord) (*models.ArtifactRecord, error)
}

// Ingestor runs one upload through validation, identity assignment, the blob
// write and metadata persistence, rolling back the blob when the record
// cannot be saved. It holds no mutable state, so concurrent ingestions are
// independent.
type Ingestor struct {
	Blobs         storage.BlobStore
	Records       RecordStore
	IDs           IdentityGenerator
	AcceptedTypes []string
	AllowEmpty    bool
}

func NewIngestor(cfg *config.Config, blobs storage.BlobStore, records RecordStore) *Ingestor {
	return &Ingestor{
		Blobs:         blobs,
		Records:       records,
		IDs:           UUIDGenerator{},
		AcceptedTypes: cfg.GetStringSlice("upload.accepted_types"),
		AllowEmpty:    cfg.GetBool("upload.allow_empty"),
	}
}

// Ingest validates the declared inputs, streams source to the blob store
// under a freshly generated id and persists the matching metadata record.
// description may be empty, meaning no description was supplied. On success
// both the blob and the record exist; on any failure other than
// OrphanBlobError, neither does.
func (s *Ingestor) Ingest(ctx context.Context, source io.Reader, declaredName string, description string, declaredMimeType string) (*models.ArtifactRecord, error) {
	log := logging.From(ctx)

	if err := s.validate(declaredName, declaredMimeType); err != nil {
		return nil, err
	}

	id := s.IDs.Generate()

	receipt, err := s.Blobs.Write(ctx, id, declaredName, source)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, &InvalidInputError{Reason: "file exceeds the maximum allowed size"}
		}
		log.Error("Blob write failed", "id", id, "filename", declaredName, "error", err)
		return nil, &StorageFailureError{Err: err}
	}

	if receipt.BytesWritten == 0 && !s.AllowEmpty {
		if delErr := s.Blobs.Delete(ctx, receipt.Location); delErr != nil {
			log.Error("Failed to delete empty artifact", "id", id, "location", receipt.Location, "error", delErr)
			return nil, &OrphanBlobError{ID: id, Err: delErr}
		}
		return nil, &InvalidInputError{Reason: "empty files are not accepted"}
	}

	metadata := map[string]string{
		models.MetaMimeType:     declaredMimeType,
		models.MetaOriginalName: declaredName,
	}
	if description != "" {
		metadata[models.MetaDescription] = description
	}

	record := &models.ArtifactRecord{
		ID:       id,
		Filename: declaredName,
		Filepath: receipt.Location,
		Size:     receipt.BytesWritten,
		Metadata: metadata,
	}

	persisted, err := s.Records.CreateArtifactRecord(record)
	if err != nil {
		log.Error("Metadata persistence failed, deleting blob", "id", id, "location", receipt.Location, "error", err)
		if delErr := s.Blobs.Delete(ctx, receipt.Location); delErr != nil {
			log.Error("Compensating blob delete failed", "id", id, "location", receipt.Location, "error", delErr)
			return nil, &OrphanBlobError{ID: id, Err: fmt.Errorf("record create failed (%v); compensating delete failed: %w", err, delErr)}
		}
		return nil, &MetadataFailureError{Err: err}
	}

	log.Info("Ingested artifact", "id", persisted.ID, "filename", persisted.Filename, "size", persisted.Size)
	return persisted, nil
}

// validate runs the deterministic checks that must pass before any I/O.
func (s *Ingestor) validate(declaredName string, declaredMimeType string) error {
	if declaredName == "" {
		return &InvalidInputError{Reason: "filename is required"}
	}
	if storage.SanitizeFilename(declaredName) == "" {
		return &InvalidInputError{Reason: fmt.Sprintf("filename %q is not usable", declaredName)}
	}
	if !lo.Contains(s.AcceptedTypes, declaredMimeType) {
		return &InvalidInputError{Reason: fmt.Sprintf("content type %q is not accepted", declaredMimeType)}
	}
	return nil
}

// LogIngestionError records a failed attempt with the severity the failure
// class deserves. Orphaned blobs are called out loudly so a reconciliation
// sweep can find them.
func LogIngestionError(log *slog.Logger, err error) {
	var orphan *OrphanBlobError
	if errors.As(err, &orphan) {
		log.Error("Upload left an orphaned blob, manual reconciliation needed", "id", orphan.ID, "error", err)
		return
	}
	var invalid *InvalidInputError
	if errors.As(err, &invalid) {
		log.Warn("Upload rejected", "reason", invalid.Reason)
		return
	}
	log.Error("Upload failed", "error", err)
}
