package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pstlabs/pst-analyzer/config"
	"github.com/pstlabs/pst-analyzer/models"
	"github.com/pstlabs/pst-analyzer/storage"
)

const pstMimeType = "application/vnd.ms-outlook"

type fakeBlobStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	writeErr  error
	deleteErr error
	writes    int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Write(ctx context.Context, id string, declaredName string, source io.Reader) (*storage.WriteReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	location := fmt.Sprintf("mem/%s-%s", id, storage.SanitizeFilename(declaredName))
	if _, exists := f.blobs[location]; exists {
		return nil, storage.ErrConflict
	}
	data, err := io.ReadAll(source)
	if err != nil {
		return nil, err
	}
	f.blobs[location] = data
	return &storage.WriteReceipt{Location: location, BytesWritten: int64(len(data))}, nil
}

func (f *fakeBlobStore) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[location]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, location string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.blobs[location]; !ok {
		return storage.ErrNotFound
	}
	delete(f.blobs, location)
	return nil
}

type fakeRecordStore struct {
	mu        sync.Mutex
	records   map[string]*models.ArtifactRecord
	createErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: map[string]*models.ArtifactRecord{}}
}

func (f *fakeRecordStore) CreateArtifactRecord(record *models.ArtifactRecord) (*models.ArtifactRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.records[record.ID]; exists {
		return nil, models.ErrDuplicateID
	}
	f.records[record.ID] = record
	return record, nil
}

type fixedIDs struct {
	id string
}

func (g fixedIDs) Generate() string { return g.id }

func newTestIngestor(blobs *fakeBlobStore, records *fakeRecordStore) *Ingestor {
	return &Ingestor{
		Blobs:         blobs,
		Records:       records,
		IDs:           UUIDGenerator{},
		AcceptedTypes: []string{pstMimeType},
		AllowEmpty:    true,
	}
}

func TestIngestZeroByteSuccess(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	record, err := ingestor.Ingest(context.Background(), strings.NewReader(""), "empty.pst", "", pstMimeType)
	assert.NoError(t, err)
	assert.NotNil(t, record)
	assert.Equal(t, int64(0), record.Size)
	assert.Equal(t, "empty.pst", record.Filename)
	assert.Equal(t, pstMimeType, record.Metadata[models.MetaMimeType])
	assert.Equal(t, "empty.pst", record.Metadata[models.MetaOriginalName])
	assert.NotContains(t, record.Metadata, models.MetaDescription)

	// blob and record both exist under the same id
	assert.Contains(t, record.Filepath, record.ID)
	assert.Contains(t, blobs.blobs, record.Filepath)
	assert.Contains(t, records.records, record.ID)
}

func TestIngestSizeAndNameFidelity(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	content := "ten  bytes"
	record, err := ingestor.Ingest(context.Background(), strings.NewReader(content), "My Mailbox (2024).pst", "quarterly export", pstMimeType)
	assert.NoError(t, err)
	assert.Equal(t, int64(len(content)), record.Size)
	// the declared name is stored verbatim; only the storage path is sanitized
	assert.Equal(t, "My Mailbox (2024).pst", record.Filename)
	assert.Equal(t, "quarterly export", record.Metadata[models.MetaDescription])
}

func TestIngestValidationShortCircuits(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	cases := []struct {
		name     string
		mimeType string
	}{
		{"", pstMimeType},
		{"..", pstMimeType},
		{"fine.pst", "text/html"},
		{"fine.pst", ""},
	}

	for _, tc := range cases {
		_, err := ingestor.Ingest(context.Background(), strings.NewReader("data"), tc.name, "", tc.mimeType)
		var invalid *InvalidInputError
		assert.ErrorAs(t, err, &invalid, "name=%q mime=%q", tc.name, tc.mimeType)
	}

	// validation failures never reach the blob store
	assert.Equal(t, 0, blobs.writes)
	assert.Empty(t, records.records)
}

func TestIngestStorageFailure(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.writeErr = errors.New("disk on fire")
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	_, err := ingestor.Ingest(context.Background(), strings.NewReader("0123456789"), "box.pst", "", pstMimeType)
	var storageErr *StorageFailureError
	assert.ErrorAs(t, err, &storageErr)

	// no record and no blob remain
	assert.Empty(t, records.records)
	assert.Empty(t, blobs.blobs)

	// a retry after the fault clears succeeds with no residual state in the way
	blobs.writeErr = nil
	record, err := ingestor.Ingest(context.Background(), strings.NewReader("0123456789"), "box.pst", "", pstMimeType)
	assert.NoError(t, err)
	assert.Equal(t, int64(10), record.Size)
}

func TestIngestTooLargeIsInvalidInput(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.writeErr = storage.ErrTooLarge
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	_, err := ingestor.Ingest(context.Background(), strings.NewReader("huge"), "big.pst", "", pstMimeType)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestIngestMetadataFailureDeletesBlob(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	records.createErr = errors.New("database unreachable")
	ingestor := newTestIngestor(blobs, records)

	_, err := ingestor.Ingest(context.Background(), strings.NewReader("0123456789"), "box.pst", "", pstMimeType)
	var metaErr *MetadataFailureError
	assert.ErrorAs(t, err, &metaErr)

	// compensating delete removed the blob written in the prior step
	assert.Empty(t, blobs.blobs)
	assert.Empty(t, records.records)

	records.createErr = nil
	record, err := ingestor.Ingest(context.Background(), strings.NewReader("0123456789"), "box.pst", "", pstMimeType)
	assert.NoError(t, err)
	assert.Contains(t, blobs.blobs, record.Filepath)
}

func TestIngestOrphanBlobSurfaced(t *testing.T) {
	blobs := newFakeBlobStore()
	blobs.deleteErr = errors.New("delete refused")
	records := newFakeRecordStore()
	records.createErr = errors.New("database unreachable")
	ingestor := &Ingestor{
		Blobs:         blobs,
		Records:       records,
		IDs:           fixedIDs{id: "deadbeef-0000-0000-0000-000000000000"},
		AcceptedTypes: []string{pstMimeType},
		AllowEmpty:    true,
	}

	_, err := ingestor.Ingest(context.Background(), strings.NewReader("data"), "box.pst", "", pstMimeType)
	var orphan *OrphanBlobError
	assert.ErrorAs(t, err, &orphan)
	assert.Equal(t, "deadbeef-0000-0000-0000-000000000000", orphan.ID)

	// the blob is still there, which is exactly what the error reports
	assert.Len(t, blobs.blobs, 1)
}

func TestIngestEmptyForbidden(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)
	ingestor.AllowEmpty = false

	_, err := ingestor.Ingest(context.Background(), strings.NewReader(""), "empty.pst", "", pstMimeType)
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)

	// the zero-length blob was cleaned up
	assert.Empty(t, blobs.blobs)
	assert.Empty(t, records.records)
}

func TestIngestDuplicateIdConflict(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)
	ingestor.IDs = fixedIDs{id: "deadbeef-0000-0000-0000-000000000001"}

	_, err := ingestor.Ingest(context.Background(), strings.NewReader("aa"), "box.pst", "", pstMimeType)
	assert.NoError(t, err)

	_, err = ingestor.Ingest(context.Background(), strings.NewReader("bb"), "box.pst", "", pstMimeType)
	var storageErr *StorageFailureError
	assert.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestIngestConcurrentUploadsIndependent(t *testing.T) {
	blobs := newFakeBlobStore()
	records := newFakeRecordStore()
	ingestor := newTestIngestor(blobs, records)

	const workers = 8
	results := make([]*models.ArtifactRecord, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			content := strings.Repeat("x", i+1)
			results[i], errs[i] = ingestor.Ingest(context.Background(),
				strings.NewReader(content), fmt.Sprintf("box-%d.pst", i), "", pstMimeType)
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < workers; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, int64(i+1), results[i].Size)
		assert.False(t, seen[results[i].ID], "duplicate id %s", results[i].ID)
		seen[results[i].ID] = true
	}
	assert.Len(t, records.records, workers)
}

func TestNewIngestorReadsConfig(t *testing.T) {
	cfg := config.New()
	ingestor := NewIngestor(cfg, newFakeBlobStore(), newFakeRecordStore())
	assert.Contains(t, ingestor.AcceptedTypes, pstMimeType)
	assert.True(t, ingestor.AllowEmpty)
}
