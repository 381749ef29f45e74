package controllers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pstlabs/pst-analyzer/logging"
	"github.com/pstlabs/pst-analyzer/models"
	"github.com/pstlabs/pst-analyzer/services"
	"github.com/pstlabs/pst-analyzer/storage"
)

// multipart form overhead allowed on top of the artifact size ceiling
const formSlack = 1 << 20

const maxDescriptionBytes = 4096

type PstController struct {
	Ingestor *services.Ingestor
	Blobs    storage.BlobStore
	MaxBytes int64
}

// Upload accepts a multipart/form-data request with a "file" part and an
// optional "description" field and runs it through the ingestion pipeline.
// The file part is streamed straight to the blob store, never buffered
// wholesale. A description field must precede the file part to be picked up.
func (ctrl PstController) Upload(c *gin.Context) {
	log := logging.From(c.Request.Context())

	if ctrl.MaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.MaxBytes+formSlack)
	}

	reader, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart/form-data request required"})
		return
	}

	var description string
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warn("Malformed multipart request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed multipart request"})
			return
		}

		switch part.FormName() {
		case "description":
			data, err := io.ReadAll(io.LimitReader(part, maxDescriptionBytes))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "could not read description field"})
				return
			}
			description = string(data)
		case "file":
			record, err := ctrl.Ingestor.Ingest(c.Request.Context(), part,
				part.FileName(), description, part.Header.Get("Content-Type"))
			if err != nil {
				services.LogIngestionError(log, err)
				var invalid *services.InvalidInputError
				if errors.As(err, &invalid) {
					c.JSON(http.StatusBadRequest, gin.H{"error": invalid.Reason})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store uploaded file"})
				return
			}
			c.JSON(http.StatusCreated, record)
			return
		}
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "file part is required"})
}

func (ctrl PstController) List(c *gin.Context) {
	records, err := models.DB.ListArtifactRecords()
	if err != nil {
		logging.From(c.Request.Context()).Error("Failed to list artifact records", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (ctrl PstController) Get(c *gin.Context) {
	record, err := ctrl.fetchRecord(c)
	if record == nil || err != nil {
		return
	}
	c.JSON(http.StatusOK, record)
}

// Download streams the stored artifact bytes back to the client.
func (ctrl PstController) Download(c *gin.Context) {
	record, err := ctrl.fetchRecord(c)
	if record == nil || err != nil {
		return
	}

	rc, err := ctrl.Blobs.Open(c.Request.Context(), record.Filepath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// record exists but the blob is gone, which should never happen
			logging.From(c.Request.Context()).Error("Artifact record has no matching blob", "id", record.ID, "location", record.Filepath)
			c.JSON(http.StatusNotFound, gin.H{"error": "file contents not found"})
			return
		}
		logging.From(c.Request.Context()).Error("Failed to open artifact", "id", record.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	defer rc.Close()

	contentType := record.Metadata[models.MetaMimeType]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", storage.SanitizeFilename(record.Filename)),
	}
	c.DataFromReader(http.StatusOK, record.Size, contentType, rc, headers)
}

// fetchRecord resolves the :id path param to a record, writing the error
// response itself when the record cannot be served.
func (ctrl PstController) fetchRecord(c *gin.Context) (*models.ArtifactRecord, error) {
	id := c.Param("id")

	record, err := models.DB.GetArtifactRecord(id)
	if err != nil {
		logging.From(c.Request.Context()).Error("Failed to fetch artifact record", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return nil, err
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found: " + id})
		return nil, nil
	}
	return record, nil
}
