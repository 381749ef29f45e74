package models

import (
	"time"
)

// Metadata keys stored alongside an artifact record. All of them are optional.
const (
	MetaDescription  = "description"
	MetaMimeType     = "mimetype"
	MetaOriginalName = "originalName"
)

// ArtifactRecord is the durable metadata row describing one stored PST
// artifact. The ID is shared with the blob's storage location so the two can
// be correlated and garbage-collected together.
type ArtifactRecord struct {
	ID        string            `gorm:"primaryKey;size:36" json:"id"`
	Filename  string            `json:"filename"`
	Filepath  string            `json:"filepath"`
	Size      int64             `json:"size"`
	Metadata  map[string]string `gorm:"serializer:json" json:"metadata"`
	CreatedAt time.Time         `json:"uploadedAt"`
}
