package models

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"
)

// ErrDuplicateID is returned when a record with the same id already exists.
// The store never overwrites; the caller decides whether to retry with a
// fresh identifier.
var ErrDuplicateID = errors.New("artifact record id already exists")

func (db *Database) CreateArtifactRecord(record *ArtifactRecord) (*ArtifactRecord, error) {
	existing := ArtifactRecord{}
	result := db.GormDB.Where("id = ?", record.ID).Take(&existing)
	if result.Error == nil {
		slog.Warn("Attempted to create artifact record with duplicate id", "id", record.ID)
		return nil, ErrDuplicateID
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("error checking for existing artifact record: %w", result.Error)
	}

	err := db.GormDB.Create(record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("error creating artifact record: %w", err)
	}

	slog.Debug("Created artifact record", "id", record.ID, "filename", record.Filename, "size", record.Size)
	return record, nil
}

func (db *Database) GetArtifactRecord(id string) (*ArtifactRecord, error) {
	record := ArtifactRecord{}
	result := db.GormDB.Where("id = ?", id).Take(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching artifact record: %w", result.Error)
	}
	return &record, nil
}

func (db *Database) ListArtifactRecords() ([]ArtifactRecord, error) {
	var records []ArtifactRecord
	err := db.GormDB.Order("created_at desc").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("error listing artifact records: %w", err)
	}
	return records, nil
}

func (db *Database) DeleteArtifactRecord(id string) error {
	err := db.GormDB.Where("id = ?", id).Delete(&ArtifactRecord{}).Error
	if err != nil {
		return fmt.Errorf("error deleting artifact record: %w", err)
	}
	return nil
}
