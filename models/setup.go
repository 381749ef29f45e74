package models

import (
	"fmt"
	"os"

	sloggorm "github.com/imdatngo/slog-gorm/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Database struct {
	GormDB *gorm.DB
}

var DB *Database

// ConnectDatabase opens the postgres connection from PST_DATABASE_URL, runs
// migrations and populates the package-level DB handle.
func ConnectDatabase() error {
	database, err := gorm.Open(postgres.Open(os.Getenv("PST_DATABASE_URL")), &gorm.Config{
		Logger:         sloggorm.New(),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.AutoMigrate(&ArtifactRecord{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	DB = &Database{GormDB: database}
	return nil
}
