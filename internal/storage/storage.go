package storage

import (
	"github.com/ppiankov/hdfhub/internal/models"
)

// Storage defines the interface for persisting execution records
type Storage interface {
	// SaveRecord stores a converted record and returns the file it was written to
	SaveRecord(conv models.Conversion) (string, error)

	// LoadRecord loads a record by file name
	LoadRecord(name string) (*models.ExecJSON, error)

	// ListRecords returns the file names of all stored records, sorted
	ListRecords() ([]string, error)
}
