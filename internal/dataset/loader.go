// Package dataset loads the static JSON collections the seeder starts from.
package dataset

import (
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// LoadBooks reads the flat book and author collection.
func LoadBooks(path string) ([]SourceBook, error) {
	return loadCollection[SourceBook](path)
}

// LoadBranches reads the branch collection.
func LoadBranches(path string) ([]SourceBranch, error) {
	return loadCollection[SourceBranch](path)
}

// LoadUsers reads the user collection.
func LoadUsers(path string) ([]SourceUser, error) {
	return loadCollection[SourceUser](path)
}

func loadCollection[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	records, err := decodeCollection[T](raw)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return records, nil
}

func decodeCollection[T any](raw []byte) ([]T, error) {
	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	for index := range records {
		if err := recordValidator.Struct(&records[index]); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", catalog.ErrMissingField, index, err)
		}
	}
	return records, nil
}
