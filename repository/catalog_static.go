package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"shelfmatch/models"
)

// StaticCatalogRepository reads the bundled catalog document
type StaticCatalogRepository struct {
	path string
}

type staticCatalogDocument struct {
	Products []models.CatalogRow `json:"products"`
}

// NewStaticCatalogRepository creates a source for a {"products": [...]} document
func NewStaticCatalogRepository(path string) *StaticCatalogRepository {
	return &StaticCatalogRepository{path: path}
}

// Name identifies the source in snapshots and logs
func (r *StaticCatalogRepository) Name() string {
	return "static"
}

// LoadActive returns every row of the document. Rows carrying is_active=false are skipped
// so the document can mirror the remote table.
func (r *StaticCatalogRepository) LoadActive(ctx context.Context) ([]models.CatalogRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %v", r.path, err)
	}

	var doc staticCatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %v", r.path, err)
	}

	rows := make([]models.CatalogRow, 0, len(doc.Products))
	for _, row := range doc.Products {
		if active, ok := row["is_active"].(bool); ok && !active {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
