package repository

import (
	"context"
	"database/sql"
	"fmt"

	"shelfmatch/models"

	"github.com/lib/pq"
)

// PostgresCatalogRepository reads the catalog table directly
type PostgresCatalogRepository struct {
	db    *sql.DB
	table string
}

// NewPostgresCatalogRepository creates a Postgres catalog source
func NewPostgresCatalogRepository(db *sql.DB, table string) *PostgresCatalogRepository {
	if table == "" {
		table = "products"
	}
	return &PostgresCatalogRepository{db: db, table: table}
}

// Name identifies the source in snapshots and logs
func (r *PostgresCatalogRepository) Name() string {
	return "postgres"
}

// catalogScan holds one scanned row; NULL columns stay absent from the resulting CatalogRow
type catalogScan struct {
	ID            sql.NullString
	Name          sql.NullString
	Brand         sql.NullString
	Category      sql.NullString
	Price         sql.NullFloat64
	Rating        sql.NullFloat64
	ReviewCount   sql.NullInt64
	ImageURL      sql.NullString
	ProductURL    sql.NullString
	Description   sql.NullString
	Badges        pq.StringArray
	Keywords      pq.StringArray
	CategoryHints pq.StringArray
	Availability  sql.NullString
}

// LoadActive returns all active rows ordered by id
func (r *PostgresCatalogRepository) LoadActive(ctx context.Context) ([]models.CatalogRow, error) {
	if r.db == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT id::text, name, brand, category, price, rating, review_count, image_url, product_url,
			description, badges, keywords, category_hints, availability
		FROM ` + pq.QuoteIdentifier(r.table) + `
		WHERE is_active = true
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %v", err)
	}
	defer rows.Close()

	var result []models.CatalogRow
	for rows.Next() {
		var s catalogScan
		err := rows.Scan(
			&s.ID, &s.Name, &s.Brand, &s.Category, &s.Price, &s.Rating, &s.ReviewCount,
			&s.ImageURL, &s.ProductURL, &s.Description,
			&s.Badges, &s.Keywords, &s.CategoryHints, &s.Availability,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %v", err)
		}
		result = append(result, s.toRow())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %v", err)
	}

	return result, nil
}

func (s catalogScan) toRow() models.CatalogRow {
	row := models.CatalogRow{}
	setString := func(key string, v sql.NullString) {
		if v.Valid {
			row[key] = v.String
		}
	}
	setStrings := func(key string, v pq.StringArray) {
		if v != nil {
			values := make([]interface{}, len(v))
			for i, s := range v {
				values[i] = s
			}
			row[key] = values
		}
	}

	setString("id", s.ID)
	setString("name", s.Name)
	setString("brand", s.Brand)
	setString("category", s.Category)
	if s.Price.Valid {
		row["price"] = s.Price.Float64
	}
	if s.Rating.Valid {
		row["rating"] = s.Rating.Float64
	}
	if s.ReviewCount.Valid {
		row["review_count"] = float64(s.ReviewCount.Int64)
	}
	setString("image_url", s.ImageURL)
	setString("product_url", s.ProductURL)
	setString("description", s.Description)
	setStrings("badges", s.Badges)
	setStrings("keywords", s.Keywords)
	setStrings("category_hints", s.CategoryHints)
	setString("availability", s.Availability)
	return row
}
