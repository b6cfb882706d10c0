package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shelfmatch/models"
)

// CatalogSource loads every active product row
type CatalogSource interface {
	Name() string
	LoadActive(ctx context.Context) ([]models.CatalogRow, error)
}

// RESTCatalogRepository reads the catalog table through a PostgREST endpoint
type RESTCatalogRepository struct {
	baseURL string
	apiKey  string
	table   string
	client  *http.Client
}

// NewRESTCatalogRepository creates a REST catalog source for {baseURL}/rest/v1/{table}
func NewRESTCatalogRepository(baseURL, apiKey, table string, timeout time.Duration) *RESTCatalogRepository {
	if table == "" {
		table = "products"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTCatalogRepository{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		table:   table,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the source in snapshots and logs
func (r *RESTCatalogRepository) Name() string {
	return "rest"
}

// LoadActive fetches all rows flagged active
func (r *RESTCatalogRepository) LoadActive(ctx context.Context) ([]models.CatalogRow, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", r.baseURL, url.PathEscape(r.table), url.Values{
		"select":    {"*"},
		"is_active": {"eq.true"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("apikey", r.apiKey)
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var rows []models.CatalogRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode catalog rows: %v", err)
	}
	return rows, nil
}
