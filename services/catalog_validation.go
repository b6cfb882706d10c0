package services

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strings"

	"shelfmatch/models"
)

// ValidationMode selects how catalog rows are checked
type ValidationMode string

const (
	// ValidationStrict requires every field with the right type; any defect fails the load
	ValidationStrict ValidationMode = "strict"
	// ValidationLenient defaults missing optional fields and fails only on required ones
	ValidationLenient ValidationMode = "lenient"
)

// ParseValidationMode returns the mode for a config value
func ParseValidationMode(value string) (ValidationMode, error) {
	switch ValidationMode(strings.ToLower(strings.TrimSpace(value))) {
	case ValidationStrict, "":
		return ValidationStrict, nil
	case ValidationLenient:
		return ValidationLenient, nil
	}
	return "", fmt.Errorf("unknown catalog validation mode %q", value)
}

// field aliases, camelCase first
var (
	keyID            = []string{"id"}
	keyName          = []string{"name"}
	keyBrand         = []string{"brand"}
	keyCategory      = []string{"category"}
	keyPrice         = []string{"price"}
	keyRating        = []string{"rating"}
	keyReviewCount   = []string{"reviewCount", "review_count"}
	keyImageURL      = []string{"imageUrl", "image_url"}
	keyProductURL    = []string{"productUrl", "product_url"}
	keyDescription   = []string{"description"}
	keyBadges        = []string{"badges"}
	keyKeywords      = []string{"keywords"}
	keyCategoryHints = []string{"categoryHints", "category_hints"}
	keyAvailability  = []string{"availability"}
)

type rowDecoder struct {
	row   models.CatalogRow
	index int
	mode  ValidationMode
	err   error
}

// ValidateRows turns raw rows into catalog entries. The first defect fails the whole load
// with models.ErrMalformedCatalogRow; rows are never dropped one by one.
func ValidateRows(rows []models.CatalogRow, mode ValidationMode) ([]models.CatalogEntry, error) {
	entries := make([]models.CatalogEntry, 0, len(rows))
	seen := make(map[string]int, len(rows))

	for i, row := range rows {
		entry, err := decodeRow(row, i, mode)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("%w: row %d field %q: duplicate id %q (first seen in row %d)",
				models.ErrMalformedCatalogRow, i, "id", entry.ID, first)
		}
		seen[entry.ID] = i
		entries = append(entries, entry)
	}
	return entries, nil
}

func decodeRow(row models.CatalogRow, index int, mode ValidationMode) (models.CatalogEntry, error) {
	d := &rowDecoder{row: row, index: index, mode: mode}

	entry := models.CatalogEntry{
		ID:            d.id(),
		Name:          d.str(keyName, true),
		Brand:         d.str(keyBrand, false),
		Category:      d.str(keyCategory, true),
		Price:         d.number(keyPrice),
		Rating:        d.number(keyRating),
		ReviewCount:   d.integer(keyReviewCount),
		ImageURL:      d.str(keyImageURL, false),
		ProductURL:    d.str(keyProductURL, true),
		Description:   d.str(keyDescription, false),
		Badges:        d.list(keyBadges),
		Keywords:      d.list(keyKeywords),
		CategoryHints: d.list(keyCategoryHints),
		Availability:  d.availability(),
	}
	if d.err != nil {
		return models.CatalogEntry{}, d.err
	}

	if strings.TrimSpace(entry.Name) == "" {
		d.fail(keyName, "must not be empty")
	}
	if strings.TrimSpace(entry.Category) == "" {
		d.fail(keyCategory, "must not be empty")
	} else if strings.ContainsAny(entry.Category, "<>") {
		d.fail(keyCategory, "must not contain markup")
	}
	if parsed, err := url.Parse(entry.ProductURL); err != nil || parsed.Host == "" {
		d.fail(keyProductURL, "must be an absolute URL")
	} else if models.ItemIDFromURL(entry.ProductURL) == "" {
		d.fail(keyProductURL, "does not contain an item id")
	}
	if entry.Rating < 0 || entry.Rating > 5 {
		d.optionalFail(keyRating, "must be between 0 and 5")
		entry.Rating = 0
	}
	if entry.Price < 0 {
		d.optionalFail(keyPrice, "must not be negative")
		entry.Price = 0
	}
	if d.err != nil {
		return models.CatalogEntry{}, d.err
	}
	return entry, nil
}

func (d *rowDecoder) fail(keys []string, reason string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: row %d field %q: %s", models.ErrMalformedCatalogRow, d.index, keys[0], reason)
	}
}

// optionalFail reports a defect in an optional field; lenient mode ignores it
func (d *rowDecoder) optionalFail(keys []string, reason string) {
	if d.mode == ValidationStrict {
		d.fail(keys, reason)
	}
}

func (d *rowDecoder) lookup(keys []string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := d.row[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// id accepts a string or an integral number
func (d *rowDecoder) id() string {
	v, ok := d.lookup(keyID)
	if !ok {
		d.fail(keyID, "is required")
		return ""
	}
	switch id := v.(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			d.fail(keyID, "must not be empty")
		}
		return strings.TrimSpace(id)
	default:
		if n, ok := toFloat(v); ok && n == math.Trunc(n) {
			return fmt.Sprintf("%.0f", n)
		}
	}
	d.fail(keyID, "must be a string")
	return ""
}

func (d *rowDecoder) str(keys []string, required bool) string {
	v, ok := d.lookup(keys)
	if !ok {
		if required {
			d.fail(keys, "is required")
		} else {
			d.optionalFail(keys, "is required")
		}
		return ""
	}
	s, ok := v.(string)
	if !ok {
		if required {
			d.fail(keys, "must be a string")
		} else {
			d.optionalFail(keys, "must be a string")
		}
		return ""
	}
	return strings.TrimSpace(s)
}

func (d *rowDecoder) number(keys []string) float64 {
	v, ok := d.lookup(keys)
	if !ok {
		d.optionalFail(keys, "is required")
		return 0
	}
	n, ok := toFloat(v)
	if !ok {
		d.optionalFail(keys, "must be a number")
		return 0
	}
	return n
}

func (d *rowDecoder) integer(keys []string) int {
	v, ok := d.lookup(keys)
	if !ok {
		d.optionalFail(keys, "is required")
		return 0
	}
	n, ok := toFloat(v)
	if !ok || n != math.Trunc(n) || n < 0 {
		d.optionalFail(keys, "must be a non-negative integer")
		return 0
	}
	return int(n)
}

// list reads an optional string list; absence is never a defect
func (d *rowDecoder) list(keys []string) []string {
	v, ok := d.lookup(keys)
	if !ok {
		return nil
	}

	var items []interface{}
	switch list := v.(type) {
	case []interface{}:
		items = list
	case []string:
		return list
	default:
		d.optionalFail(keys, "must be a list of strings")
		return nil
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			d.optionalFail(keys, "must be a list of strings")
			return nil
		}
		if s = strings.TrimSpace(s); s != "" {
			values = append(values, s)
		}
	}
	return values
}

func (d *rowDecoder) availability() models.Availability {
	v, ok := d.lookup(keyAvailability)
	if !ok {
		return models.AvailabilityInStock
	}
	s, _ := v.(string)
	switch models.Availability(strings.ToLower(strings.TrimSpace(s))) {
	case models.AvailabilityInStock:
		return models.AvailabilityInStock
	case models.AvailabilityOutOfStock:
		return models.AvailabilityOutOfStock
	}
	d.optionalFail(keyAvailability, fmt.Sprintf("unknown value %v", v))
	return models.AvailabilityInStock
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
