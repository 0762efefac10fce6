// Package catalog provides the product catalog and its search filter.
//
// The catalog is loaded once at startup from a JSON file and never mutated
// afterwards; Search is a pure predicate over the loaded items.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/partsline/partsline/internal/models"
)

// Load reads the catalog JSON file at path. A catalog that fails to load is
// an unrecoverable startup condition; callers should abort the process.
func Load(path string) ([]models.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	var items []models.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	slog.Info("catalog.Load: catalog loaded", "path", path, "items", len(items))
	return items, nil
}

// Search filters items against the extracted query fields. Every empty field
// is a wildcard. An item matches when any of its fitment records satisfies
// all three vehicle fields, and the item text (if given) is a
// case-insensitive substring of the title or part type. Result order is
// catalog insertion order; there is no ranking.
func Search(year, carMake, carModel, itemText string, items []models.Item) []models.Item {
	qYear := strings.TrimSpace(year)
	qMake := strings.ToLower(strings.TrimSpace(carMake))
	qModel := strings.ToLower(strings.TrimSpace(carModel))
	qItem := strings.ToLower(strings.TrimSpace(itemText))

	vehicleWildcard := qYear == "" && qMake == "" && qModel == ""

	return lo.Filter(items, func(it models.Item, _ int) bool {
		fitMatch := vehicleWildcard || lo.SomeBy(it.Fits, func(f models.Fitment) bool {
			yearMatch := qYear == "" || f.Year == qYear
			makeMatch := qMake == "" || strings.ToLower(f.Make) == qMake
			modelMatch := qModel == "" || strings.ToLower(f.Model) == qModel
			return yearMatch && makeMatch && modelMatch
		})
		itemMatch := qItem == "" ||
			strings.Contains(strings.ToLower(it.Title), qItem) ||
			strings.Contains(strings.ToLower(it.PartType), qItem)
		return fitMatch && itemMatch
	})
}
