package store

import (
	"database/sql"
	"fmt"

	"github.com/partsline/partsline/internal/models"
)

// scanQuote scans a Quote from sql.Rows.
func scanQuote(rows *sql.Rows) (models.Quote, error) {
	var q models.Quote
	if err := rows.Scan(&q.CallSID, &q.Items, &q.Total, &q.Time); err != nil {
		return q, fmt.Errorf("scan quote failed: %w", err)
	}
	return q, nil
}
