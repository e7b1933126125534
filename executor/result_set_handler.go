package executor

import (
	"database/sql"
)

// DefaultResultSetHandler reads the first result set into rows, honouring
// RowBounds by skipping and truncating on the client.
type DefaultResultSetHandler struct {
	bounds RowBounds
}

func NewDefaultResultSetHandler(bounds RowBounds) *DefaultResultSetHandler {
	return &DefaultResultSetHandler{bounds: bounds}
}

func (h *DefaultResultSetHandler) HandleResultSets(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	for skipped := 0; skipped < h.bounds.Offset; skipped++ {
		if !rows.Next() {
			return []Row{}, rows.Err()
		}
	}

	limit := h.bounds.Limit
	if limit <= 0 {
		limit = NoRowLimit
	}
	result := []Row{}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for len(result) < limit && rows.Next() {
		for i := range values {
			values[i] = nil
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
