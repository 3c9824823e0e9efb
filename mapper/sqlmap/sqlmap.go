// Package sqlmap provides a database/sql-backed mapper over a single table.
// Payload keys map one-to-one onto the configured column list, so loaded
// rows feed straight into the model loader.
package sqlmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cookieranger/transis/mapper"
)

// Mapper reads and writes raw payloads against one table
type Mapper struct {
	db      *sql.DB
	table   string
	columns []string
}

// New creates a mapper for the given table. The column list bounds which
// payload keys are read and written; it must include "id".
func New(db *sql.DB, table string, columns []string) *Mapper {
	return &Mapper{db: db, table: table, columns: columns}
}

// Query returns rows matching the options. Supported options: "where" (field
// map, exact match), "order" (column name), "limit" (int).
func (m *Mapper) Query(ctx context.Context, opts mapper.Options) ([]mapper.Payload, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(m.columns, ", "), m.table)

	var args []interface{}
	if where, ok := opts["where"].(map[string]interface{}); ok && len(where) > 0 {
		clauses := make([]string, 0, len(where))
		fields := make([]string, 0, len(where))
		for field := range where {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if !m.hasColumn(field) {
				return nil, fmt.Errorf("unknown column in where clause: %s", field)
			}
			clauses = append(clauses, fmt.Sprintf("%s = ?", field))
			args = append(args, where[field])
		}
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(clauses, " AND "))
	}
	if order, ok := opts["order"].(string); ok && order != "" {
		if !m.hasColumn(order) {
			return nil, fmt.Errorf("unknown column in order clause: %s", order)
		}
		fmt.Fprintf(&sb, " ORDER BY %s", order)
	}
	if limit, ok := opts["limit"].(int); ok && limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	rows, err := m.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.table, err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Get returns the row with the given id
func (m *Mapper) Get(ctx context.Context, id interface{}, opts mapper.Options) (mapper.Payload, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1",
		strings.Join(m.columns, ", "), m.table)

	rows, err := m.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", m.table, err)
	}
	defer rows.Close()

	payloads, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: %s id %v", mapper.ErrNotFound, m.table, id)
	}
	return payloads[0], nil
}

// Create inserts a row from the payload's known columns and returns the
// stored payload
func (m *Mapper) Create(ctx context.Context, data mapper.Payload) (mapper.Payload, error) {
	cols := make([]string, 0, len(m.columns))
	marks := make([]string, 0, len(m.columns))
	args := make([]interface{}, 0, len(m.columns))
	for _, col := range m.columns {
		value, ok := data[col]
		if !ok {
			continue
		}
		cols = append(cols, col)
		marks = append(marks, "?")
		args = append(args, value)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("create %s: payload has no known columns", m.table)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		m.table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := m.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("create %s: %w", m.table, err)
	}

	if id, ok := data["id"]; ok && id != nil {
		return m.Get(ctx, id, nil)
	}
	// Without a client-side id the caller keeps its local state
	return nil, nil
}

// Update writes the payload's known columns to the row with the given id
func (m *Mapper) Update(ctx context.Context, id interface{}, data mapper.Payload) (mapper.Payload, error) {
	sets := make([]string, 0, len(m.columns))
	args := make([]interface{}, 0, len(m.columns))
	for _, col := range m.columns {
		if col == "id" {
			continue
		}
		value, ok := data[col]
		if !ok {
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = ?", col))
		args = append(args, value)
	}
	if len(sets) == 0 {
		return m.Get(ctx, id, nil)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", m.table, strings.Join(sets, ", "))
	res, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", m.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s id %v", mapper.ErrNotFound, m.table, id)
	}
	return m.Get(ctx, id, nil)
}

// Delete removes the row with the given id
func (m *Mapper) Delete(ctx context.Context, id interface{}) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", m.table)
	res, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", m.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s id %v", mapper.ErrNotFound, m.table, id)
	}
	return nil
}

func (m *Mapper) hasColumn(name string) bool {
	for _, col := range m.columns {
		if col == name {
			return true
		}
	}
	return false
}

// scanRows scans all rows into payloads, converting []byte column values to
// strings so they stay JSON-compatible
func scanRows(rows *sql.Rows) ([]mapper.Payload, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []mapper.Payload
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		payload := make(mapper.Payload, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				payload[col] = string(b)
			} else {
				payload[col] = values[i]
			}
		}
		results = append(results, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// IsNotFound reports whether the error marks a missing row, including the
// raw driver sentinel
func IsNotFound(err error) bool {
	return mapper.IsNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
