package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
)

// CalculationRepo appends an audit trail of computed formulas (dice
// expressions, workflow step math) distinct from internal/audit's
// mutation log: a calculation records an input/output pair for a named
// kind of computation, not an actor/target mutation.
type CalculationRepo struct{ db *sql.DB }

func NewCalculationRepo(db *sql.DB) *CalculationRepo { return &CalculationRepo{db: db} }

// Calculation is one row of the calculations table.
type Calculation struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func (r *CalculationRepo) Record(ctx context.Context, kind string, input, output map[string]any) (*Calculation, error) {
	in, err := marshalProps(input)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	out, err := marshalProps(output)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO calculations (kind, input, output, created_at) VALUES (?, ?, ?, ?)`,
		kind, in, out, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperr.Storage(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &Calculation{ID: id, Kind: kind, Input: input, Output: output, CreatedAt: now}, nil
}

func (r *CalculationRepo) ListByKind(ctx context.Context, kind string, limit int) ([]*Calculation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, input, output, created_at FROM calculations WHERE kind = ? ORDER BY id DESC LIMIT ?`,
		kind, limit)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, c)
	}
	return out, apperr.Storage(rows.Err())
}

func scanCalculation(row interface{ Scan(...any) error }) (*Calculation, error) {
	var c Calculation
	var input, output sql.NullString
	var createdAt string
	if err := row.Scan(&c.ID, &c.Kind, &input, &output, &createdAt); err != nil {
		return nil, err
	}
	if input.Valid && input.String != "" {
		_ = json.Unmarshal([]byte(input.String), &c.Input)
	}
	if output.Valid && output.String != "" {
		_ = json.Unmarshal([]byte(output.String), &c.Output)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		c.CreatedAt = t
	}
	return &c, nil
}
