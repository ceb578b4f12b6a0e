package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

func (r *ItemRepo) Create(ctx context.Context, it *model.Item) error {
	props, err := marshalProps(it.Properties)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO items (id, name, type, weight, value, properties) VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.Name, string(it.Type), it.Weight, it.Value, props)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *ItemRepo) FindByID(ctx context.Context, id string) (*model.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, name, type, weight, value, properties FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("item", id)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return it, nil
}

func (r *ItemRepo) List(ctx context.Context) ([]*model.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, type, weight, value, properties FROM items ORDER BY name`)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, it)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *ItemRepo) Update(ctx context.Context, it *model.Item) error {
	props, err := marshalProps(it.Properties)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE items SET name=?, type=?, weight=?, value=?, properties=? WHERE id = ?`,
		it.Name, string(it.Type), it.Weight, it.Value, props, it.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("item", it.ID)
	}
	return nil
}

func (r *ItemRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func marshalProps(props map[string]any) (any, error) {
	if props == nil {
		return nil, nil
	}
	b, err := json.Marshal(props)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var props sql.NullString
	if err := row.Scan(&it.ID, &it.Name, &it.Type, &it.Weight, &it.Value, &props); err != nil {
		return nil, err
	}
	if props.Valid && props.String != "" {
		_ = json.Unmarshal([]byte(props.String), &it.Properties)
	}
	return &it, nil
}
