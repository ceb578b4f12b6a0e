package repo

import (
	"context"
	"database/sql"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type InventoryRepo struct{ db *sql.DB }

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

func (r *InventoryRepo) Get(ctx context.Context, characterID, itemID string) (*model.InventoryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT character_id, item_id, quantity, equipped, slot FROM inventory_items WHERE character_id = ? AND item_id = ?`,
		characterID, itemID)
	e, err := scanInventoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("inventoryEntry", characterID+":"+itemID)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return e, nil
}

func (r *InventoryRepo) ListByCharacter(ctx context.Context, characterID string) ([]*model.InventoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT character_id, item_id, quantity, equipped, slot FROM inventory_items WHERE character_id = ?`, characterID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	return scanInventoryRows(rows)
}

// HoldersOf answers "which characters own item X", used by callers to
// enforce world-unique-item rules orthogonally to this layer.
func (r *InventoryRepo) HoldersOf(ctx context.Context, itemID string) ([]*model.InventoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT character_id, item_id, quantity, equipped, slot FROM inventory_items WHERE item_id = ?`, itemID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	return scanInventoryRows(rows)
}

func scanInventoryRows(rows *sql.Rows) ([]*model.InventoryEntry, error) {
	var out []*model.InventoryEntry
	for rows.Next() {
		e, err := scanInventoryEntry(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, e)
	}
	return out, apperr.Storage(rows.Err())
}

// Upsert inserts the (characterID, itemID) entry or, if it exists, replaces
// its quantity with e.Quantity rather than adding to it. Equip
// state/slot is set verbatim, not merged, matching a deliberate equip/unequip
// call rather than a quantity-only pickup.
func (r *InventoryRepo) Upsert(ctx context.Context, e *model.InventoryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_items (character_id, item_id, quantity, equipped, slot) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(character_id, item_id) DO UPDATE SET quantity = excluded.quantity, equipped = excluded.equipped, slot = excluded.slot`,
		e.CharacterID, e.ItemID, e.Quantity, e.Equipped, nullStr(e.Slot))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// UpsertIncrementTx inserts or increments quantity by delta for
// (characterID, itemID) inside an existing transaction, used by quest-complete
// reward granting so the quest-log update and every reward item land atomically.
func UpsertIncrementTx(ctx context.Context, tx *sql.Tx, characterID, itemID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_items (character_id, item_id, quantity, equipped, slot) VALUES (?, ?, ?, 0, NULL)
		 ON CONFLICT(character_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
		characterID, itemID, delta)
	return err
}

func (r *InventoryRepo) Delete(ctx context.Context, characterID, itemID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE character_id = ? AND item_id = ?`, characterID, itemID)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// EquippedInSlot returns the entry (if any) currently equipped in slot for a
// character, enforcing invariant 6: only one equipped item per slot.
func (r *InventoryRepo) EquippedInSlot(ctx context.Context, characterID, slot string) (*model.InventoryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT character_id, item_id, quantity, equipped, slot FROM inventory_items WHERE character_id = ? AND slot = ? AND equipped = 1`,
		characterID, slot)
	e, err := scanInventoryEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return e, nil
}

// Transfer moves quantity units of itemID from srcCharacterID to
// dstCharacterID as a single atomic transaction: decrement-or-delete the
// source row, insert-or-increment the destination row. Inside the same
// transaction it rejects an insufficient source quantity and an equipped
// source stack with an Invariant error; it does not check that quantity is
// positive.
func (r *InventoryRepo) Transfer(ctx context.Context, srcCharacterID, dstCharacterID, itemID string, quantity int) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT character_id, item_id, quantity, equipped, slot FROM inventory_items WHERE character_id = ? AND item_id = ?`,
			srcCharacterID, itemID)
		src, err := scanInventoryEntry(row)
		if err != nil {
			return err
		}
		if src.Quantity < quantity {
			return apperr.Invariant("insufficient quantity to transfer", map[string]any{
				"have": src.Quantity, "want": quantity,
			})
		}
		if src.Equipped {
			return apperr.Invariant("cannot transfer an equipped item", map[string]any{"itemId": itemID})
		}

		if src.Quantity == quantity {
			if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE character_id = ? AND item_id = ?`,
				srcCharacterID, itemID); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx, `UPDATE inventory_items SET quantity = quantity - ? WHERE character_id = ? AND item_id = ?`,
				quantity, srcCharacterID, itemID); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO inventory_items (character_id, item_id, quantity, equipped, slot) VALUES (?, ?, ?, 0, NULL)
			 ON CONFLICT(character_id, item_id) DO UPDATE SET quantity = quantity + excluded.quantity`,
			dstCharacterID, itemID, quantity)
		return err
	})
}

func scanInventoryEntry(row interface{ Scan(...any) error }) (*model.InventoryEntry, error) {
	var e model.InventoryEntry
	var equipped int
	var slot sql.NullString
	if err := row.Scan(&e.CharacterID, &e.ItemID, &e.Quantity, &equipped, &slot); err != nil {
		return nil, err
	}
	e.Equipped = equipped != 0
	e.Slot = slot.String
	return &e, nil
}
