package db

import (
	"context"
	"database/sql"

	"tradehub/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetItemByID(id string) (*models.Item, error) {
	var item models.Item
	err := d.Bun.NewSelect().
		Model(&item).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) GetItemsByIDs(ids []string) (map[string]models.Item, error) {
	result := make(map[string]models.Item, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var items []models.Item
	err := d.Bun.NewSelect().
		Model(&items).
		Where("id IN (?)", bun.In(ids)).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		result[item.ID] = item
	}
	return result, nil
}

// DecrementStock reserves qty units of an item in one conditional update. The
// stock floor lives in the WHERE clause, so concurrent placements can never
// drive stock negative; sql.ErrNoRows means the item is gone or short on
// stock.
func (d *DB) DecrementStock(itemID string, qty int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("stock = stock - ?", qty).
		Where("id = ?", itemID).
		Where("stock >= ?", qty).
		Exec(context.Background())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RestoreStock puts qty units back. Only the placement compensation path uses
// it.
func (d *DB) RestoreStock(itemID string, qty int) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Item)(nil)).
		Set("stock = stock + ?", qty).
		Where("id = ?", itemID).
		Exec(context.Background())
	return err
}
