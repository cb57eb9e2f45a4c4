package db

import (
	"context"
	"database/sql"
	"time"

	"tradehub/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- WRITES ----------------

// CreateOrders inserts a placement batch in a single transaction: either every
// order of the batch is written or none of them are.
func (d *DB) CreateOrders(orders []models.Order) error {
	ctx := context.Background()
	return d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for i := range orders {
			if _, err := tx.NewInsert().Model(&orders[i]).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteOrders removes the given orders. Used only to compensate a placement
// whose stock decrement failed.
func (d *DB) DeleteOrders(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.Bun.NewDelete().
		Model((*models.Order)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(context.Background())
	return err
}

// UpdateOrderOTP replaces the stored hash, invalidating whatever code was
// issued before. Status is left untouched.
func (d *DB) UpdateOrderOTP(id, hashedOTP string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("hashed_otp = ?", hashedOTP).
		Where("id = ?", id).
		Exec(context.Background())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CompleteOrder flips a pending order to completed and returns the updated
// record.
func (d *DB) CompleteOrder(id string) (*models.Order, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", "completed").
		Where("id = ?", id).
		Where("status = ?", "pending").
		Exec(context.Background())
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, sql.ErrNoRows
	}
	return d.GetOrderByID(id)
}

// ---------------- READS ----------------

func (d *DB) GetOrderByID(id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrdersByBuyer(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("buyer_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (d *DB) GetOrdersBySeller(userID string) ([]models.Order, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("seller_id = ?", userID).
		Order("created_at DESC").
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// CountPendingOlderThan reports how many pending orders were created before
// the cutoff. There is no expiry path for them; the count is surfaced so the
// gap stays visible in the delivery audit log.
func (d *DB) CountPendingOlderThan(cutoff time.Time) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Order)(nil)).
		Where("status = ?", "pending").
		Where("created_at < ?", cutoff).
		Count(context.Background())
}
