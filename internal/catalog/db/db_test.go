package db_test

import (
	"context"
	"database/sql"
	"testing"

	"tradehub/internal/catalog/db"
	"tradehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Item)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create items table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func seedItem(t *testing.T, bunDB *bun.DB, id string, stock int) {
	item := models.Item{ID: id, SellerID: "seller-1", Title: "Item " + id, Price: 10, Stock: stock}
	_, err := bunDB.NewInsert().Model(&item).Exec(context.Background())
	assert.NoError(t, err)
}

func stockOf(t *testing.T, catalogDB *db.DB, id string) int {
	item, err := catalogDB.GetItemByID(id)
	assert.NoError(t, err)
	return item.Stock
}

func TestGetItemByID(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedItem(t, bunDB, "item-1", 5)

	item, err := catalogDB.GetItemByID("item-1")
	assert.NoError(t, err)
	assert.Equal(t, "seller-1", item.SellerID)
	assert.Equal(t, 5, item.Stock)

	item, err = catalogDB.GetItemByID("missing")
	assert.Error(t, err)
	assert.Nil(t, item)
}

func TestGetItemsByIDs(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedItem(t, bunDB, "item-1", 5)
	seedItem(t, bunDB, "item-2", 3)

	items, err := catalogDB.GetItemsByIDs([]string{"item-1", "item-2", "missing"})
	assert.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 3, items["item-2"].Stock)

	items, err = catalogDB.GetItemsByIDs(nil)
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestDecrementStock(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedItem(t, bunDB, "item-1", 5)

	err := catalogDB.DecrementStock("item-1", 2)
	assert.NoError(t, err)
	assert.Equal(t, 3, stockOf(t, catalogDB, "item-1"))

	// Shortfall: the floor in the WHERE clause refuses the decrement and
	// stock is untouched.
	err = catalogDB.DecrementStock("item-1", 10)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 3, stockOf(t, catalogDB, "item-1"))

	err = catalogDB.DecrementStock("missing", 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDecrementToZero(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedItem(t, bunDB, "item-1", 2)

	assert.NoError(t, catalogDB.DecrementStock("item-1", 2))
	assert.Equal(t, 0, stockOf(t, catalogDB, "item-1"))

	assert.ErrorIs(t, catalogDB.DecrementStock("item-1", 1), sql.ErrNoRows)
}

func TestRestoreStock(t *testing.T) {
	catalogDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	seedItem(t, bunDB, "item-1", 3)

	assert.NoError(t, catalogDB.RestoreStock("item-1", 2))
	assert.Equal(t, 5, stockOf(t, catalogDB, "item-1"))
}
