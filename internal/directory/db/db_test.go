package db_test

import (
	"context"
	"database/sql"
	"testing"

	"tradehub/internal/directory/db"
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

	_, err = bunDB.NewCreateTable().Model((*models.User)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create users table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestGetUserByID(t *testing.T) {
	directoryDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	user := models.User{ID: "u-1", Email: "u1@campus.edu", FullName: "User One"}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	assert.NoError(t, err)

	got, err := directoryDB.GetUserByID("u-1")
	assert.NoError(t, err)
	assert.Equal(t, "User One", got.FullName)

	got, err = directoryDB.GetUserByID("missing")
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestGetUsersByIDs(t *testing.T) {
	directoryDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	users := []models.User{
		{ID: "u-1", Email: "u1@campus.edu", FullName: "User One"},
		{ID: "u-2", Email: "u2@campus.edu", FullName: "User Two"},
	}
	_, err := bunDB.NewInsert().Model(&users).Exec(context.Background())
	assert.NoError(t, err)

	got, err := directoryDB.GetUsersByIDs([]string{"u-1", "u-2", "missing"})
	assert.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "User Two", got["u-2"].FullName)

	got, err = directoryDB.GetUsersByIDs(nil)
	assert.NoError(t, err)
	assert.Empty(t, got)
}
