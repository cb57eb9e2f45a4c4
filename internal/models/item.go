package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Item struct {
	bun.BaseModel `bun:"table:items"`

	ID        string    `bun:"id,pk" json:"id"`
	SellerID  string    `bun:"seller_id,notnull" json:"seller_id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Price     float64   `bun:"price,notnull" json:"price"`
	Stock     int       `bun:"stock,notnull" json:"stock"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
