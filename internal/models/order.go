package models

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderLine is one line of a placement request as sent by the buyer's client.
type OrderLine struct {
	ItemID   string  `json:"item_id"`
	Quantity int     `json:"quantity"`
	Amount   float64 `json:"amount"`
}

type PlaceOrderRequest struct {
	Orders []OrderLine `json:"orders"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID        string    `bun:"id,pk" json:"id"`
	BuyerID   string    `bun:"buyer_id,notnull" json:"buyer_id"`
	SellerID  string    `bun:"seller_id,notnull" json:"seller_id"`
	ItemID    string    `bun:"item_id,notnull" json:"item_id"`
	Quantity  int       `bun:"quantity,notnull" json:"quantity"`
	Amount    float64   `bun:"amount,notnull" json:"amount"`
	HashedOTP string    `bun:"hashed_otp,notnull" json:"-"`
	Status    string    `bun:"status,notnull" json:"status"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"date"`
}

// PlacedOrder pairs a freshly created order with its plaintext delivery code.
// The code is relayed to the buyer exactly once and is not retrievable again.
type PlacedOrder struct {
	Order Order  `json:"order"`
	OTP   string `json:"otp"`
}

type VerifyDeliveryRequest struct {
	OrderID string `json:"order_id"`
	OTP     string `json:"otp"`
}

// OrderView is an order as shown in the buyer/seller listings: names resolved,
// hashed OTP omitted.
type OrderView struct {
	ID         string    `json:"id"`
	ItemID     string    `json:"item_id"`
	ItemTitle  string    `json:"item_title"`
	BuyerID    string    `json:"buyer_id"`
	BuyerName  string    `json:"buyer_name"`
	SellerID   string    `json:"seller_id"`
	SellerName string    `json:"seller_name"`
	Quantity   int       `json:"quantity"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"date"`
}

type OrderViews struct {
	Bought []OrderView `json:"orders"`
	Sold   []OrderView `json:"sellerOrders"`
}
