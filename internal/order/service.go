package order

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradehub/internal/models"
	"tradehub/internal/otp"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateOrders(orders []models.Order) error
	DeleteOrders(ids []string) error
	GetOrderByID(id string) (*models.Order, error)
	UpdateOrderOTP(id, hashedOTP string) error
	CompleteOrder(id string) (*models.Order, error)
	GetOrdersByBuyer(userID string) ([]models.Order, error)
	GetOrdersBySeller(userID string) ([]models.Order, error)
}

type Catalog interface {
	GetItemByID(id string) (*models.Item, error)
	GetItemsByIDs(ids []string) (map[string]models.Item, error)
	DecrementStock(itemID string, qty int) error
	RestoreStock(itemID string, qty int) error
}

type Directory interface {
	GetUsersByIDs(ids []string) (map[string]models.User, error)
}

type AttemptLimiter interface {
	TooManyFailures(orderID string) (bool, error)
	RecordFailure(orderID string) error
	Reset(orderID string) error
}

type KafkaPublisher interface {
	PublishOrderPlaced(order models.Order) error
	PublishOrderCompleted(order models.Order) error
}

type OrderService struct {
	DB        DBLayer
	Catalog   Catalog
	Directory Directory
	Attempts  AttemptLimiter
	Kafka     KafkaPublisher
	OTP       *otp.Issuer
}

func NewOrderService(db DBLayer, catalog Catalog, directory Directory, attempts AttemptLimiter, kafka KafkaPublisher, issuer *otp.Issuer) *OrderService {
	return &OrderService{
		DB:        db,
		Catalog:   catalog,
		Directory: directory,
		Attempts:  attempts,
		Kafka:     kafka,
		OTP:       issuer,
	}
}

// PlaceOrder turns a batch of cart lines into pending orders, one per line,
// each with its own delivery code. The batch resolves every item up front, so
// a single unknown item fails the whole request before anything is written.
// Orders are persisted all-or-nothing; stock is then reserved line by line
// through the catalog's conditional decrement, and a decrement failure rolls
// the batch back.
func (s *OrderService) PlaceOrder(buyerID string, lines []models.OrderLine) ([]models.PlacedOrder, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrderList
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: item %s", ErrInvalidQuantity, line.ItemID)
		}
	}

	// Resolve items first: authoritative seller_id comes from the catalog,
	// never from the caller.
	items := make([]*models.Item, len(lines))
	for i, line := range lines {
		item, err := s.Catalog.GetItemByID(line.ItemID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrItemNotFound, line.ItemID)
			}
			return nil, fmt.Errorf("failed to look up item %s: %w", line.ItemID, err)
		}
		items[i] = item
	}

	placements := make([]models.PlacedOrder, len(lines))
	orders := make([]models.Order, len(lines))
	for i, line := range lines {
		code, hashed, err := s.OTP.Issue()
		if err != nil {
			return nil, err
		}
		orders[i] = models.Order{
			ID:        uuid.NewString(),
			BuyerID:   buyerID,
			SellerID:  items[i].SellerID,
			ItemID:    line.ItemID,
			Quantity:  line.Quantity,
			Amount:    line.Amount,
			HashedOTP: hashed,
			Status:    "pending",
			CreatedAt: time.Now(),
		}
		placements[i] = models.PlacedOrder{Order: orders[i], OTP: code}
	}

	if err := s.DB.CreateOrders(orders); err != nil {
		return nil, fmt.Errorf("failed to persist order batch: %w", err)
	}

	// Reserve stock. On failure, compensate: restore what was already
	// decremented and delete the batch, so no order survives without its
	// reservation.
	for i, line := range lines {
		if err := s.Catalog.DecrementStock(line.ItemID, line.Quantity); err != nil {
			for j := 0; j < i; j++ {
				if rerr := s.Catalog.RestoreStock(lines[j].ItemID, lines[j].Quantity); rerr != nil {
					fmt.Printf("stock restore failed for item %s: %v\n", lines[j].ItemID, rerr)
				}
			}
			ids := make([]string, len(orders))
			for k, o := range orders {
				ids[k] = o.ID
			}
			if derr := s.DB.DeleteOrders(ids); derr != nil {
				fmt.Printf("order batch compensation failed: %v\n", derr)
			}
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", ErrInsufficientStock, line.ItemID)
			}
			return nil, fmt.Errorf("failed to decrement stock for item %s: %w", line.ItemID, err)
		}
	}

	for _, o := range orders {
		if err := s.Kafka.PublishOrderPlaced(o); err != nil {
			fmt.Printf("kafka publish error (order placed): %v\n", err)
		}
	}

	return placements, nil
}

// RegenerateOTP issues a fresh code for a pending order and overwrites the
// stored hash, invalidating the previous code. Seller-only; not idempotent.
func (s *OrderService) RegenerateOTP(callerID, orderID string) (string, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return "", err
	}
	if order.SellerID != callerID {
		return "", ErrNotOrderSeller
	}
	if order.Status == "completed" {
		return "", ErrOrderCompleted
	}

	code, hashed, err := s.OTP.Issue()
	if err != nil {
		return "", err
	}
	if err := s.DB.UpdateOrderOTP(orderID, hashed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return "", fmt.Errorf("failed to store regenerated otp: %w", err)
	}
	return code, nil
}

// VerifyDelivery completes the handoff: the seller submits the code the buyer
// read out, and a match flips the order to completed. A completed order never
// verifies again. Failed attempts count against a per-order lockout window.
func (s *OrderService) VerifyDelivery(callerID, orderID, candidate string) (*models.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != callerID {
		return nil, ErrNotOrderSeller
	}
	if order.Status == "completed" {
		return nil, ErrOrderCompleted
	}

	locked, err := s.Attempts.TooManyFailures(orderID)
	if err != nil {
		return nil, fmt.Errorf("attempt limiter unavailable: %w", err)
	}
	if locked {
		return nil, ErrTooManyAttempts
	}

	if !otp.Verify(candidate, order.HashedOTP) {
		if err := s.Attempts.RecordFailure(orderID); err != nil {
			fmt.Printf("failed to record otp attempt for order %s: %v\n", orderID, err)
		}
		return nil, ErrInvalidOTP
	}

	updated, err := s.DB.CompleteOrder(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race against another verification.
			return nil, ErrOrderCompleted
		}
		return nil, fmt.Errorf("failed to complete order %s: %w", orderID, err)
	}
	if err := s.Attempts.Reset(orderID); err != nil {
		fmt.Printf("failed to reset otp attempts for order %s: %v\n", orderID, err)
	}

	if err := s.Kafka.PublishOrderCompleted(*updated); err != nil {
		fmt.Printf("kafka publish error (order completed): %v\n", err)
	}
	return updated, nil
}

// FetchOrders returns the caller's two listings: orders they placed and orders
// against their items, with item titles and counterparty names resolved. The
// stored hash never appears in either view.
func (s *OrderService) FetchOrders(userID string) (*models.OrderViews, error) {
	bought, err := s.DB.GetOrdersByBuyer(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buyer orders: %w", err)
	}
	sold, err := s.DB.GetOrdersBySeller(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seller orders: %w", err)
	}

	itemIDs := make([]string, 0, len(bought)+len(sold))
	userIDs := []string{userID}
	for _, o := range bought {
		itemIDs = append(itemIDs, o.ItemID)
		userIDs = append(userIDs, o.SellerID)
	}
	for _, o := range sold {
		itemIDs = append(itemIDs, o.ItemID)
		userIDs = append(userIDs, o.BuyerID)
	}

	items, err := s.Catalog.GetItemsByIDs(itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve items: %w", err)
	}
	users, err := s.Directory.GetUsersByIDs(userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve users: %w", err)
	}

	return &models.OrderViews{
		Bought: buildViews(bought, items, users),
		Sold:   buildViews(sold, items, users),
	}, nil
}

// GetOrderForParticipant loads an order on behalf of its buyer or seller.
func (s *OrderService) GetOrderForParticipant(callerID, orderID string) (*models.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != callerID && order.SellerID != callerID {
		return nil, ErrNotOrderParticipant
	}
	return order, nil
}

func (s *OrderService) getOrder(orderID string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("failed to load order %s: %w", orderID, err)
	}
	return order, nil
}

func buildViews(orders []models.Order, items map[string]models.Item, users map[string]models.User) []models.OrderView {
	views := make([]models.OrderView, len(orders))
	for i, o := range orders {
		view := models.OrderView{
			ID:        o.ID,
			ItemID:    o.ItemID,
			BuyerID:   o.BuyerID,
			SellerID:  o.SellerID,
			Quantity:  o.Quantity,
			Amount:    o.Amount,
			Status:    o.Status,
			CreatedAt: o.CreatedAt,
		}
		if item, ok := items[o.ItemID]; ok {
			view.ItemTitle = item.Title
		}
		if buyer, ok := users[o.BuyerID]; ok {
			view.BuyerName = buyer.FullName
		}
		if seller, ok := users[o.SellerID]; ok {
			view.SellerName = seller.FullName
		}
		views[i] = view
	}
	return views
}
