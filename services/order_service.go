package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/models"
)

// OrderItemInput is one requested line of a new order.
// ProductID is signed so that any integer a client sends is reported back as missing.
type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// PlaceOrderInput carries the customer details and lines of a new order
type PlaceOrderInput struct {
	Name    string
	Address string
	Contact string
	Items   []OrderItemInput
}

// OrderPlacedPayload is the payload of an order.placed event
type OrderPlacedPayload struct {
	OrderID uint               `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
	Items   []OrderItemInput   `json:"items"`
}

// OrderStatusUpdatedPayload is the payload of an order.status_updated event
type OrderStatusUpdatedPayload struct {
	OrderID uint               `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

// OrderService places orders and answers order queries
type OrderService struct {
	db          *gorm.DB
	events      EventPublisher
	idempotency IdempotencyStore
}

// NewOrderService creates the service. events and idempotency may be nil.
func NewOrderService(db *gorm.DB, events EventPublisher, idempotency IdempotencyStore) *OrderService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &OrderService{db: db, events: events, idempotency: idempotency}
}

// PlaceOrder writes the order and all of its items in one transaction.
// Items are checked in input order; the first one naming a missing product
// aborts the transaction with a *MissingProductError and nothing is stored.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*models.Order, error) {
	return s.placeOrder(ctx, nil, in)
}

func (s *OrderService) placeOrder(ctx context.Context, idempotencyKey *string, in PlaceOrderInput) (*models.Order, error) {
	for i, item := range in.Items {
		if item.Quantity < 0 {
			return nil, &ValidationError{Message: fmt.Sprintf("items[%d].quantity must not be negative", i)}
		}
	}

	order := models.Order{
		Name:           in.Name,
		Address:        in.Address,
		Contact:        in.Contact,
		Status:         models.OrderStatusPending,
		IdempotencyKey: idempotencyKey,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range in.Items {
			exists, err := productExists(tx, item.ProductID)
			if err != nil {
				return err
			}
			if !exists {
				return &MissingProductError{ProductID: item.ProductID}
			}

			line := models.OrderItem{
				OrderID:   order.ID,
				ProductID: uint(item.ProductID),
				Quantity:  item.Quantity,
			}
			if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
				return fmt.Errorf("failed to insert order item for product %d: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := in.Items
	if items == nil {
		items = []OrderItemInput{}
	}
	publishEvent(ctx, s.events, TopicOrderEvents, aggregateKey(order.ID), Event{
		Type:    EventOrderPlaced,
		Payload: OrderPlacedPayload{OrderID: order.ID, Status: order.Status, Items: items},
	})

	return &order, nil
}

// PlaceOrderOnce is PlaceOrder guarded by a client supplied idempotency key.
// A key seen before returns the order it created and replayed=true; an empty
// key places the order unconditionally. The unique idempotency_key column is
// the source of truth, so concurrent requests with one key create one order.
// The idempotency store, when configured, only short-circuits known replays.
func (s *OrderService) PlaceOrderOnce(ctx context.Context, key string, in PlaceOrderInput) (order *models.Order, replayed bool, err error) {
	if key == "" {
		order, err = s.PlaceOrder(ctx, in)
		return order, false, err
	}
	if len(key) > MaxIdempotencyKeyLength {
		return nil, false, &ValidationError{Message: fmt.Sprintf("Idempotency-Key must be at most %d characters", MaxIdempotencyKeyLength)}
	}

	log := logging.FromContext(ctx)

	if s.idempotency != nil {
		orderID, found, err := s.idempotency.Lookup(ctx, key)
		switch {
		case err != nil:
			// the database still enforces the key
			log.Warn("idempotency lookup failed", "error", err)
		case found:
			existing, err := s.GetOrder(ctx, orderID)
			if err == nil {
				return existing, true, nil
			}
			if !errors.Is(err, ErrOrderNotFound) {
				return nil, false, err
			}
		}
	}

	order, err = s.placeOrder(ctx, &key, in)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		existing, err := s.orderByIdempotencyKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		s.remember(ctx, key, existing.ID)
		return existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.remember(ctx, key, order.ID)
	return order, false, nil
}

func (s *OrderService) orderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to load order for idempotency key: %w", err)
	}
	return &order, nil
}

func (s *OrderService) remember(ctx context.Context, key string, orderID uint) {
	if s.idempotency == nil {
		return
	}
	if err := s.idempotency.Remember(ctx, key, orderID); err != nil {
		logging.FromContext(ctx).Warn("idempotency remember failed", "order_id", orderID, "error", err)
	}
}

// GetOrder returns the order with the given id or ErrOrderNotFound
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order %d: %w", id, err)
	}
	return &order, nil
}

// ListOrders returns every order, newest (highest id) first
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status of an order. Any non-empty status is accepted.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, &ValidationError{Message: "status is required"}
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(order).Update("status", status).Error; err != nil {
		return nil, fmt.Errorf("failed to update status of order %d: %w", id, err)
	}
	if order, err = s.GetOrder(ctx, id); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.events, TopicOrderEvents, aggregateKey(order.ID), Event{
		Type:    EventOrderStatusUpdated,
		Payload: OrderStatusUpdatedPayload{OrderID: order.ID, Status: order.Status},
	})
	return order, nil
}

// ListOrderItems returns the items of one order with product names, in insertion order
func (s *OrderService) ListOrderItems(ctx context.Context, orderID uint) ([]models.OrderItemDetail, error) {
	details := make([]models.OrderItemDetail, 0)
	err := s.itemDetails(ctx).
		Where("order_items.order_id = ?", orderID).
		Order("order_items.id ASC").
		Scan(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list items of order %d: %w", orderID, err)
	}
	return details, nil
}

// ListAllOrderItems returns every order item with product names, newest order first
func (s *OrderService) ListAllOrderItems(ctx context.Context) ([]models.OrderItemDetail, error) {
	details := make([]models.OrderItemDetail, 0)
	err := s.itemDetails(ctx).
		Order("order_items.order_id DESC").
		Order("order_items.id ASC").
		Scan(&details).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return details, nil
}

func (s *OrderService) itemDetails(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("order_items").
		Select("order_items.id, order_items.order_id, order_items.product_id, products.name AS product_name, order_items.quantity").
		Joins("JOIN products ON products.id = order_items.product_id")
}

func productExists(tx *gorm.DB, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	var product models.Product
	res := tx.Select("id").Where("id = ?", id).Limit(1).Find(&product)
	if res.Error != nil {
		return false, fmt.Errorf("failed to check product %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func aggregateKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
