package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/models"
	"github.com/fvorders/fvorders-api/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// PlaceOrderRequest represents the request body for placing an order.
// Customer fields are free text and may be empty.
type PlaceOrderRequest struct {
	Name    string                    `json:"name"`
	Address string                    `json:"address"`
	Contact string                    `json:"contact"`
	Items   []services.OrderItemInput `json:"items"`
}

// PlaceOrderResponse is the body of a successful placement
type PlaceOrderResponse struct {
	ID     uint               `json:"id"`
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatusRequest represents the request body for changing an order status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// OrderController serves order placement and order queries
type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// PlaceOrder handles POST /api/orders
func (o *OrderController) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data")
		return
	}

	order, replayed, err := o.orders.PlaceOrderOnce(c.Request.Context(), c.GetHeader(IdempotencyKeyHeader), services.PlaceOrderInput{
		Name:    req.Name,
		Address: req.Address,
		Contact: req.Contact,
		Items:   req.Items,
	})
	if err != nil {
		var missing *services.MissingProductError
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &missing):
			respondErrorDetails(c, http.StatusBadRequest, "PRODUCT_NOT_FOUND", missing.Error(), gin.H{
				"product_id": missing.ProductID,
			})
		case errors.As(err, &validationErr):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
		default:
			respondInternal(c, "DATABASE_ERROR", "Failed to place order", err)
		}
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	c.JSON(status, PlaceOrderResponse{ID: order.ID, Status: order.Status})
}

// GetOrder handles GET /api/orders/:id
func (o *OrderController) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		// no order can have a non-numeric id
		respondOrderNotFound(c)
		return
	}

	order, err := o.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			respondOrderNotFound(c)
			return
		}
		respondInternal(c, "DATABASE_ERROR", "Failed to retrieve order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /api/orders - newest first
func (o *OrderController) ListOrders(c *gin.Context) {
	orders, err := o.orders.ListOrders(c.Request.Context())
	if err != nil {
		respondInternal(c, "DATABASE_ERROR", "Failed to retrieve orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// UpdateOrderStatus handles PUT /api/orders/:id/status
func (o *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Order id must be a positive integer")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}

	ctx := adminContext(c)
	order, err := o.orders.UpdateStatus(ctx, id, models.OrderStatus(req.Status))
	if err != nil {
		var validationErr *services.ValidationError
		switch {
		case errors.As(err, &validationErr):
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
		case errors.Is(err, services.ErrOrderNotFound):
			respondOrderNotFound(c)
		default:
			respondInternal(c, "DATABASE_ERROR", "Failed to update order status", err)
		}
		return
	}
	logging.FromContext(ctx).Info("order status updated", "order_id", order.ID, "status", order.Status)
	c.JSON(http.StatusOK, order)
}

// ListOrderItems handles GET /api/orders/:id/items
func (o *OrderController) ListOrderItems(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Order id must be a positive integer")
		return
	}

	items, err := o.orders.ListOrderItems(c.Request.Context(), id)
	if err != nil {
		respondInternal(c, "DATABASE_ERROR", "Failed to retrieve order items", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// ListAllOrderItems handles GET /api/order_items
func (o *OrderController) ListAllOrderItems(c *gin.Context) {
	items, err := o.orders.ListAllOrderItems(c.Request.Context())
	if err != nil {
		respondInternal(c, "DATABASE_ERROR", "Failed to retrieve order items", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func respondOrderNotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found")
}
