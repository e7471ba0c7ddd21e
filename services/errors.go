package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when no order has the requested id
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound is returned when no product has the requested id
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInUse is returned when deleting a product that order items still reference
	ErrProductInUse = errors.New("product is referenced by existing order items")
	// ErrImageStorageDisabled is returned by image operations when S3 is not configured
	ErrImageStorageDisabled = errors.New("image storage is not configured")
)

// MissingProductError reports the first order line whose product does not exist
type MissingProductError struct {
	ProductID int64
}

func (e *MissingProductError) Error() string {
	return fmt.Sprintf("Product with id %d does not exist", e.ProductID)
}

// ValidationError is a client error found before any data is written
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
