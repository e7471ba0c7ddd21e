package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/models"
)

// ProductInput is the full replacement state of a product
type ProductInput struct {
	Name  string
	Price decimal.Decimal
}

// Prices are stored as decimal(10,2).
const priceScale = 2

// MaxPrice is the first price the price column cannot hold.
var MaxPrice = decimal.New(1, 8)

// ProductPayload is the payload of product.created and product.updated events
type ProductPayload struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
}

// ProductDeletedPayload is the payload of a product.deleted event
type ProductDeletedPayload struct {
	ProductID uint `json:"product_id"`
}

// ProductService manages the catalog
type ProductService struct {
	db     *gorm.DB
	events EventPublisher
	images ImageService
}

// NewProductService creates the service. events and images may be nil;
// without images the image operations return ErrImageStorageDisabled.
func NewProductService(db *gorm.DB, events EventPublisher, images ImageService) *ProductService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &ProductService{db: db, events: events, images: images}
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Message: "name is required"}
	}
	if in.Price.IsNegative() {
		return &ValidationError{Message: "price must not be negative"}
	}
	if !in.Price.Equal(in.Price.Truncate(priceScale)) {
		return &ValidationError{Message: fmt.Sprintf("price must have at most %d decimal places", priceScale)}
	}
	if in.Price.GreaterThanOrEqual(MaxPrice) {
		return &ValidationError{Message: fmt.Sprintf("price must be less than %s", MaxPrice.String())}
	}
	return nil
}

// List returns every product ordered by id
func (s *ProductService) List(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for i := range products {
		s.decorate(ctx, &products[i])
	}
	return products, nil
}

// Get returns the product with the given id or ErrProductNotFound
func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	s.decorate(ctx, &product)
	return &product, nil
}

// Create adds a product to the catalog
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product := models.Product{Name: in.Name, Price: in.Price}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	publishEvent(ctx, s.events, TopicProductEvents, aggregateKey(product.ID), Event{
		Type:    EventProductCreated,
		Payload: ProductPayload{ProductID: product.ID, Name: product.Name, Price: product.Price},
	})
	return &product, nil
}

// Update replaces name and price of an existing product
func (s *ProductService) Update(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(product).Updates(map[string]any{
		"name":  in.Name,
		"price": in.Price,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	if product, err = s.Get(ctx, id); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.events, TopicProductEvents, aggregateKey(product.ID), Event{
		Type:    EventProductUpdated,
		Payload: ProductPayload{ProductID: product.ID, Name: product.Name, Price: product.Price},
	})
	return product, nil
}

// Delete removes a product. Deleting a missing product is not an error;
// deleting one that order items reference returns ErrProductInUse.
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	var imageKey *string
	deleted := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return fmt.Errorf("failed to count items of product %d: %w", id, err)
		}
		if refs > 0 {
			return ErrProductInUse
		}

		var product models.Product
		res := tx.Where("id = ?", id).Limit(1).Find(&product)
		if res.Error != nil {
			return fmt.Errorf("failed to load product %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		imageKey = product.ImageKey

		if err := tx.Delete(&models.Product{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete product %d: %w", id, err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}

	if imageKey != nil && s.images != nil {
		if err := s.images.DeleteImage(ctx, *imageKey); err != nil {
			logging.FromContext(ctx).Warn("failed to delete product image", "product_id", id, "key", *imageKey, "error", err)
		}
	}

	publishEvent(ctx, s.events, TopicProductEvents, aggregateKey(id), Event{
		Type:    EventProductDeleted,
		Payload: ProductDeletedPayload{ProductID: id},
	})
	return nil
}

// AttachImage uploads an image for the product and replaces any previous one
func (s *ProductService) AttachImage(ctx context.Context, id uint, fileHeader *multipart.FileHeader) (*models.Product, error) {
	if s.images == nil {
		return nil, ErrImageStorageDisabled
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := product.ImageKey

	key, err := s.images.UploadImage(ctx, id, fileHeader)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(product).Update("image_key", key).Error; err != nil {
		// the new object is orphaned unless removed
		_ = s.images.DeleteImage(ctx, key)
		return nil, fmt.Errorf("failed to save image of product %d: %w", id, err)
	}

	if previous != nil && *previous != key {
		if err := s.images.DeleteImage(ctx, *previous); err != nil {
			logging.FromContext(ctx).Warn("failed to delete previous product image", "product_id", id, "key", *previous, "error", err)
		}
	}

	product, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.events, TopicProductEvents, aggregateKey(product.ID), Event{
		Type:    EventProductUpdated,
		Payload: ProductPayload{ProductID: product.ID, Name: product.Name, Price: product.Price},
	})
	return product, nil
}

// decorate fills ImageURL; a URL failure leaves the product without one
func (s *ProductService) decorate(ctx context.Context, product *models.Product) {
	if s.images == nil || product.ImageKey == nil || *product.ImageKey == "" {
		return
	}
	url, err := s.images.GetImageURL(ctx, *product.ImageKey)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to generate product image url", "product_id", product.ID, "error", err)
		return
	}
	product.ImageURL = &url
}
