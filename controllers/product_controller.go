package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fvorders/fvorders-api/logging"
	"github.com/fvorders/fvorders-api/services"
	"github.com/fvorders/fvorders-api/utils"
)

// ProductRequest represents the request body for creating or replacing a product
type ProductRequest struct {
	Name  string           `json:"name" binding:"required"`
	Price *decimal.Decimal `json:"price" binding:"required"`
}

// ProductController serves the catalog endpoints
type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// ListProducts handles GET /api/products
func (p *ProductController) ListProducts(c *gin.Context) {
	products, err := p.products.List(c.Request.Context())
	if err != nil {
		respondInternal(c, "DATABASE_ERROR", "Failed to retrieve products", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// CreateProduct handles POST /api/products
func (p *ProductController) CreateProduct(c *gin.Context) {
	input, ok := bindProduct(c)
	if !ok {
		return
	}

	product, err := p.products.Create(adminContext(c), input)
	if err != nil {
		p.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/products/:id
func (p *ProductController) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Product id must be a positive integer")
		return
	}
	input, ok := bindProduct(c)
	if !ok {
		return
	}

	product, err := p.products.Update(adminContext(c), id, input)
	if err != nil {
		p.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/products/:id
func (p *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Product id must be a positive integer")
		return
	}

	ctx := adminContext(c)
	if err := p.products.Delete(ctx, id); err != nil {
		p.handleError(c, err)
		return
	}
	logging.FromContext(ctx).Info("product deleted", "product_id", id)
	c.Status(http.StatusNoContent)
}

// UploadProductImage handles POST /api/products/:id/image - stores a PNG or JPEG for the product
func (p *ProductController) UploadProductImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Product id must be a positive integer")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "Multipart field \"image\" is required")
		return
	}

	product, err := p.products.AttachImage(adminContext(c), id, fileHeader)
	if err != nil {
		p.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func bindProduct(c *gin.Context) (services.ProductInput, bool) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name and price are required")
		return services.ProductInput{}, false
	}
	return services.ProductInput{Name: req.Name, Price: *req.Price}, true
}

func (p *ProductController) handleError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	var uploadErr *utils.FileUploadError

	switch {
	case errors.As(err, &validationErr):
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.Is(err, services.ErrProductNotFound):
		respondError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	case errors.Is(err, services.ErrProductInUse):
		respondError(c, http.StatusConflict, "PRODUCT_IN_USE", "Product is referenced by existing orders")
	case errors.Is(err, services.ErrImageStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, "IMAGE_STORAGE_DISABLED", "Image storage is not configured")
	default:
		respondInternal(c, "DATABASE_ERROR", "Failed to save product", err)
	}
}
