package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fvorders/fvorders-api/models"
	"github.com/fvorders/fvorders-api/services"
	"github.com/fvorders/fvorders-api/tests/testutil"
	"github.com/fvorders/fvorders-api/utils"
)

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestProductService_CreateAndList(t *testing.T) {
	db := testutil.NewTestDB(t)
	events := &testutil.RecordingPublisher{}
	svc := services.NewProductService(db, events, nil)

	for _, name := range []string{"Mango", "Kiwi"} {
		_, err := svc.Create(context.Background(), services.ProductInput{Name: name, Price: price("1.25")})
		require.NoError(t, err)
	}

	products, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Mango", products[0].Name)
	assert.Equal(t, "Kiwi", products[1].Name)
	assert.True(t, price("1.25").Equal(products[0].Price))
	assert.Nil(t, products[0].ImageURL)
	assert.Equal(t, []string{services.EventProductCreated, services.EventProductCreated}, events.Types())
}

func TestProductService_CreateValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := services.NewProductService(db, nil, nil)

	tests := []struct {
		name  string
		input services.ProductInput
	}{
		{"empty name", services.ProductInput{Name: "  ", Price: price("1")}},
		{"negative price", services.ProductInput{Name: "Mango", Price: price("-0.01")}},
		{"sub-cent price", services.ProductInput{Name: "Mango", Price: price("1.005")}},
		{"price out of range", services.ProductInput{Name: "Mango", Price: price("100000000")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			var verr *services.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}

	_, err := svc.Create(context.Background(), services.ProductInput{Name: "Free sample", Price: decimal.Zero})
	assert.NoError(t, err)

	top, err := svc.Create(context.Background(), services.ProductInput{Name: "Crate", Price: price("99999999.99")})
	require.NoError(t, err)
	assert.True(t, price("99999999.99").Equal(top.Price))

	trailing, err := svc.Create(context.Background(), services.ProductInput{Name: "Kiwi", Price: price("1.500")})
	require.NoError(t, err)
	assert.Equal(t, "1.5", trailing.Price.String())
}

func TestProductService_Update(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := services.NewProductService(db, nil, nil)
	created, err := svc.Create(context.Background(), services.ProductInput{Name: "Mango", Price: price("1.00")})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, services.ProductInput{Name: "Ripe Mango", Price: price("3.40")})
	require.NoError(t, err)
	assert.Equal(t, "Ripe Mango", updated.Name)
	assert.True(t, price("3.40").Equal(updated.Price))

	_, err = svc.Update(context.Background(), 999, services.ProductInput{Name: "x", Price: price("1")})
	assert.ErrorIs(t, err, services.ErrProductNotFound)
}

func TestProductService_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	events := &testutil.RecordingPublisher{}
	svc := services.NewProductService(db, events, nil)
	created, err := svc.Create(context.Background(), services.ProductInput{Name: "Mango", Price: price("1.00")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.NoError(t, svc.Delete(context.Background(), created.ID), "deleting twice is not an error")

	_, err = svc.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	assert.Equal(t, []string{services.EventProductCreated, services.EventProductDeleted}, events.Types())
}

func TestProductService_DeleteInUse(t *testing.T) {
	db := testutil.NewTestDB(t)
	products := services.NewProductService(db, nil, nil)
	orders := services.NewOrderService(db, nil, nil)
	created, err := products.Create(context.Background(), services.ProductInput{Name: "Mango", Price: price("1.00")})
	require.NoError(t, err)
	_, err = orders.PlaceOrder(context.Background(), services.PlaceOrderInput{
		Items: []services.OrderItemInput{{ProductID: int64(created.ID), Quantity: 1}},
	})
	require.NoError(t, err)

	err = products.Delete(context.Background(), created.ID)
	assert.ErrorIs(t, err, services.ErrProductInUse)

	var n int64
	require.NoError(t, db.Model(&models.Product{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestProductService_AttachImage(t *testing.T) {
	db := testutil.NewTestDB(t)
	s3 := services.NewMockS3Service()
	svc := services.NewProductService(db, nil, services.NewS3ImageService(s3))
	created, err := svc.Create(context.Background(), services.ProductInput{Name: "Mango", Price: price("1.00")})
	require.NoError(t, err)

	product, err := svc.AttachImage(context.Background(), created.ID, testutil.NewFileHeader(t, "mango.png", testutil.PNGBytes(64)))
	require.NoError(t, err)
	require.NotNil(t, product.ImageURL)
	assert.Contains(t, *product.ImageURL, "products/")
	require.Len(t, s3.Keys(), 1)
	firstKey := s3.Keys()[0]
	assert.Equal(t, "image/png", s3.ContentType(firstKey))

	_, err = svc.AttachImage(context.Background(), created.ID, testutil.NewFileHeader(t, "mango.jpg", testutil.JPEGBytes(64)))
	require.NoError(t, err)
	require.Len(t, s3.Keys(), 1, "previous image is replaced")
	assert.NotEqual(t, firstKey, s3.Keys()[0])

	listed, err := svc.List(context.Background())
	require.NoError(t, err)
	require.NotNil(t, listed[0].ImageURL)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, s3.Keys())
}

func TestProductService_AttachImageErrors(t *testing.T) {
	db := testutil.NewTestDB(t)

	disabled := services.NewProductService(db, nil, nil)
	_, err := disabled.AttachImage(context.Background(), 1, testutil.NewFileHeader(t, "a.png", testutil.PNGBytes(8)))
	assert.ErrorIs(t, err, services.ErrImageStorageDisabled)

	svc := services.NewProductService(db, nil, services.NewS3ImageService(services.NewMockS3Service()))
	_, err = svc.AttachImage(context.Background(), 404, testutil.NewFileHeader(t, "a.png", testutil.PNGBytes(8)))
	assert.ErrorIs(t, err, services.ErrProductNotFound)

	created, err := svc.Create(context.Background(), services.ProductInput{Name: "Mango", Price: price("1.00")})
	require.NoError(t, err)
	_, err = svc.AttachImage(context.Background(), created.ID, testutil.NewFileHeader(t, "a.gif", []byte("GIF89a")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Only .png, .jpg and .jpeg")

	_, err = svc.AttachImage(context.Background(), created.ID, testutil.NewFileHeader(t, "notes.png", []byte("not an image at all")))
	var uploadErr *utils.FileUploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "INVALID_FILE_FORMAT", uploadErr.Code)

	reloaded, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.ImageURL)
}
