package routes

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fvorders/fvorders-api/config"
	"github.com/fvorders/fvorders-api/controllers"
	"github.com/fvorders/fvorders-api/middleware"
	"github.com/fvorders/fvorders-api/services"
)

// Dependencies are the collaborators the HTTP layer is built from
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Logger   *slog.Logger
	Orders   *services.OrderService
	Products *services.ProductService
	Admins   *services.AdminAuthenticator
	Tokens   *services.TokenIssuer
}

// SetupRouter wires middleware, controllers and the admin gate onto a gin engine
func SetupRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Config == nil || deps.DB == nil {
		return nil, errors.New("router needs a config and a database")
	}
	if deps.Orders == nil || deps.Products == nil || deps.Admins == nil || deps.Tokens == nil {
		return nil, errors.New("router needs order, product and auth services")
	}

	requireAdmin, err := middleware.RequireAdmin(deps.Config)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(cors.New(corsConfig(deps.Config)))

	health := controllers.NewHealthController(deps.DB)
	auth := controllers.NewAuthController(deps.Admins, deps.Tokens)
	products := controllers.NewProductController(deps.Products)
	orders := controllers.NewOrderController(deps.Orders)

	router.GET("/", health.Root)

	api := router.Group("/api")
	{
		api.GET("/health", health.HealthCheck)
		api.GET("/database/status", health.DatabaseStatus)

		api.POST("/admin/login", auth.Login)

		api.GET("/products", products.ListProducts)
		api.POST("/products", requireAdmin, products.CreateProduct)
		api.PUT("/products/:id", requireAdmin, products.UpdateProduct)
		api.DELETE("/products/:id", requireAdmin, products.DeleteProduct)
		api.POST("/products/:id/image", requireAdmin, products.UploadProductImage)

		api.POST("/orders", orders.PlaceOrder)
		api.GET("/orders", requireAdmin, orders.ListOrders)
		api.GET("/orders/:id", orders.GetOrder)
		api.PUT("/orders/:id/status", requireAdmin, orders.UpdateOrderStatus)
		api.GET("/orders/:id/items", orders.ListOrderItems)

		api.GET("/order_items", orders.ListAllOrderItems)
	}

	return router, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", controllers.IdempotencyKeyHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	origins := cfg.CORSAllowedOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
