package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/address"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/cart"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/catalog"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/config"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/coupon"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/httpx"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/order"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/payment"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		log.Fatalf("postgres ping: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	catalogRepo := catalog.NewPGRepo(db)
	addressRepo := address.NewPGRepo(db)
	cartRepo := cart.NewPGRepo(db)
	cartSvc := cart.NewService(cartRepo)
	couponRepo := coupon.NewPGRepo(db)
	couponSvc := coupon.NewService(couponRepo, cartSvc, cartRepo)
	orderRepo := order.NewPGRepo(db)
	orderSvc := order.NewService(orderRepo)
	payClient := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpx.RequestID())
	r.Use(httpx.Logger())
	r.Use(httpx.RateLimit(httpx.NewRedisCounter(rdb), cfg.RateLimitRequestsPerMin))

	r.GET("/healthz", healthzHandler(db))

	r.GET("/products", listProductsHandler(catalogRepo))
	r.GET("/products/:id", getProductHandler(catalogRepo))
	r.POST("/products", createProductHandler(catalogRepo))
	r.PUT("/products/:id/stock", setProductStockHandler(catalogRepo))

	authed := r.Group("/", httpx.RequireUser())
	authed.GET("/cart", getCartHandler(cartSvc))
	authed.POST("/cart", addToCartHandler(cartSvc))
	authed.POST("/cart/quantity", cartQuantityHandler(cartSvc))

	authed.GET("/addresses", listAddressesHandler(addressRepo))
	authed.POST("/addresses", createAddressHandler(addressRepo))

	authed.POST("/checkout", checkoutHandler(cartSvc, addressRepo))
	authed.POST("/checkout/coupon", applyCouponHandler(couponSvc))
	authed.DELETE("/checkout/coupon", removeCouponHandler(couponSvc))

	authed.POST("/orders", placeOrderHandler(orderSvc))
	authed.GET("/orders", listOrdersHandler(orderRepo))
	authed.GET("/orders/:id", getOrderHandler(orderRepo))
	authed.GET("/orders/:id/items", getOrderItemsHandler(orderRepo))

	authed.POST("/payments/intent", createPaymentIntentHandler(cartSvc, couponRepo, payClient, cfg.Currency))
	authed.POST("/payments/success", paymentSuccessHandler(orderSvc, orderRepo, payClient))

	log.Printf("storefront listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func healthzHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		dbOK := db.Ping(c.Request.Context()) == nil
		status := "ok"
		code := http.StatusOK
		if !dbOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":     status,
			"db":         dbOK,
			"latency_ms": float64(time.Since(start).Microseconds()) / 1000.0,
		})
	}
}
