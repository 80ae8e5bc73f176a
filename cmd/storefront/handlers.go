package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/address"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/cart"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/catalog"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/coupon"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/httpx"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/order"
	"github.com/AbdullahAreanTKC/Multi-Vendor-Ecommerce/internal/payment"
)

// ---------- catalog ----------

func listProductsHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := catalog.Query{Q: c.Query("q"), Limit: limit, Offset: offset}

		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list products"})
			return
		}
		if items == nil {
			items = []catalog.Product{}
		}
		c.JSON(http.StatusOK, catalog.ListResponse{Q: q.Q, Limit: limit, Offset: offset, Items: items})
	}
}

func getProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func createProductHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req catalog.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Title == "" || req.Price == "" || req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "title, price and non-negative stock are required"})
			return
		}
		if _, err := decimal.NewFromString(req.Price); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
			return
		}
		p := &catalog.Product{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create product"})
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

func setProductStockHandler(repo catalog.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Stock *int `json:"stock"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Stock == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock is required"})
			return
		}
		if *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be non-negative"})
			return
		}
		if err := repo.SetStock(c.Request.Context(), c.Param("id"), *req.Stock); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update stock"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ---------- cart ----------

func getCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		state, err := carts.State(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load cart"})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func addToCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req cart.AddRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
			return
		}
		state, err := carts.Add(c.Request.Context(), uid, req.ProductID)
		if err != nil {
			if errors.Is(err, cart.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add to cart"})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func cartQuantityHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req cart.QuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		state, err := carts.Adjust(c.Request.Context(), uid, req.ID, req.Action)
		if err != nil {
			switch {
			case errors.Is(err, cart.ErrUnsupportedAction):
				c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported action"})
			case errors.Is(err, cart.ErrLineNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "cart line not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update cart"})
			}
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// ---------- addresses & checkout ----------

func listAddressesHandler(repo address.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		out, err := repo.ListByUser(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list addresses"})
			return
		}
		if out == nil {
			out = []address.Address{}
		}
		c.JSON(http.StatusOK, out)
	}
}

func createAddressHandler(repo address.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req address.CreateAddressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if req.Street == "" || req.City == "" || req.ZipCode == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "street, city and zip_code are required"})
			return
		}
		a := &address.Address{
			ID:      uuid.NewString(),
			UserID:  uid,
			Street:  req.Street,
			City:    req.City,
			State:   req.State,
			ZipCode: req.ZipCode,
			Mobile:  req.Mobile,
		}
		if err := repo.Create(c.Request.Context(), a); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save address"})
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

type checkoutRequest struct {
	AddressID string `json:"address_id"`
}

func checkoutHandler(carts *cart.Service, addresses address.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req checkoutRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.AddressID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "address_id is required"})
			return
		}
		if _, err := addresses.GetByID(c.Request.Context(), req.AddressID, uid); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}
		if err := carts.SetShippingAddress(c.Request.Context(), uid, req.AddressID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not select address"})
			return
		}
		state, err := carts.State(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load cart"})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func applyCouponHandler(coupons *coupon.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req coupon.ApplyRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
			return
		}
		discount, err := coupons.Apply(c.Request.Context(), uid, req.Code)
		if err != nil {
			switch {
			case errors.Is(err, coupon.ErrInvalidCode),
				errors.Is(err, coupon.ErrCapExceeded),
				errors.Is(err, coupon.ErrEmptyCart):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "could not apply coupon"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": req.Code, "discount": discount.StringFixed(2)})
	}
}

func removeCouponHandler(coupons *coupon.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		if err := coupons.Remove(c.Request.Context(), uid); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not remove coupon"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ---------- orders ----------

func placeOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		o, items, err := orders.Commit(c.Request.Context(), uid)
		if err != nil {
			if order.IsValidation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not place order"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": o, "items": items})
	}
}

func listOrdersHandler(reads order.Reads) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		out, err := reads.ListByUser(c.Request.Context(), uid, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
			return
		}
		if out == nil {
			out = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	}
}

func getOrderHandler(reads order.Reads) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		o, items, err := reads.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil || o.UserID != uid {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": o, "items": items})
	}
}

func getOrderItemsHandler(reads order.Reads) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		o, items, err := reads.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil || o.UserID != uid {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

// ---------- payments ----------

// payableAmount recomputes the discounted subtotal at intent-creation time;
// the coupon link on the cart is advisory only.
func payableAmount(c *gin.Context, carts *cart.Service, coupons coupon.Repository, uid string) (decimal.Decimal, error) {
	subtotal, err := carts.Subtotal(c.Request.Context(), uid)
	if err != nil {
		return decimal.Zero, err
	}
	state, err := carts.State(c.Request.Context(), uid)
	if err != nil {
		return decimal.Zero, err
	}
	if state.Coupon == "" {
		return subtotal, nil
	}
	cpn, err := coupons.GetByCode(c.Request.Context(), state.Coupon)
	if err != nil {
		return subtotal, nil // stale code: charge the full subtotal
	}
	discount, err := cpn.Discount(subtotal)
	if err != nil {
		return decimal.Zero, err
	}
	cap, err := cpn.Cap()
	if err != nil {
		return decimal.Zero, err
	}
	if discount.GreaterThan(cap) {
		return subtotal, nil
	}
	return subtotal.Sub(discount), nil
}

func createPaymentIntentHandler(carts *cart.Service, coupons coupon.Repository, provider *payment.Client, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		state, err := carts.State(c.Request.Context(), uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load cart"})
			return
		}
		if len(state.Items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}

		payable, err := payableAmount(c, carts, coupons, uid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute amount"})
			return
		}
		amount := payable.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

		// Cart snapshot rides along as intent metadata for reconciliation.
		snapshot, err := json.Marshal(state.Items)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not compute amount"})
			return
		}
		intent, err := provider.CreateIntent(c.Request.Context(), amount, currency, map[string]string{
			"user_id":       uid,
			"cart_products": string(snapshot),
		})
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"clientSecret": intent.ClientSecret, "intent_id": intent.ID})
	}
}

type paymentSuccessRequest struct {
	PaymentIntent string `json:"payment_intent"`
	Email         string `json:"email"`
	Name          string `json:"name"`
}

// paymentSuccessHandler commits the order first and stamps the intent after;
// the provider redirect is trusted to have confirmed the charge.
func paymentSuccessHandler(orders *order.Service, reads order.Reads, provider *payment.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := httpx.UserID(c)
		var req paymentSuccessRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.PaymentIntent == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing payment information."})
			return
		}

		o, items, err := orders.Commit(c.Request.Context(), uid)
		if err != nil {
			if order.IsValidation(err) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not place order"})
			return
		}

		customerID := ""
		if req.Email != "" {
			if cust, err := provider.FindOrCreateCustomer(c.Request.Context(), req.Email, req.Name); err == nil {
				customerID = cust.ID
			}
		}

		intent, err := provider.ModifyIntent(c.Request.Context(), req.PaymentIntent,
			map[string]string{"order_id": o.ID}, customerID)
		if err != nil {
			// The order already exists without confirmed payment metadata.
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable", "order": o})
			return
		}
		if err := reads.SetPaymentRef(c.Request.Context(), o.ID, intent.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record payment", "order": o})
			return
		}

		amountPaid := decimal.NewFromInt(intent.AmountReceived).Div(decimal.NewFromInt(100))
		c.JSON(http.StatusOK, gin.H{
			"order":       o,
			"items":       items,
			"amount_paid": amountPaid.StringFixed(2),
		})
	}
}
