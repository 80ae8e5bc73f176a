package cart

// Line is one user-product pairing pending order placement. At most one row
// exists per (user, product).
type Line struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	ProductID         string  `json:"product_id"`
	Quantity          int     `json:"quantity"`
	ShippingAddressID *string `json:"shipping_address_id,omitempty"`
	CouponCode        *string `json:"coupon_code,omitempty"`
	CouponApplied     bool    `json:"coupon_applied"`
}

// LineView is a cart line joined with its product for responses.
type LineView struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	Quantity   int    `json:"quantity"`
	UnitPrice  string `json:"unit_price"`
	LineTotal  string `json:"line_total"`
	OutOfStock bool   `json:"out_of_stock"`
}

// State is the full cart payload returned after every mutation.
type State struct {
	Items    []LineView `json:"items"`
	Subtotal string     `json:"subtotal"`
	Coupon   string     `json:"coupon,omitempty"`
}

type AddRequest struct {
	ProductID string `json:"product_id"`
}

// QuantityRequest mutates one line: action is increment, decrement or remove.
type QuantityRequest struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}
