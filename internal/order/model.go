package order

import "time"

// Order is the immutable record produced by a commit; only the payment
// metadata may change afterwards.
type Order struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	// Shipping address snapshot, copied at commit time and decoupled from
	// later edits of the address book entry.
	ShipStreet string `json:"ship_street"`
	ShipCity   string `json:"ship_city"`
	ShipState  string `json:"ship_state"`
	ShipZip    string `json:"ship_zip"`
	ShipMobile string `json:"ship_mobile"`
	// NUMERIC -> string
	Subtotal        string    `json:"subtotal"`
	Discount        string    `json:"discount"`
	Total           string    `json:"total"`
	Paid            bool      `json:"paid"`
	PaymentIntentID *string   `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Item captures one cart line at the moment of purchase. TotalPrice is the
// unit price × quantity at commit time, decoupled from future price changes.
type Item struct {
	ID         string `json:"id"`
	OrderID    string `json:"order_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"total_price"`
}
