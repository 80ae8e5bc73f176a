package catalog

import "time"

type Product struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	// We store price as a string to avoid rounding errors (NUMERIC in Postgres)
	Price string `json:"price"`
	Stock int    `json:"stock"`
	// Derived from Stock but persisted redundantly; every stock write must
	// keep the two consistent.
	OutOfStock bool      `json:"out_of_stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListResponse is the paginated catalog browse payload.
type ListResponse struct {
	Q      string    `json:"q,omitempty"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
	Items  []Product `json:"items"`
}

type CreateProductRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}
