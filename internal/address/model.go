package address

import "time"

type Address struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	ZipCode   string    `json:"zip_code"`
	Mobile    string    `json:"mobile"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateAddressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Mobile  string `json:"mobile"`
}
