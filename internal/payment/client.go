// Package payment wraps the third-party payment processor. The provider is
// an opaque collaborator: calls return an intent/customer identifier and a
// client secret, with no validation or retry of provider semantics.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type Intent struct {
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Status         string `json:"status"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type Client struct {
	HTTP      *http.Client
	BaseURL   string
	SecretKey string
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
	}
}

// CreateIntent opens a payment intent for amount in minor units.
func (c *Client) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var in Intent
	if err := c.post(ctx, "/payment_intents", form, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ModifyIntent updates an intent's metadata and, when non-empty, attaches a
// customer. Only payment metadata ever changes after creation.
func (c *Client) ModifyIntent(ctx context.Context, id string, metadata map[string]string, customerID string) (*Intent, error) {
	form := url.Values{}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	if customerID != "" {
		form.Set("customer", customerID)
	}

	var in Intent
	if err := c.post(ctx, "/payment_intents/"+url.PathEscape(id), form, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// FindOrCreateCustomer looks a customer up by email and creates one when the
// search comes back empty.
func (c *Client) FindOrCreateCustomer(ctx context.Context, email, name string) (*Customer, error) {
	q := url.Values{}
	q.Set("query", fmt.Sprintf("email:%q", email))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/customers/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment provider: customer search returned %s", res.Status)
	}
	var search struct {
		Data []Customer `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&search); err != nil {
		return nil, err
	}
	if len(search.Data) > 0 {
		return &search.Data[0], nil
	}

	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	form.Set("description", "Creating user for purchasing product")

	var cust Customer
	if err := c.post(ctx, "/customers", form, &cust); err != nil {
		return nil, err
	}
	return &cust, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("payment provider: %s returned %s", path, res.Status)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
