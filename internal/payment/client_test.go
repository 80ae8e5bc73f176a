package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProviderServer fakes the processor's form-encoded API surface.
func newProviderServer(t *testing.T, existingCustomers []Customer) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/payment_intents", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		amount := r.PostFormValue("amount")
		json.NewEncoder(w).Encode(Intent{
			ID:           "pi_1",
			ClientSecret: "pi_1_secret",
			Amount:       mustInt(t, amount),
			Status:       "requires_payment_method",
		})
	})
	mux.HandleFunc("/payment_intents/", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		json.NewEncoder(w).Encode(Intent{
			ID:     r.URL.Path[len("/payment_intents/"):],
			Status: "succeeded",
		})
	})
	mux.HandleFunc("/customers/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(struct {
			Data []Customer `json:"data"`
		}{Data: existingCustomers})
	})
	mux.HandleFunc("/customers", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		json.NewEncoder(w).Encode(Customer{
			ID:    "cus_new",
			Email: r.PostFormValue("email"),
			Name:  r.PostFormValue("name"),
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func mustInt(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	require.NoError(t, err)
	return n
}

func TestCreateIntent(t *testing.T) {
	srv := newProviderServer(t, nil)
	cl := NewClient(srv.URL, "sk_test_123")

	in, err := cl.CreateIntent(context.Background(), 3000, "usd", map[string]string{"user_id": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", in.ID)
	assert.Equal(t, "pi_1_secret", in.ClientSecret)
	assert.Equal(t, int64(3000), in.Amount)
}

func TestModifyIntent(t *testing.T) {
	srv := newProviderServer(t, nil)
	cl := NewClient(srv.URL, "sk_test_123")

	in, err := cl.ModifyIntent(context.Background(), "pi_42", map[string]string{"order_id": "o1"}, "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_42", in.ID)
	assert.Equal(t, "succeeded", in.Status)
}

func TestFindOrCreateCustomer_FindsExisting(t *testing.T) {
	srv := newProviderServer(t, []Customer{{ID: "cus_9", Email: "a@b.c", Name: "A"}})
	cl := NewClient(srv.URL, "sk_test_123")

	cust, err := cl.FindOrCreateCustomer(context.Background(), "a@b.c", "A")
	require.NoError(t, err)
	assert.Equal(t, "cus_9", cust.ID)
}

func TestFindOrCreateCustomer_CreatesWhenMissing(t *testing.T) {
	srv := newProviderServer(t, nil)
	cl := NewClient(srv.URL, "sk_test_123")

	cust, err := cl.FindOrCreateCustomer(context.Background(), "new@b.c", "New Shopper")
	require.NoError(t, err)
	assert.Equal(t, "cus_new", cust.ID)
	assert.Equal(t, "new@b.c", cust.Email)
}

func TestCreateIntent_ProviderErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid amount"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	cl := NewClient(srv.URL, "sk_test_123")
	_, err := cl.CreateIntent(context.Background(), -1, "usd", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment provider")
}
