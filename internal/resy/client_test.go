package resy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		APIKey:   "key-123",
		Email:    "diner@example.com",
		Password: "hunter2",
		BaseURL:  srv.URL,
	})
}

func TestLoginStoresTokenForLaterCalls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/auth/password", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "diner@example.com", r.PostForm.Get("email"))
		assert.Equal(t, "hunter2", r.PostForm.Get("password"))
		_, _ = w.Write([]byte(`{"token":"tok-abc"}`))
	})
	mux.HandleFunc("/2/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-abc", r.Header.Get("x-resy-auth-token"))
		assert.Equal(t, "tok-abc", r.Header.Get("x-resy-universal-auth"))
		assert.Equal(t, `ResyAPI api_key="key-123"`, r.Header.Get("authorization"))
		_, _ = w.Write([]byte(`{"payment_methods":[{"id":42}]}`))
	})
	c := newTestClient(t, mux)

	ctx := context.Background()
	require.NoError(t, c.Login(ctx))

	u, err := c.User(ctx)
	require.NoError(t, err)
	require.Equal(t, []PaymentMethod{{ID: 42}}, u.PaymentMethods)
}

func TestLoginFailureSurfacesMessage(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid credentials"}`))
	}))

	err := c.Login(context.Background())
	require.ErrorContains(t, err, "invalid credentials")
}

func TestListSlots(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4/find", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "834", q.Get("venue_id"))
		assert.Equal(t, "2024-05-01", q.Get("day"))
		assert.Equal(t, "2", q.Get("party_size"))
		_, _ = w.Write([]byte(`{"results":{"venues":[{"slots":[
			{"date":{"start":"2024-05-01 18:00:00"},"config":{"type":"Dining Room","token":"cfg-1"},"shift":{"day":"2024-05-01"}},
			{"date":{"start":"2024-05-01 19:00:00"},"config":{"type":"Bar","token":"cfg-2"},"shift":{"day":"2024-05-01"}}
		]}]}}`))
	}))

	slots, err := c.ListSlots(context.Background(), 834, "2024-05-01", 2)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "cfg-1", slots[0].Config.Token)
	assert.Equal(t, "2024-05-01 19:00:00", slots[1].Date.Start)
	assert.Equal(t, "2024-05-01", slots[1].Shift.Day)
}

func TestListSlotsEmptyVenueListIsNotAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"venues":[]}}`))
	}))

	slots, err := c.ListSlots(context.Background(), 834, "2024-05-01", 2)
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestSlotDetails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/details", r.URL.Path)
		var body struct {
			Commit    int    `json:"commit"`
			ConfigID  string `json:"config_id"`
			PartySize int    `json:"party_size"`
			Day       string `json:"day"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body.Commit)
		assert.Equal(t, "cfg-1", body.ConfigID)
		assert.Equal(t, 2, body.PartySize)
		assert.Equal(t, "2024-05-01", body.Day)
		_, _ = w.Write([]byte(`{"book_token":{"value":"bt-xyz"}}`))
	}))

	det, err := c.SlotDetails(context.Background(), "cfg-1", 2, "2024-05-01")
	require.NoError(t, err)
	require.Equal(t, "bt-xyz", det.BookToken.Value)
}

func TestSlotDetailsMissingTokenIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	_, err := c.SlotDetails(context.Background(), "cfg-1", 2, "2024-05-01")
	require.ErrorContains(t, err, "no book token")
}

func TestBookSendsCommitForm(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/book", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bt-xyz", r.PostForm.Get("book_token"))
		assert.JSONEq(t, `{"id":42}`, r.PostForm.Get("struct_payment_method"))
		assert.Equal(t, "resy.com-venue-details", r.PostForm.Get("source_id"))
		_, _ = w.Write([]byte(`{"reservation_id":991,"resy_token":"rt-1"}`))
	}))

	res, err := c.Book(context.Background(), "bt-xyz", 42)
	require.NoError(t, err)
	assert.EqualValues(t, 991, res.ReservationID)
	assert.Equal(t, "rt-1", res.ResyToken)
	assert.JSONEq(t, `{"reservation_id":991,"resy_token":"rt-1"}`, string(res.Raw))
}

func TestBookFailureIsAnError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"slot no longer available"}`))
	}))

	_, err := c.Book(context.Background(), "bt-xyz", 42)
	require.ErrorContains(t, err, "slot no longer available")
}
