package resy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const defaultBaseURL = "https://api.resy.com"

// BookingSourceID is sent with every booking commit. Resy rejects commits
// that omit a recognized source.
const BookingSourceID = "resy.com-venue-details"

type Config struct {
	APIKey   string
	Email    string
	Password string

	// BaseURL overrides the production API host, used by tests.
	BaseURL string
}

// Client talks to the Resy consumer API using an email/password session.
// The auth token is refreshed by Login and read by every other call, so it
// sits behind a lock: the hourly re-auth job and venue refreshes may overlap.
type Client struct {
	hc   *http.Client
	cfg  Config
	base string

	mu        sync.RWMutex
	authToken string
}

func New(cfg Config) *Client {
	base := defaultBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return &Client{
		hc:   &http.Client{Timeout: 10 * time.Second},
		cfg:  cfg,
		base: base,
	}
}

// Login exchanges the configured email/password for a fresh auth token.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{}
	form.Set("email", c.cfg.Email)
	form.Set("password", c.cfg.Password)

	status, body, err := c.do(ctx, http.MethodPost, "/3/auth/password", "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return err
	}
	if status >= 400 {
		return apiError("login", status, body)
	}
	var res struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("resy: decode login response: %w", err)
	}
	if res.Token == "" {
		return fmt.Errorf("resy: login response contained no token")
	}

	c.mu.Lock()
	c.authToken = res.Token
	c.mu.Unlock()
	return nil
}

// ListSlots returns the open slots for a venue on a given day. An empty
// day at the venue is a normal outcome and returns an empty slice.
func (c *Client) ListSlots(ctx context.Context, venueID int64, day string, partySize int) ([]Slot, error) {
	params := map[string]string{
		"venue_id":   strconv.FormatInt(venueID, 10),
		"day":        day,
		"party_size": strconv.Itoa(partySize),
		// deprecated but still required by the find endpoint
		"lat":  "0",
		"long": "0",
	}
	status, body, err := c.do(ctx, http.MethodGet, "/4/find?"+encodeQuery(params), "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, apiError("find", status, body)
	}
	var res struct {
		Results struct {
			Venues []struct {
				Slots []Slot `json:"slots"`
			} `json:"venues"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("resy: decode find response: %w", err)
	}
	if len(res.Results.Venues) == 0 {
		return nil, nil
	}
	return res.Results.Venues[0].Slots, nil
}

// SlotDetails resolves a slot's config token into a bookable token.
func (c *Client) SlotDetails(ctx context.Context, configID string, partySize int, day string) (SlotDetails, error) {
	payload, err := json.Marshal(struct {
		Commit    int    `json:"commit"`
		ConfigID  string `json:"config_id"`
		PartySize int    `json:"party_size"`
		Day       string `json:"day"`
	}{Commit: 1, ConfigID: configID, PartySize: partySize, Day: day})
	if err != nil {
		return SlotDetails{}, err
	}
	status, body, err := c.do(ctx, http.MethodPost, "/3/details", "application/json", payload)
	if err != nil {
		return SlotDetails{}, err
	}
	if status >= 400 {
		return SlotDetails{}, apiError("details", status, body)
	}
	var det SlotDetails
	if err := json.Unmarshal(body, &det); err != nil {
		return SlotDetails{}, fmt.Errorf("resy: decode details response: %w", err)
	}
	if det.BookToken.Value == "" {
		return SlotDetails{}, fmt.Errorf("resy: details response contained no book token")
	}
	return det, nil
}

// Book commits a reservation for a previously fetched book token.
func (c *Client) Book(ctx context.Context, bookToken string, paymentMethodID int64) (Reservation, error) {
	structPM, err := json.Marshal(struct {
		ID int64 `json:"id"`
	}{ID: paymentMethodID})
	if err != nil {
		return Reservation{}, err
	}
	form := url.Values{}
	form.Set("book_token", bookToken)
	form.Set("struct_payment_method", string(structPM))
	form.Set("source_id", BookingSourceID)

	status, body, err := c.do(ctx, http.MethodPost, "/3/book", "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return Reservation{}, err
	}
	if status >= 400 {
		return Reservation{}, apiError("book", status, body)
	}
	var r Reservation
	if err := json.Unmarshal(body, &r); err != nil {
		return Reservation{}, fmt.Errorf("resy: decode book response: %w", err)
	}
	r.Raw = append([]byte(nil), body...)
	return r, nil
}

// User fetches the authenticated account, including payment methods.
func (c *Client) User(ctx context.Context) (User, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/2/user", "", nil)
	if err != nil {
		return User{}, err
	}
	if status >= 400 {
		return User{}, apiError("user", status, body)
	}
	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return User{}, fmt.Errorf("resy: decode user response: %w", err)
	}
	return u, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("user-agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36")
	req.Header.Set("origin", "https://resy.com")
	req.Header.Set("referrer", "https://resy.com")
	req.Header.Set("x-origin", "https://resy.com")
	req.Header.Set("cache-control", "no-cache")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	req.Header.Set("authorization", fmt.Sprintf(`ResyAPI api_key="%s"`, c.cfg.APIKey))

	c.mu.RLock()
	token := c.authToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("x-resy-auth-token", token)
		req.Header.Set("x-resy-universal-auth", token)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func apiError(op string, status int, body []byte) error {
	var r struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &r)
	if r.Message != "" {
		return fmt.Errorf("resy: %s failed: %s (status=%d)", op, r.Message, status)
	}
	return fmt.Errorf("resy: %s failed (status=%d)", op, status)
}

func encodeQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return q.Encode()
}
