package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string

	// BaseURL overrides the Twilio API host, used by tests.
	BaseURL string
}

// Texter sends SMS messages through the Twilio Messages API.
type Texter struct {
	hc   *http.Client
	cfg  TwilioConfig
	base string
}

func NewTexter(cfg TwilioConfig) *Texter {
	base := defaultTwilioBaseURL
	if cfg.BaseURL != "" {
		base = cfg.BaseURL
	}
	return &Texter{
		hc:   &http.Client{Timeout: 10 * time.Second},
		cfg:  cfg,
		base: base,
	}
}

func (t *Texter) SendText(ctx context.Context, message string) error {
	form := url.Values{}
	form.Set("From", t.cfg.From)
	form.Set("To", t.cfg.To)
	form.Set("Body", message)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.base, t.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)

	res, err := t.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("twilio: send failed (status=%d): %s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

// LogTexter stands in when Twilio is not configured; messages only land
// in the log.
type LogTexter struct {
	Log *zap.Logger
}

func (l LogTexter) SendText(_ context.Context, message string) error {
	l.Log.Info("text notification", zap.String("message", message))
	return nil
}
