// Package chargepoint implements the vendor-facing session manager and
// status fetcher on top of the ChargePoint account API.
package chargepoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/chargepoint-mqtt/core/charger"
	"github.com/kilianp07/chargepoint-mqtt/core/model"
	"github.com/kilianp07/chargepoint-mqtt/infra/logger"
)

const sessionHeader = "cp-session-token"

// session is the opaque handle returned to the poll loop. The token never
// leaves this package.
type session struct {
	id    string
	token string
}

func (s *session) ID() string { return s.id }

// Client talks to the ChargePoint account API. It implements both
// charger.SessionManager and charger.StatusFetcher so the session token can
// stay private. The poll loop is strictly sequential, so no locking guards
// the session or the cached device id.
type Client struct {
	cfg  Config
	http *http.Client
	log  logger.Logger

	sess     *session
	deviceID int
}

// NewClient creates a Client from the configuration.
func NewClient(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		log:      logger.New("chargepoint"),
		deviceID: cfg.DeviceID,
	}
}

// EnsureSession returns the live session, logging in first when none exists.
// Rejected credentials yield charger.ErrAuth; transport failures are
// transient and retried on the next cycle.
func (c *Client) EnsureSession(ctx context.Context) (charger.Session, error) {
	if c.sess != nil {
		return c.sess, nil
	}

	body, err := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.APIURL+"/v1/driver/account/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("login rejected (%d): %w", resp.StatusCode, charger.ErrAuth)
	default:
		return nil, fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode login response: %w", charger.ErrUnexpectedShape)
	}
	if out.SessionID == "" {
		return nil, fmt.Errorf("login response without session id: %w", charger.ErrUnexpectedShape)
	}

	c.sess = &session{id: uuid.NewString(), token: out.SessionID}
	c.log.Infof("logged in, session %s", c.sess.id)
	return c.sess, nil
}

// Invalidate discards the current session so the next EnsureSession performs
// a fresh login.
func (c *Client) Invalidate() {
	if c.sess != nil {
		c.log.Infof("session %s invalidated", c.sess.id)
	}
	c.sess = nil
}

// Fetch retrieves and normalizes the current charger status. A 401 from the
// API yields charger.ErrSessionExpired so the poll loop can re-authenticate.
func (c *Client) Fetch(ctx context.Context, sess charger.Session) (model.ChargerSnapshot, error) {
	s, ok := sess.(*session)
	if !ok {
		return model.ChargerSnapshot{}, fmt.Errorf("foreign session type %T", sess)
	}

	if c.deviceID == 0 {
		id, err := c.discoverCharger(ctx, s)
		if err != nil {
			return model.ChargerSnapshot{}, err
		}
		if id == 0 {
			// Account has no home chargers; report an idle charger rather
			// than failing the cycle, matching the bridge's historical
			// behavior.
			c.log.Warnf("no home chargers on account")
			return model.ChargerSnapshot{}, nil
		}
		c.deviceID = id
	}

	var status struct {
		Status  *string `json:"status"`
		PowerKW float64 `json:"power"`
	}
	path := fmt.Sprintf("/v1/account/home-chargers/%d/status", c.deviceID)
	if err := c.get(ctx, s, path, &status); err != nil {
		return model.ChargerSnapshot{}, err
	}
	if status.Status == nil {
		return model.ChargerSnapshot{}, fmt.Errorf("status field missing: %w", charger.ErrUnexpectedShape)
	}
	return model.NewChargerSnapshot(*status.Status, status.PowerKW), nil
}

// discoverCharger returns the first home charger on the account, or zero when
// there is none. The result is cached by the caller for the process lifetime.
func (c *Client) discoverCharger(ctx context.Context, s *session) (int, error) {
	var out struct {
		Chargers []int `json:"chargers"`
	}
	if err := c.get(ctx, s, "/v1/account/home-chargers", &out); err != nil {
		return 0, err
	}
	if len(out.Chargers) == 0 {
		return 0, nil
	}
	c.log.Infof("monitoring charger %d", out.Chargers[0])
	return out.Chargers[0], nil
}

func (c *Client) get(ctx context.Context, s *session, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(sessionHeader, s.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer drain(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("get %s: %w", path, charger.ErrSessionExpired)
	default:
		return fmt.Errorf("get %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, charger.ErrUnexpectedShape)
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
