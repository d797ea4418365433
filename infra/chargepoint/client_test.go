package chargepoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/chargepoint-mqtt/core/charger"
)

type apiStub struct {
	logins        int
	statusCalls   int
	discoverCalls int

	loginStatus  int
	statusStatus int
	statusBody   string
	chargers     []int
}

func newAPIStub() *apiStub {
	return &apiStub{
		loginStatus:  http.StatusOK,
		statusStatus: http.StatusOK,
		statusBody:   `{"status":"CHARGING","power":7.2}`,
		chargers:     []int{101},
	}
}

func (a *apiStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/driver/account/login", func(w http.ResponseWriter, r *http.Request) {
		a.logins++
		if a.loginStatus != http.StatusOK {
			w.WriteHeader(a.loginStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sessionId": "tok-123"})
	})
	mux.HandleFunc("/v1/account/home-chargers", func(w http.ResponseWriter, r *http.Request) {
		a.discoverCalls++
		_ = json.NewEncoder(w).Encode(map[string][]int{"chargers": a.chargers})
	})
	mux.HandleFunc("/v1/account/home-chargers/101/status", func(w http.ResponseWriter, r *http.Request) {
		a.statusCalls++
		if r.Header.Get(sessionHeader) != "tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if a.statusStatus != http.StatusOK {
			w.WriteHeader(a.statusStatus)
			return
		}
		_, _ = w.Write([]byte(a.statusBody))
	})
	return mux
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		Username: "user@example.com",
		Password: "secret",
		APIURL:   srv.URL,
	})
}

func TestFetchHappyPath(t *testing.T) {
	stub := newAPIStub()
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	sess, err := c.EnsureSession(ctx)
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	snap, err := c.Fetch(ctx, sess)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !snap.Connected || snap.PowerWatts != 7200 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSessionReusedAcrossCycles(t *testing.T) {
	stub := newAPIStub()
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		sess, err := c.EnsureSession(ctx)
		if err != nil {
			t.Fatalf("ensure session: %v", err)
		}
		if _, err := c.Fetch(ctx, sess); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if stub.logins != 1 {
		t.Errorf("expected a single login, got %d", stub.logins)
	}
	if stub.discoverCalls != 1 {
		t.Errorf("expected a single discovery, got %d", stub.discoverCalls)
	}
}

func TestInvalidateForcesRelogin(t *testing.T) {
	stub := newAPIStub()
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	if _, err := c.EnsureSession(ctx); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	c.Invalidate()
	if _, err := c.EnsureSession(ctx); err != nil {
		t.Fatalf("ensure session after invalidate: %v", err)
	}
	if stub.logins != 2 {
		t.Errorf("expected two logins, got %d", stub.logins)
	}
}

func TestLoginRejectedIsAuthError(t *testing.T) {
	stub := newAPIStub()
	stub.loginStatus = http.StatusUnauthorized
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	_, err := newTestClient(srv).EnsureSession(context.Background())
	if !errors.Is(err, charger.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", err)
	}
}

func TestLoginServerErrorIsTransient(t *testing.T) {
	stub := newAPIStub()
	stub.loginStatus = http.StatusInternalServerError
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	_, err := newTestClient(srv).EnsureSession(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := charger.Kind(err); kind != "transient_error" {
		t.Errorf("expected transient classification, got %s", kind)
	}
}

func TestExpiredTokenIsSessionExpired(t *testing.T) {
	stub := newAPIStub()
	stub.statusStatus = http.StatusUnauthorized
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	sess, err := c.EnsureSession(ctx)
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	_, err = c.Fetch(ctx, sess)
	if !errors.Is(err, charger.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestMalformedStatusIsUnexpectedShape(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>maintenance</html>"},
		{"missing status field", `{"power":7.2}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newAPIStub()
			stub.statusBody = tc.body
			srv := httptest.NewServer(stub.handler())
			defer srv.Close()

			c := newTestClient(srv)
			ctx := context.Background()
			sess, err := c.EnsureSession(ctx)
			if err != nil {
				t.Fatalf("ensure session: %v", err)
			}
			_, err = c.Fetch(ctx, sess)
			if !errors.Is(err, charger.ErrUnexpectedShape) {
				t.Errorf("expected ErrUnexpectedShape, got %v", err)
			}
		})
	}
}

func TestMissingPowerDefaultsToZero(t *testing.T) {
	stub := newAPIStub()
	stub.statusBody = `{"status":"INUSE"}`
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	sess, _ := c.EnsureSession(ctx)
	snap, err := c.Fetch(ctx, sess)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !snap.Connected || snap.PowerWatts != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestNoChargersYieldsIdleSnapshot(t *testing.T) {
	stub := newAPIStub()
	stub.chargers = nil
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := newTestClient(srv)
	ctx := context.Background()
	sess, _ := c.EnsureSession(ctx)
	snap, err := c.Fetch(ctx, sess)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.Connected || snap.PowerWatts != 0 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestUnreachableAPIIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{Username: "u", Password: "p", APIURL: url})
	_, err := c.EnsureSession(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := charger.Kind(err); kind != "transient_error" {
		t.Errorf("expected transient classification, got %s", kind)
	}
}

func TestConfiguredDeviceSkipsDiscovery(t *testing.T) {
	stub := newAPIStub()
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	c := NewClient(Config{
		Username: "u",
		Password: "p",
		APIURL:   srv.URL,
		DeviceID: 101,
	})
	ctx := context.Background()
	sess, err := c.EnsureSession(ctx)
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if _, err := c.Fetch(ctx, sess); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if stub.discoverCalls != 0 {
		t.Errorf("discovery should be skipped, got %d calls", stub.discoverCalls)
	}
}
