package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newRateContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/points/balance", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/points/balance")
	return c
}

func TestRateKeyAnonymous(t *testing.T) {
	c := newRateContext(t)
	want := "rl:203.0.113.9:anon:GET /v1/points/balance"
	if got := rateKey("rl", c); got != want {
		t.Fatalf("rateKey = %q, want %q", got, want)
	}
}

func TestRateKeyUsesJWTSubject(t *testing.T) {
	c := newRateContext(t)
	// Numeric JWT claims arrive as float64 after parsing.
	c.Set("user_id", float64(42))
	want := "rl:203.0.113.9:42:GET /v1/points/balance"
	if got := rateKey("rl", c); got != want {
		t.Fatalf("rateKey = %q, want %q", got, want)
	}
}

func TestRateKeyStringSubject(t *testing.T) {
	c := newRateContext(t)
	c.Set("user_id", "svc-7")
	want := "rl:203.0.113.9:svc-7:GET /v1/points/balance"
	if got := rateKey("rl", c); got != want {
		t.Fatalf("rateKey = %q, want %q", got, want)
	}
}
