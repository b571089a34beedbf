package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexworld/internal/config"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func validClaims() Claims {
	return Claims{
		UserID:    42,
		Username:  "ada",
		Email:     "ada@example.com",
		Activated: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "login.test",
			IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}
}

func testValidator(t *testing.T, key *ecdsa.PrivateKey) *JWTValidator {
	t.Helper()
	cfg := config.Default()
	cfg.JWT.Issuer = "login.test"
	v := NewJWTValidatorWithKey(cfg, &key.PublicKey, nil)
	v.now = func() time.Time { return testNow }
	return v
}

func TestValidateToken(t *testing.T) {
	key := testKey(t)
	v := testValidator(t, key)

	player, err := v.ValidateToken(context.Background(), signToken(t, key, validClaims()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if player.ID != "42" || player.Username != "ada" || player.Anonymous {
		t.Fatalf("unexpected player %+v", player)
	}

	badIssuer := validClaims()
	badIssuer.Issuer = "elsewhere"
	banned := validClaims()
	banned.Activated = -1
	inactive := validClaims()
	inactive.Activated = 0
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(testNow.Add(-time.Minute))

	for name, claims := range map[string]Claims{
		"issuer":   badIssuer,
		"banned":   banned,
		"inactive": inactive,
		"expired":  expired,
	} {
		if _, err := v.ValidateToken(context.Background(), signToken(t, key, claims)); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}

	other := testKey(t)
	if _, err := v.ValidateToken(context.Background(), signToken(t, other, validClaims())); err == nil {
		t.Fatalf("token signed by another key accepted")
	}
}

func TestRefreshPublicKeyFromURL(t *testing.T) {
	key := testKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pemData)
	}))
	defer ts.Close()

	cfg := config.Default()
	cfg.JWT.Issuer = "login.test"
	cfg.JWT.PublicKeyURL = ts.URL

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	v, err := NewJWTValidator(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	v.now = func() time.Time { return testNow }
	if _, err := v.ValidateToken(ctx, signToken(t, key, validClaims())); err != nil {
		t.Fatalf("validate with fetched key: %v", err)
	}

	if _, err := ParsePublicKey([]byte("garbage")); err == nil {
		t.Fatalf("expected PEM error")
	}
}

func TestWebSocketRequiresTokenWhenJWTEnabled(t *testing.T) {
	key := testKey(t)
	srv, _ := newTestServer(t, WithValidator(testValidator(t, key)))
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token=nonsense", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
}

func TestExtractToken(t *testing.T) {
	cases := []struct {
		name   string
		header map[string]string
		query  string
		want   string
	}{
		{"subprotocol", map[string]string{"Sec-WebSocket-Protocol": "access_token, abc"}, "", "abc"},
		{"bearer", map[string]string{"Authorization": "Bearer def"}, "", "def"},
		{"query", nil, "?token=ghi", "ghi"},
		{"other subprotocol", map[string]string{"Sec-WebSocket-Protocol": "chat, abc"}, "", ""},
		{"none", nil, "", ""},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws"+tc.query, nil)
		for k, v := range tc.header {
			r.Header.Set(k, v)
		}
		if got := extractToken(r); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
