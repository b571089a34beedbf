package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/hexworld/internal/config"
	"github.com/gravitas-games/hexworld/pkg/models"
)

// JWTValidator handles JWT token validation
type JWTValidator struct {
	jwtCfg          config.JWTConfig
	blacklistPrefix string
	publicKey       *ecdsa.PublicKey
	keyMu           sync.RWMutex
	redis           *redis.Client
	httpClient      *http.Client
	now             func() time.Time
}

// Claims represents JWT token claims issued by the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator fetches the public key and keeps it refreshed until ctx
// is done. redisClient may be nil, which disables the blacklist check.
func NewJWTValidator(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (*JWTValidator, error) {
	validator := newValidator(cfg, redisClient)

	if err := validator.RefreshPublicKey(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	go validator.periodicKeyRefresh(ctx)

	log.Println("JWT validator initialized")
	return validator, nil
}

// NewJWTValidatorWithKey uses a fixed key instead of fetching one.
func NewJWTValidatorWithKey(cfg *config.Config, key *ecdsa.PublicKey, redisClient *redis.Client) *JWTValidator {
	validator := newValidator(cfg, redisClient)
	validator.publicKey = key
	return validator
}

func newValidator(cfg *config.Config, redisClient *redis.Client) *JWTValidator {
	return &JWTValidator{
		jwtCfg:          cfg.JWT,
		blacklistPrefix: cfg.Redis.BlacklistPrefix,
		redis:           redisClient,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		now:             time.Now,
	}
}

// RefreshPublicKey fetches the PEM-encoded ECDSA public key
func (v *JWTValidator) RefreshPublicKey(ctx context.Context) error {
	log.Printf("Fetching public key from %s", v.jwtCfg.PublicKeyURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwtCfg.PublicKeyURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}
	key, err := ParsePublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()

	log.Println("Public key refreshed successfully")
	return nil
}

// ParsePublicKey decodes a PEM PKIX ECDSA public key.
func ParsePublicKey(keyData []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(keyData)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

func (v *JWTValidator) periodicKeyRefresh(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(v.jwtCfg.PublicKeyRefreshHrs) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.RefreshPublicKey(ctx); err != nil {
				log.Printf("Failed to refresh public key: %v", err)
			}
		}
	}
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		return v.publicKey, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Issuer != v.jwtCfg.Issuer {
		return nil, fmt.Errorf("invalid issuer: expected %s, got %s", v.jwtCfg.Issuer, claims.Issuer)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(v.now()) {
		return nil, errors.New("token expired")
	}
	if claims.Activated == 0 {
		return nil, errors.New("user not activated")
	}
	if claims.Activated == -1 {
		return nil, errors.New("user is banned")
	}

	userID := strconv.FormatInt(claims.UserID, 10)
	if v.redis != nil {
		blacklisted, err := v.redis.Exists(ctx, v.blacklistPrefix+userID).Result()
		if err != nil {
			// a Redis outage must not lock everyone out
			log.Printf("Warning: Failed to check blacklist: %v", err)
		} else if blacklisted > 0 {
			return nil, errors.New("token is blacklisted")
		}
	}

	return &models.Player{
		ID:          userID,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}, nil
}

// extractToken reads a token from the WebSocket subprotocol header
// ("access_token, <token>"), a bearer Authorization header, or ?token=.
func extractToken(r *http.Request) string {
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		var parts []string
		for _, p := range strings.Split(protocols, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}
