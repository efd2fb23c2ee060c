package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultJWKSCacheTTL = 10 * time.Minute

var (
	errMissingKeyIdentifier = errors.New("token missing key identifier")
	errKeyNotFound          = errors.New("signing key not found in JWKS")
	errNoUsableKeys         = errors.New("jwks document contained no usable keys")
	ErrMissingJWKSURL       = errors.New("auth: jwks url required")
)

// JWKSConfig configures a remote JSON Web Key Set.
type JWKSConfig struct {
	URL        string
	HTTPClient *http.Client
	CacheTTL   time.Duration
	Logger     *zap.Logger
	Clock      func() time.Time
}

// JWKS fetches and caches the provider's signing keys. RSA and P-256 EC keys are
// supported.
type JWKS struct {
	client *resty.Client
	url    string
	logger *zap.Logger
	clock  func() time.Time
	cache  *jwksCache
}

// NewJWKS constructs a key set loader with validated configuration.
func NewJWKS(cfg JWKSConfig) (*JWKS, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, ErrMissingJWKSURL
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultJWKSCacheTTL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &JWKS{
		client: resty.NewWithClient(httpClient).SetHeader("Accept", "application/json"),
		url:    url,
		logger: logger,
		clock:  clock,
		cache:  &jwksCache{ttl: cacheTTL},
	}, nil
}

// Key returns the public key registered under keyID, refreshing the set on a miss.
func (s *JWKS) Key(ctx context.Context, keyID string) (any, error) {
	now := s.clock()
	if key := s.cache.get(keyID, now); key != nil {
		return key, nil
	}
	if err := s.refresh(ctx, now); err != nil {
		return nil, err
	}
	if key := s.cache.get(keyID, now); key != nil {
		return key, nil
	}
	return nil, errKeyNotFound
}

func (s *JWKS) refresh(ctx context.Context, fetchedAt time.Time) error {
	var document jwksDocument
	response, err := s.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&document).
		Get(s.url)
	if err != nil {
		return err
	}
	if response.StatusCode() != http.StatusOK {
		return fmt.Errorf("jwks request returned status %d", response.StatusCode())
	}

	keyMap := make(map[string]any, len(document.Keys))
	for _, key := range document.Keys {
		if key.Use != "" && key.Use != "sig" {
			continue
		}
		publicKey, err := key.publicKey()
		if err != nil {
			s.logger.Debug("skipping jwk", zap.String("kid", key.KeyID), zap.Error(err))
			continue
		}
		keyMap[key.KeyID] = publicKey
	}
	if len(keyMap) == 0 {
		return errNoUsableKeys
	}

	s.cache.store(keyMap, fetchedAt)
	return nil
}

type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]any
	expiresAt time.Time
	ttl       time.Duration
}

func (c *jwksCache) get(keyID string, now time.Time) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.keys == nil || now.After(c.expiresAt) {
		return nil
	}
	return c.keys[keyID]
}

func (c *jwksCache) store(keys map[string]any, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = keys
	c.expiresAt = now.Add(c.ttl)
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	KeyType string `json:"kty"`
	Alg     string `json:"alg"`
	KeyID   string `json:"kid"`
	Use     string `json:"use"`
	Modulus string `json:"n"`
	Exp     string `json:"e"`
	Curve   string `json:"crv"`
	X       string `json:"x"`
	Y       string `json:"y"`
}

func (k jwk) publicKey() (any, error) {
	switch k.KeyType {
	case "RSA":
		return k.toRSAPublicKey()
	case "EC":
		return k.toECPublicKey()
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.KeyType)
	}
}

const maxExponentBytes = 4

func (k jwk) toRSAPublicKey() (*rsa.PublicKey, error) {
	modulusBytes, err := base64.RawURLEncoding.DecodeString(k.Modulus)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus encoding: %w", err)
	}
	exponentBytes, err := base64.RawURLEncoding.DecodeString(k.Exp)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent encoding: %w", err)
	}
	if len(exponentBytes) == 0 {
		return nil, errors.New("missing exponent bytes")
	}
	if len(exponentBytes) > maxExponentBytes {
		return nil, errors.New("exponent too large")
	}

	exponent := 0
	for _, b := range exponentBytes {
		exponent = exponent<<8 + int(b)
	}
	if exponent == 0 {
		return nil, errors.New("invalid exponent value")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulusBytes),
		E: exponent,
	}, nil
}

func (k jwk) toECPublicKey() (*ecdsa.PublicKey, error) {
	if k.Curve != "P-256" {
		return nil, fmt.Errorf("unsupported curve %q", k.Curve)
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("invalid x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("invalid y coordinate: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
