package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = time.Hour

// JWTConfig selects the key material. Exactly one of PrivateKeyPEM,
// PublicKeyPEM or Secret is used, in that order of preference.
type JWTConfig struct {
	// Secret is the project's HS256 JWT secret.
	Secret string
	// PrivateKeyPEM signs and validates RS256 tokens.
	PrivateKeyPEM string
	// PublicKeyPEM only validates RS256 tokens.
	PublicKeyPEM string

	Issuer   string
	Audience string
	// Expiration is the lifetime of minted tokens; zero means one hour.
	Expiration time.Duration
	// Leeway tolerates clock skew between the auth provider and this service.
	Leeway time.Duration
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// JWTService validates bearer tokens and, when it holds a signing key,
// mints tokens for tooling and tests.
type JWTService struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	parser    *jwt.Parser
	issuer    string
	audience  string
	ttl       time.Duration
}

var _ TokenValidator = (*JWTService)(nil)

func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	svc := &JWTService{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.Expiration,
	}
	if svc.ttl == 0 {
		svc.ttl = defaultTokenTTL
	}

	switch {
	case cfg.PrivateKeyPEM != "":
		key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA private key: %w", err)
		}
		svc.method, svc.signKey, svc.verifyKey = jwt.SigningMethodRS256, key, &key.PublicKey
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
		}
		svc.method, svc.verifyKey = jwt.SigningMethodRS256, key
	case cfg.Secret != "":
		secret := []byte(cfg.Secret)
		svc.method, svc.signKey, svc.verifyKey = jwt.SigningMethodHS256, secret, secret
	default:
		return nil, errors.New("jwt configuration requires PrivateKeyPEM, PublicKeyPEM, or Secret")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{svc.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	svc.parser = jwt.NewParser(opts...)

	return svc, nil
}

// GenerateToken mints a token for userID. Production tokens come from the
// auth provider; this serves paymentctl and tests.
func (s *JWTService) GenerateToken(userID uuid.UUID, email, role string) (string, error) {
	if s.signKey == nil {
		return "", errors.New("cannot generate token: no private key configured (validation-only mode)")
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature, algorithm, expiry, issuer and audience,
// and requires the subject to be a user id. Anonymous-key tokens carry no
// subject and are rejected here.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.verifyKey, nil
	}); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

// LoadKeyFromFile reads a PEM-encoded key from a file path.
func LoadKeyFromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	return data, nil
}

// GenerateKeyPair returns a PEM-encoded 2048-bit RSA key pair for tests.
func GenerateKeyPair() (privateKeyPEM, publicKeyPEM []byte, err error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal public key: %w", err)
	}

	privateKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicKeyPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privateKeyPEM, publicKeyPEM, nil
}
