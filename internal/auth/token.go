package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/qaboard/qa-service/internal/config"
	"github.com/qaboard/qa-service/internal/domain"
	apperrors "github.com/qaboard/qa-service/pkg/util/errorutil"
)

// TokenScheme is the prefix clients put in front of the signed token.
const TokenScheme = "Token "

// DefaultTokenTTL is the validity window stamped into every token.
const DefaultTokenTTL = 5 * time.Minute

// TokenProvider issues and validates identity tokens. Implementations are safe for
// concurrent use and immutable after construction.
type TokenProvider interface {
	Issue(identity domain.Identity) (string, error)
	Validate(presented string) (domain.Identity, error)
}

// Claims describes the JWT payload: sub, exp and the moderator flag.
type Claims struct {
	Moderator bool `json:"moderator"`
	jwt.RegisteredClaims
}

// JWTProvider implements TokenProvider for one signing method.
type JWTProvider struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	ttl       time.Duration
	now       func() time.Time
	parser    *jwt.Parser
}

// Option tweaks a JWTProvider at construction time.
type Option func(*JWTProvider)

// WithTTL overrides the token validity window.
func WithTTL(ttl time.Duration) Option {
	return func(p *JWTProvider) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(p *JWTProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewHMACProvider signs with a shared secret (HS256).
func NewHMACProvider(secret []byte, opts ...Option) (*JWTProvider, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac secret is empty")
	}
	key := append([]byte(nil), secret...)
	return newProvider(jwt.SigningMethodHS256, key, key, opts...), nil
}

// NewRSAProvider signs with an RSA private key (RS256) and verifies with its public half.
func NewRSAProvider(privatePEM, publicPEM []byte, opts ...Option) (*JWTProvider, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse rsa public key: %w", err)
	}
	return newProvider(jwt.SigningMethodRS256, priv, pub, opts...), nil
}

// NewEdDSAProvider signs with an Ed25519 private key.
func NewEdDSAProvider(privatePEM, publicPEM []byte, opts ...Option) (*JWTProvider, error) {
	priv, err := jwt.ParseEdPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse ed25519 private key: %w", err)
	}
	pub, err := jwt.ParseEdPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse ed25519 public key: %w", err)
	}
	return newProvider(jwt.SigningMethodEdDSA, priv, pub, opts...), nil
}

// NewTokenProvider builds the provider selected by configuration. Any error here must
// stop the process.
func NewTokenProvider(cfg config.AuthConfig) (*JWTProvider, error) {
	ttl := WithTTL(cfg.TokenTTL())
	switch cfg.SigningScheme {
	case config.SchemeHS256, "":
		return NewHMACProvider([]byte(cfg.Secret), ttl)
	case config.SchemeRS256:
		return NewRSAProvider(cfg.PrivateKeyPEM, cfg.PublicKeyPEM, ttl)
	case config.SchemeEdDSA:
		return NewEdDSAProvider(cfg.PrivateKeyPEM, cfg.PublicKeyPEM, ttl)
	default:
		return nil, fmt.Errorf("unsupported signing scheme %q", cfg.SigningScheme)
	}
}

func newProvider(method jwt.SigningMethod, signKey, verifyKey any, opts ...Option) *JWTProvider {
	p := &JWTProvider{
		method:    method,
		signKey:   signKey,
		verifyKey: verifyKey,
		ttl:       DefaultTokenTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(p.now),
	)
	return p
}

// Issue builds and signs a token for the identity.
func (p *JWTProvider) Issue(identity domain.Identity) (string, error) {
	claims := &Claims{
		Moderator: identity.IsModerator,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(p.now().Add(p.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(p.method, claims).SignedString(p.signKey)
	if err != nil {
		return "", apperrors.AuthTokenEncoderErr(err)
	}
	return token, nil
}

// Validate checks signature and expiry. Every failure is reported the same way so
// callers cannot tell which check tripped.
func (p *JWTProvider) Validate(presented string) (domain.Identity, error) {
	tokenStr := strings.TrimSpace(strings.TrimPrefix(presented, TokenScheme))
	if tokenStr == "" {
		return domain.Identity{}, apperrors.AuthTokenMissingOrInvalid()
	}

	claims := &Claims{}
	parsed, err := p.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return p.verifyKey, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return domain.Identity{}, apperrors.AuthTokenMissingOrInvalid()
	}

	return domain.Identity{ID: claims.Subject, IsModerator: claims.Moderator}, nil
}

// TTL reports the validity window of issued tokens.
func (p *JWTProvider) TTL() time.Duration {
	return p.ttl
}
