package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretLength is the smallest HS256 key accepted, in bytes.
const MinSecretLength = 32

// tokenTimePrecision is the resolution of iat and exp. Parsing runs at a finer
// precision so Decode can round float error in fractional NumericDates away.
const tokenTimePrecision = time.Millisecond

func init() {
	jwt.TimePrecision = time.Microsecond
}

var (
	// ErrInvalidToken covers malformed tokens, foreign algorithms and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed, correctly signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenConfig carries the key material and policy for a TokenService.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// TokenService encodes, decodes, validates and rotates session tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// Claims describes the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
}

// SignedToken is an encoded token together with the claims it carries.
type SignedToken struct {
	Value     string
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewTokenService validates cfg and builds a service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &TokenService{
		secret: secret,
		ttl:    cfg.TTL,
		issuer: strings.TrimSpace(cfg.Issuer),
		now:    cfg.Now,
		// Expiry is checked separately so expired tokens can still be introspected.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the lifetime given to issued and rotated tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject starting now with the configured TTL.
func (s *TokenService) Issue(subject string) (*SignedToken, error) {
	return s.Encode(subject, s.now(), s.ttl)
}

// Encode signs a token for subject with expiresAt = issuedAt + ttl, both
// truncated to milliseconds. A non-positive ttl yields a token that is
// already expired.
func (s *TokenService) Encode(subject string, issuedAt time.Time, ttl time.Duration) (*SignedToken, error) {
	issuedAt = issuedAt.Truncate(tokenTimePrecision)
	return s.encode(subject, issuedAt, issuedAt.Add(ttl).Truncate(tokenTimePrecision))
}

func (s *TokenService) encode(subject string, issuedAt, expiresAt time.Time) (*SignedToken, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("subject is required")
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	value, err := token.SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &SignedToken{
		Value:     value,
		ID:        claims.ID,
		Subject:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Decode verifies structure and signature and returns the claims.
// It does not check expiry.
func (s *TokenService) Decode(tokenStr string) (*Claims, error) {
	parsed, err := s.parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrInvalidToken)
	}

	switch {
	case strings.TrimSpace(claims.Subject) == "":
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	case claims.IssuedAt == nil:
		return nil, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	case claims.ExpiresAt == nil:
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	case s.issuer != "" && claims.Issuer != s.issuer:
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}

	claims.IssuedAt = jwt.NewNumericDate(claims.IssuedAt.Round(tokenTimePrecision))
	claims.ExpiresAt = jwt.NewNumericDate(claims.ExpiresAt.Round(tokenTimePrecision))
	return claims, nil
}

// Validate decodes the token and rejects it once now >= exp.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	claims, err := s.Decode(tokenStr)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return claims, ErrTokenExpired
	}
	return claims, nil
}

// Refresh validates the token and issues a replacement for the same subject
// with issuedAt = now. The replacement always expires strictly later than the
// presented token. The presented token is left untouched.
func (s *TokenService) Refresh(tokenStr string) (*SignedToken, error) {
	claims, err := s.Validate(tokenStr)
	if err != nil {
		return nil, err
	}

	issuedAt := s.now().Truncate(tokenTimePrecision)
	expiresAt := issuedAt.Add(s.ttl).Truncate(tokenTimePrecision)
	if !expiresAt.After(claims.ExpiresAt.Time) {
		expiresAt = claims.ExpiresAt.Add(tokenTimePrecision)
	}
	return s.encode(claims.Subject, issuedAt, expiresAt)
}
