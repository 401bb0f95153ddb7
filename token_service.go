package accounts

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const bearerPrefix = "Bearer "

// EncodeToken signs an HS256 token for the principal that expires after ttl
func EncodeToken(principal Principal, secret []byte, ttl time.Duration) (string, error) {
	return encodeToken(principal, tokenOptions{secret: secret, ttl: ttl, now: time.Now})
}

// DecodeToken verifies the signature and expiry of a token. Every
// failure is reported as ErrInvalidToken.
func DecodeToken(token string, secret []byte) (*JWTClaims, error) {
	claims, err := decodeToken(token, tokenOptions{secret: secret, now: time.Now})
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractBearer returns the token of an "Authorization: Bearer <token>"
// header. The scheme is matched case sensitively.
func ExtractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	if token == "" {
		return "", false
	}
	return token, true
}

type tokenOptions struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience jwt.ClaimStrings
	now      func() time.Time
}

func encodeToken(principal Principal, opts tokenOptions) (string, error) {
	if len(opts.secret) == 0 || opts.ttl <= 0 {
		return "", ErrEncoding
	}

	now := opts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    opts.issuer,
			Subject:   principal.UserID,
			Audience:  opts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(opts.ttl)),
		},
		UID:       principal.UserID,
		UserEmail: principal.Email,
		UserRole:  string(principal.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(opts.secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT").
			WithTextCode(TextCodeEncoding)
	}

	return signed, nil
}

// decodeToken returns the underlying cause, callers surface it
// as ErrInvalidToken.
func decodeToken(tokenString string, opts tokenOptions) (*JWTClaims, error) {
	if len(opts.secret) == 0 {
		return nil, fmt.Errorf("signing key is empty")
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(opts.now),
	}
	if opts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(opts.issuer))
	}
	if len(opts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(opts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return opts.secret, nil
	}, parserOptions...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("could not decode claims")
	}

	if claims.UserID() == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return claims, nil
}

// TokenService binds the signing key and token lifetime used by the
// authentication service and the request guards.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	expiresIn  string
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, audience jwt.ClaimStrings, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		expiresIn:  ttl.String(),
		issuer:     issuer,
		audience:   audience,
		logger:     logger,
		now:        time.Now,
	}
}

// NewTokenServiceFromConfig parses the configured lifetime expression
// (e.g. "7d") and reports it back verbatim as ExpiresIn.
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenService, error) {
	ttl, err := ParseDuration(cfg.GetTokenExpiration())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid token expiration")
	}
	ts := NewTokenService([]byte(cfg.GetSigningKey()), ttl, cfg.GetIssuer(), cfg.GetAudience(), logger)
	ts.expiresIn = cfg.GetTokenExpiration()
	return ts, nil
}

// WithClock overrides the time source, used by tests
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

func (ts *TokenService) WithLogger(logger Logger) *TokenService {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// TTL returns the token lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// ExpiresIn returns the lifetime as configured, e.g. "7d"
func (ts *TokenService) ExpiresIn() string {
	return ts.expiresIn
}

// Encode issues a token for the principal
func (ts *TokenService) Encode(principal Principal) (string, error) {
	token, err := encodeToken(principal, ts.options())
	if err != nil {
		ts.logger.Error("TokenService encode failed", "error", err)
		return "", err
	}
	return token, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenService) Validate(tokenString string) (AuthClaims, error) {
	claims, err := ts.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Decode is Validate returning the concrete claims type
func (ts *TokenService) Decode(tokenString string) (*JWTClaims, error) {
	claims, err := decodeToken(tokenString, ts.options())
	if err != nil {
		ts.logger.Debug("TokenService rejected token", "cause", err)
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (ts *TokenService) options() tokenOptions {
	return tokenOptions{
		secret:   ts.signingKey,
		ttl:      ts.ttl,
		issuer:   ts.issuer,
		audience: ts.audience,
		now:      ts.now,
	}
}
