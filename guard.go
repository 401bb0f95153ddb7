package accounts

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/middleware/jwtware"
)

// Authenticate resolves the principal of an Authorization header value
func Authenticate(header string, tokens *TokenService) (Principal, error) {
	token, ok := ExtractBearer(header)
	if !ok {
		return Principal{}, ErrAuthenticationRequired
	}

	claims, err := tokens.Decode(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	return claims.Principal(), nil
}

// RequireRoles passes when the principal holds one of the roles.
// An empty role set admits any authenticated principal.
func RequireRoles(principal *Principal, roles ...Role) error {
	if principal == nil {
		return ErrAuthenticationRequired
	}
	if len(roles) == 0 || principal.Role.In(roles...) {
		return nil
	}
	return ErrInsufficientPermissions
}

// RequireOwnerOrAdmin passes when the principal owns the resource or is an admin
func RequireOwnerOrAdmin(principal *Principal, ownerID string) error {
	if principal == nil {
		return ErrAuthenticationRequired
	}
	if principal.UserID == ownerID || principal.Role == RoleAdmin {
		return nil
	}
	return ErrAccessDenied
}

// Guard exposes the access gates as fiber handlers
type Guard struct {
	tokens     *TokenService
	contextKey string
	logger     Logger
}

func NewGuard(tokens *TokenService, contextKey string) *Guard {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}
	return &Guard{
		tokens:     tokens,
		contextKey: contextKey,
		logger:     defLogger{},
	}
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// ContextKey is the fiber locals key holding the claims
func (g *Guard) ContextKey() string {
	return g.contextKey
}

// Protected rejects requests without a valid bearer token and attaches
// the principal to the request.
func (g *Guard) Protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		ContextKey:     g.contextKey,
		AuthScheme:     "Bearer",
		TokenValidator: tokenValidator{tokens: g.tokens},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if goerrors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return ErrAuthenticationRequired
			}
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			g.logger.Debug("token rejected", "path", c.Path(), "error", err)
			return ErrInvalidToken
		},
		ContextEnricher: func(ctx context.Context, claims jwtware.AuthClaims) context.Context {
			jc, ok := claims.(AuthClaims)
			if !ok {
				return ctx
			}
			ctx = WithClaimsContext(ctx, jc)
			return WithPrincipal(ctx, jc.Principal())
		},
	})
}

// Roles admits principals holding one of the roles
func (g *Guard) Roles(roles ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromFiber(c, g.contextKey)
		if err := RequireRoles(principal, roles...); err != nil {
			return err
		}
		return c.Next()
	}
}

// OwnerOrAdmin admits the owner named by the route param, or an admin
func (g *Guard) OwnerOrAdmin(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromFiber(c, g.contextKey)
		if err := RequireOwnerOrAdmin(principal, c.Params(param)); err != nil {
			return err
		}
		return c.Next()
	}
}

type tokenValidator struct {
	tokens *TokenService
}

func (v tokenValidator) Validate(token string) (jwtware.AuthClaims, error) {
	claims, err := v.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
