package accounts

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Controller serves the auth and user management endpoints
type Controller struct {
	auth   *Auther
	users  *UserService
	guard  *Guard
	logger Logger
}

func NewController(auth *Auther, users *UserService, guard *Guard) *Controller {
	return &Controller{
		auth:   auth,
		users:  users,
		guard:  guard,
		logger: defLogger{},
	}
}

func (h *Controller) WithLogger(logger Logger) *Controller {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// RegisterRoutes mounts the endpoints on the given router, usually /api
func (h *Controller) RegisterRoutes(r fiber.Router) {
	protected := h.guard.Protected()

	auth := r.Group("/auth")
	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Get("/me", protected, h.Me)
	auth.Post("/refresh", protected, h.Refresh)
	auth.Post("/logout", protected, h.Logout)

	users := r.Group("/users")
	users.Post("/", protected, h.guard.Roles(RoleAdmin), h.CreateUser)
	users.Get("/", protected, h.guard.Roles(RoleAdmin, RoleModerator), h.ListUsers)
	users.Get("/:id", protected, h.guard.OwnerOrAdmin("id"), h.GetUser)
	users.Put("/:id", protected, h.guard.OwnerOrAdmin("id"), h.UpdateUser)
	users.Put("/:id/password", protected, h.guard.OwnerOrAdmin("id"), h.ChangePassword)
	users.Delete("/:id", protected, h.guard.Roles(RoleAdmin), h.DeleteUser)
}

func (h *Controller) Register(c *fiber.Ctx) error {
	payload := CreateUserInput{}
	if err := bindBody(c, &payload); err != nil {
		return err
	}

	user, err := h.users.Register(c.UserContext(), payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusCreated, MsgUserRegistered, user)
}

func (h *Controller) Login(c *fiber.Ctx) error {
	payload := LoginInput{}
	if err := bindBody(c, &payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	res, err := h.auth.Login(c.UserContext(), payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, MsgLoginSuccessful, res)
}

func (h *Controller) Me(c *fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return ErrAuthenticationRequired
	}

	user, found, err := h.auth.GetCurrentUser(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}

	return SendSuccess(c, fiber.StatusOK, MsgProfileRetrieved, user)
}

func (h *Controller) Refresh(c *fiber.Ctx) error {
	principal, ok := h.principal(c)
	if !ok {
		return ErrAuthenticationRequired
	}

	res, err := h.auth.RefreshToken(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, MsgTokenRefreshed, res)
}

// Logout is stateless, the client discards its token
func (h *Controller) Logout(c *fiber.Ctx) error {
	principal, _ := h.principal(c)
	h.auth.Logout(c.UserContext(), principal)
	return SendSuccess(c, fiber.StatusOK, MsgLogoutSuccessful, nil)
}

func (h *Controller) CreateUser(c *fiber.Ctx) error {
	payload := CreateUserInput{}
	if err := bindBody(c, &payload); err != nil {
		return err
	}

	principal, _ := h.principal(c)
	user, err := h.users.Create(c.UserContext(), principal, payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusCreated, MsgUserCreated, user)
}

func (h *Controller) ListUsers(c *fiber.Ctx) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}

	res, err := h.users.List(c.UserContext(), page, limit)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, MsgUsersRetrieved, res)
}

func (h *Controller) GetUser(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, MsgUserRetrieved, user)
}

func (h *Controller) UpdateUser(c *fiber.Ctx) error {
	payload := UpdateUserInput{}
	if err := bindBody(c, &payload); err != nil {
		return err
	}

	principal, _ := h.principal(c)
	if (payload.Role != nil || payload.Status != nil) && RequireRoles(principal, RoleAdmin) != nil {
		return ErrInsufficientPermissions
	}

	user, err := h.users.Update(c.UserContext(), principal, c.Params("id"), payload)
	if err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, MsgUserUpdated, user)
}

func (h *Controller) ChangePassword(c *fiber.Ctx) error {
	payload := ChangePasswordInput{}
	if err := bindBody(c, &payload); err != nil {
		return err
	}

	principal, _ := h.principal(c)
	if err := h.users.ChangePassword(c.UserContext(), principal, c.Params("id"), payload); err != nil {
		return err
	}

	return SendSuccess(c, fiber.StatusOK, MsgPasswordChanged, nil)
}

func (h *Controller) DeleteUser(c *fiber.Ctx) error {
	principal, _ := h.principal(c)
	if err := h.users.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return SendSuccess(c, fiber.StatusOK, MsgUserDeleted, nil)
}

func (h *Controller) principal(c *fiber.Ctx) (*Principal, bool) {
	return PrincipalFromFiber(c, h.guard.ContextKey())
}

func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return NewValidationError(map[string]string{
			"body": "Invalid request body",
		})
	}
	return nil
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrBadPagination
	}
	return n, nil
}
