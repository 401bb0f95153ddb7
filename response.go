package accounts

import "github.com/gofiber/fiber/v2"

const (
	MsgLoginSuccessful    = "Login successful"
	MsgLogoutSuccessful   = "Logout successful"
	MsgTokenRefreshed     = "Token refreshed successfully"
	MsgProfileRetrieved   = "User profile retrieved"
	MsgUserRegistered     = "User registered successfully"
	MsgUserCreated        = "User created successfully"
	MsgUserUpdated        = "User updated successfully"
	MsgUserDeleted        = "User deleted successfully"
	MsgUserRetrieved      = "User retrieved successfully"
	MsgUsersRetrieved     = "Users retrieved successfully"
	MsgPasswordChanged    = "Password changed successfully"
	MsgInternalError      = "An unexpected error occurred"
	MsgRouteNotFound      = "Route not found"
	MsgRouteNotFoundError = "The requested endpoint does not exist"
)

// Envelope is the body shape of every API response
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// SendSuccess writes a success envelope
func SendSuccess(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// SendError writes an error envelope
func SendError(c *fiber.Ctx, status int, message, detail string) error {
	return c.Status(status).JSON(Envelope{
		Success: false,
		Message: message,
		Error:   detail,
	})
}
