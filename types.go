package accounts

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Principal is the authenticated caller of a request.
// It is derived from verified token claims and never persisted.
type Principal struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() string
	GetIssuer() string
	GetAudience() []string
	GetContextKey() string
	GetSaltWorkFactor() int
}

// CredentialStore is the persistence contract used by the services
type CredentialStore interface {
	FindByEmailWithPassword(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
	UpdateByID(ctx context.Context, id uuid.UUID, changes UserChanges) (*User, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	CountAndPage(ctx context.Context, offset, limit int) ([]*User, int, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// defLogger prints "msg key=value ..." lines, to stdout unless out is set
type defLogger struct {
	out io.Writer
}

func (d defLogger) Error(msg string, args ...any) {
	d.print("ERR", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.print("WRN", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	d.print("INF", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.print("DBG", msg, args)
}

func (d defLogger) print(level, msg string, args []any) {
	out := d.out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "[%s] ACCOUNTS %s\n", level, formatLogLine(msg, args))
}

const badLogKey = "!BADKEY"

func formatLogLine(msg string, args []any) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(msg, "\n"))

	for len(args) > 0 {
		key, ok := args[0].(string)
		var value any
		switch {
		case !ok:
			key, value = badLogKey, args[0]
			args = args[1:]
		case len(args) == 1:
			key, value = badLogKey, args[0]
			args = args[1:]
		default:
			value = args[1]
			args = args[2:]
		}
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(formatLogValue(value))
	}

	return b.String()
}

func formatLogValue(value any) string {
	var s string
	switch v := value.(type) {
	case nil:
		return "<nil>"
	case error:
		s = v.Error()
	case fmt.Stringer:
		s = v.String()
	default:
		s = fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
