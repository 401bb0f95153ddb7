package server

import (
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/config"
)

// LoggerProvider returns a named logger
type LoggerProvider func(name string) accounts.Logger

// Services bundles the wired account components
type Services struct {
	Repos  accounts.RepositoryManager
	Tokens *accounts.TokenService
	Auth   *accounts.Auther
	Users  *accounts.UserService
	Guard  *accounts.Guard
}

// NewServices wires the account components over the database handle
func NewServices(cfg *config.Config, db *bun.DB, loggers LoggerProvider, sink accounts.ActivitySink) (*Services, error) {
	if loggers == nil {
		loggers = func(string) accounts.Logger { return nil }
	}

	repos := accounts.NewRepositoryManager(db)
	if err := repos.Validate(); err != nil {
		return nil, err
	}

	tokens, err := accounts.NewTokenServiceFromConfig(cfg, loggers("auth:tokens"))
	if err != nil {
		return nil, err
	}

	hasher := accounts.NewHasher(cfg.GetSaltWorkFactor())

	auther := accounts.NewAuthenticator(repos.Users(), hasher, tokens).
		WithLogger(loggers("auth:service")).
		WithActivitySink(sink)

	users := accounts.NewUserService(repos.Users(), hasher).
		WithLogger(loggers("users:service")).
		WithActivitySink(sink).
		WithPagination(cfg.Pagination.DefaultLimit, cfg.Pagination.MaxLimit).
		WithDeterministicIDs(cfg.Users.DeterministicIDs)

	guard := accounts.NewGuard(tokens, cfg.GetContextKey()).
		WithLogger(loggers("auth:guard"))

	return &Services{
		Repos:  repos,
		Tokens: tokens,
		Auth:   auther,
		Users:  users,
		Guard:  guard,
	}, nil
}
