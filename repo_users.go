package accounts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

// Users is the bun backed credential store
type Users interface {
	CredentialStore

	FindByEmailWithPasswordTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes UserChanges) (*User, error)
	Count(ctx context.Context) (int, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		repo: repo,
		db:   db,
	}
}

func (a *users) FindByEmailWithPassword(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailWithPasswordTx(ctx, a.db, email)
}

func (a *users) FindByEmailWithPasswordTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (a *users) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (a *users) Create(ctx context.Context, user *User) (*User, error) {
	return a.CreateTx(ctx, a.db, user)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	if _, err := tx.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, mapStoreError(err)
	}
	return user, nil
}

func (a *users) UpdateByID(ctx context.Context, id uuid.UUID, changes UserChanges) (*User, error) {
	var out *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		out, err = a.UpdateByIDTx(ctx, tx, id, changes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *users) UpdateByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, changes UserChanges) (*User, error) {
	if !changes.IsEmpty() {
		q := tx.NewUpdate().
			Model((*User)(nil)).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id)

		if changes.Name != nil {
			q.Set("name = ?", strings.TrimSpace(*changes.Name))
		}
		if changes.Email != nil {
			q.Set("email = ?", NormalizeEmail(*changes.Email))
		}
		if changes.Role != nil {
			q.Set("role = ?", string(*changes.Role))
		}
		if changes.Status != nil {
			q.Set("status = ?", string(*changes.Status))
		}
		if changes.PasswordHash != nil {
			q.Set("password_hash = ?", *changes.PasswordHash)
		}

		res, err := q.Exec(ctx)
		if err != nil {
			return nil, mapStoreError(err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return nil, ErrNotFound
		}
	}

	record := &User{}
	if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, mapStoreError(err)
	}
	return record, nil
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapStoreError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountAndPage returns a page of users, newest first, and the total count
func (a *users) CountAndPage(ctx context.Context, offset, limit int) ([]*User, int, error) {
	records := make([]*User, 0, limit)
	total, err := a.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at DESC").
		OrderExpr("?TableAlias.id DESC").
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	return records, total, nil
}

func (a *users) Count(ctx context.Context) (int, error) {
	return a.db.NewSelect().Model((*User)(nil)).Count(ctx)
}

// mapStoreError translates driver errors into the store error contract
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	if IsDuplicateKeyError(err) {
		return ErrDuplicateKey
	}

	return err
}

// IsDuplicateKeyError checks for unique constraint violations on
// postgres and sqlite
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
