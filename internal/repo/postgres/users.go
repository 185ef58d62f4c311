package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// DBObserver times a logical DB operation. observability.Prom implements it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

type UsersRepo struct {
	pool    *pgxpool.Pool
	hasher  PasswordHasher
	metrics DBObserver
}

func NewUsersRepo(pool *pgxpool.Pool, hasher PasswordHasher, metrics DBObserver) *UsersRepo {
	if metrics == nil {
		metrics = noopObserver{}
	}

	return &UsersRepo{pool: pool, hasher: hasher, metrics: metrics}
}

const userColumns = `id, first_name, last_name, email, password_hash, role, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	u.Role = user.Role(role)

	return u, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.find_by_email", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE lower(email) = $1`,
			user.NormalizeEmail(email),
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.metrics.ObserveDB("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

// Create checks for an existing email before inserting. The check only saves
// a bcrypt round; the unique index on lower(email) is what actually holds
// under concurrent signups.
func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	existing, err := r.FindByEmail(ctx, in.Email)
	if err != nil {
		return user.User{}, err
	}

	if existing != nil {
		return user.User{}, user.ErrAlreadyExists
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, err
	}

	role := in.Role
	if role == "" {
		role = user.RoleUser
	}

	first, last := user.SplitName(in.Name)
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		FirstName:    first,
		LastName:     last,
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = r.metrics.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, first_name, last_name, email, password_hash, role, is_active, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(u.Role), u.IsActive, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrAlreadyExists
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	var sets []string
	var args []interface{}

	argsPosition := 1

	add := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argsPosition))
		args = append(args, value)
		argsPosition++
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		add("email", user.NormalizeEmail(*patch.Email))
	}
	if patch.Password != nil {
		hash, err := r.hasher.Hash(*patch.Password)
		if err != nil {
			return user.User{}, err
		}
		add("password_hash", hash)
	}
	if patch.Role != nil {
		add("role", string(*patch.Role))
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}

	// always touched
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(sets, ", "), argsPosition,
	)
	args = append(args, id)

	var u user.User

	err := r.metrics.ObserveDB("users.update", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, query, args...))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if isUniqueViolation(err) {
			return user.User{}, user.ErrAlreadyExists
		}
		return user.User{}, err
	}

	u.PasswordHash = ""
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	var affected int64

	err := r.metrics.ObserveDB("users.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	if affected == 0 {
		return user.ErrNotFound
	}

	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.metrics.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+`
			FROM users
			ORDER BY created_at ASC, id ASC`,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]user.User, 0)

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
