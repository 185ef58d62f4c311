package db

import (
	"context"
	"log/slog"

	"github.com/geocoder89/accounthub/internal/apperr"
	"github.com/geocoder89/accounthub/internal/config"
	"github.com/geocoder89/accounthub/internal/domain/user"
)

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Create(ctx context.Context, in user.NewUser) (user.User, error)
}

// EnsureAdminUser creates the bootstrap admin when ADMIN_EMAIL and
// ADMIN_PASSWORD are set. Signup never grants roles, so this is the only way
// the first admin comes to exist.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := users.FindByEmail(ctx, cfg.AdminEmail)

	if err != nil {
		return err
	}

	if existing != nil {
		if existing.Role != user.RoleAdmin {
			log.Warn("bootstrap admin email belongs to a non-admin user", "user_id", existing.ID)
		}
		return nil
	}

	u, err := users.Create(ctx, user.NewUser{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     user.RoleAdmin,
	})

	// another instance won the race
	if apperr.Is(err, apperr.KindConflict) {
		return nil
	}

	if err != nil {
		return err
	}

	log.Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)

	return nil
}
