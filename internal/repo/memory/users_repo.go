package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/accounthub/internal/domain/user"
	"github.com/google/uuid"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// UsersRepo keeps users in a map. The email index is updated under the same
// lock as the records, so uniqueness holds without a database.
type UsersRepo struct {
	mu      sync.RWMutex
	hasher  PasswordHasher
	items   map[string]user.User // {"id": user}
	byEmail map[string]string    // {"email": id}
}

func NewUsersRepo(hasher PasswordHasher) *UsersRepo {
	return &UsersRepo{
		hasher:  hasher,
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
	}
}

func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}

	u := r.items[id]
	return &u, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	email := user.NormalizeEmail(in.Email)

	if existing, _ := r.FindByEmail(ctx, email); existing != nil {
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
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return user.User{}, user.ErrAlreadyExists
	}

	r.items[u.ID] = u
	r.byEmail[email] = u.ID

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	var hash string

	if patch.Password != nil {
		h, err := r.hasher.Hash(*patch.Password)
		if err != nil {
			return user.User{}, err
		}
		hash = h
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if patch.Email != nil && *patch.Email != u.Email {
		if _, taken := r.byEmail[*patch.Email]; taken {
			return user.User{}, user.ErrAlreadyExists
		}
		delete(r.byEmail, u.Email)
		u.Email = *patch.Email
		r.byEmail[u.Email] = u.ID
	}

	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	if patch.IsActive != nil {
		u.IsActive = *patch.IsActive
	}
	if hash != "" {
		u.PasswordHash = hash
	}

	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	u.PasswordHash = ""
	return u, nil
}

func (r *UsersRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	delete(r.items, id)
	delete(r.byEmail, u.Email)

	return nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// Ping satisfies the readiness probe.
func (r *UsersRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}
