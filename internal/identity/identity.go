// Package identity abstracts who is acting. The rest of the system only
// ever needs a stable id and a display name.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

var ErrNoUser = errors.New("identity: no authenticated user")

type User struct {
	ID          string
	DisplayName string
}

type ctxKey struct{}

// WithUser attaches the acting user to the context; the HTTP layer does
// this once per request after resolving credentials.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

func FromContext(ctx context.Context) (User, bool) {
	user, ok := ctx.Value(ctxKey{}).(User)
	return user, ok
}

// Resolver looks up users against the usuarios table.
type Resolver struct {
	repo storage.Repository
}

func NewResolver(repo storage.Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) Resolve(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrNoUser
	}
	usuario, err := r.repo.GetUsuario(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return User{}, fmt.Errorf("%w: unknown id %q", ErrNoUser, id)
	}
	if err != nil {
		return User{}, err
	}
	return User{ID: usuario.ID, DisplayName: usuario.Nombre}, nil
}

