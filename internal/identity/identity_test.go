package identity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Gonzalez-Esteban/tareasd/internal/model"
	"github.com/Gonzalez-Esteban/tareasd/internal/storage"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()

	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "identity_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := repo.CreateUsuario(context.Background(), model.Usuario{ID: "ana", Nombre: "Ana García"}); err != nil {
		t.Fatalf("seed usuario: %v", err)
	}
	return NewResolver(repo)
}

func TestResolveKnownUser(t *testing.T) {
	r := newResolver(t)

	user, err := r.Resolve(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if user.ID != "ana" || user.DisplayName != "Ana García" {
		t.Errorf("user = %+v", user)
	}
}

func TestResolveRejectsMissingOrUnknown(t *testing.T) {
	r := newResolver(t)

	if _, err := r.Resolve(context.Background(), ""); !errors.Is(err, ErrNoUser) {
		t.Errorf("empty id: err = %v, want ErrNoUser", err)
	}
	if _, err := r.Resolve(context.Background(), "nadie"); !errors.Is(err, ErrNoUser) {
		t.Errorf("unknown id: err = %v, want ErrNoUser", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithUser(context.Background(), User{ID: "ana", DisplayName: "Ana"})
	user, ok := FromContext(ctx)
	if !ok || user.ID != "ana" {
		t.Errorf("got %+v, %v", user, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no user")
	}
}
