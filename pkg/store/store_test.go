package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
)

func newTestStore(t *testing.T) *TargetStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return s
}

func TestTargetStore_AddThenLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.Target{Name: "box1", Host: "10.0.0.1", Port: 22, User: "root", Method: models.AuthPassword, Password: "hunter2"}
	if err := s.Add(ctx, rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("Add() did not populate ID")
	}

	got, err := s.LoadTarget(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LoadTarget() error = %v", err)
	}
	if got.Host != "10.0.0.1" || got.User != "root" || got.Method != pool.AuthPassword {
		t.Fatalf("LoadTarget() = %+v, want host=10.0.0.1 user=root method=password", got)
	}
}

func TestTargetStore_LoadTarget_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadTarget(context.Background(), 999); !errors.Is(err, pool.ErrTargetNotFound) {
		t.Fatalf("LoadTarget() error = %v, want ErrTargetNotFound", err)
	}
}

func TestTargetStore_UpdateThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.Target{Name: "box1", Host: "10.0.0.1", Port: 22, User: "root", Method: models.AuthNone}
	if err := s.Add(ctx, rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	rec.Host = "10.0.0.2"
	if err := s.Update(ctx, rec); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Host != "10.0.0.2" {
		t.Fatalf("Get().Host = %q, want 10.0.0.2", got.Host)
	}
}

func TestTargetStore_Update_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Update(context.Background(), &models.Target{ID: 999}); !errors.Is(err, pool.ErrTargetNotFound) {
		t.Fatalf("Update() error = %v, want ErrTargetNotFound", err)
	}
}

func TestTargetStore_RemoveThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := &models.Target{Name: "box1", Host: "10.0.0.1", Port: 22, User: "root", Method: models.AuthNone}
	if err := s.Add(ctx, rec); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := s.Remove(ctx, rec.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("List() = %d entries after Remove, want 0", len(list))
	}
}

func TestTargetStore_Remove_NotFound(t *testing.T) {
	s := newTestStore(t)
	if err := s.Remove(context.Background(), 999); !errors.Is(err, pool.ErrTargetNotFound) {
		t.Fatalf("Remove() error = %v, want ErrTargetNotFound", err)
	}
}
