// Package store persists pkg/models.Target records with gorm and the
// glebarez/sqlite driver (the teacher's own ORM/driver pair, go.mod
// requires both directly) and exposes pool.TargetResolver over them so the
// core pool package never imports gorm.
package store

import (
	"context"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
)

// TargetStore is the CRUD + pool.TargetResolver surface over the targets
// table. Add/Update/Remove/List mirror original_source's
// apis/target.rs / services/target.rs shape.
type TargetStore struct {
	db *gorm.DB
}

// Open opens (creating if needed) a sqlite database at path and migrates the
// targets table.
func Open(path string) (*TargetStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database")
	}
	if err := db.AutoMigrate(&models.Target{}); err != nil {
		return nil, errors.Wrap(err, "migrate targets table")
	}
	return &TargetStore{db: db}, nil
}

// LoadTarget implements pool.TargetResolver.
func (s *TargetStore) LoadTarget(ctx context.Context, id int64) (pool.Target, error) {
	var rec models.Target
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pool.Target{}, pool.ErrTargetNotFound
		}
		return pool.Target{}, errors.Wrap(err, "load target")
	}
	return toPoolTarget(rec), nil
}

// List returns every persisted target.
func (s *TargetStore) List(ctx context.Context) ([]models.Target, error) {
	var recs []models.Target
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, errors.Wrap(err, "list targets")
	}
	return recs, nil
}

// Get returns one persisted target by id.
func (s *TargetStore) Get(ctx context.Context, id int64) (models.Target, error) {
	var rec models.Target
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Target{}, pool.ErrTargetNotFound
		}
		return models.Target{}, errors.Wrap(err, "get target")
	}
	return rec, nil
}

// Add persists a new target record.
func (s *TargetStore) Add(ctx context.Context, rec *models.Target) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return errors.Wrap(err, "add target")
	}
	return nil
}

// Update writes rec's non-zero fields onto the existing target record with
// rec.ID; zero-valued fields (an empty password, for example) leave the
// stored value unchanged.
func (s *TargetStore) Update(ctx context.Context, rec *models.Target) error {
	res := s.db.WithContext(ctx).Model(&models.Target{}).Where("id = ?", rec.ID).Updates(rec)
	if res.Error != nil {
		return errors.Wrap(res.Error, "update target")
	}
	if res.RowsAffected == 0 {
		return pool.ErrTargetNotFound
	}
	return nil
}

// Remove deletes a target record by ID.
func (s *TargetStore) Remove(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&models.Target{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "remove target")
	}
	if res.RowsAffected == 0 {
		return pool.ErrTargetNotFound
	}
	return nil
}

func toPoolTarget(rec models.Target) pool.Target {
	return pool.Target{
		ID:         rec.ID,
		Host:       rec.Host,
		Port:       rec.Port,
		User:       rec.User,
		Method:     pool.AuthMethod(rec.Method),
		Password:   rec.Password,
		PrivateKey: rec.PrivateKey,
		Passphrase: rec.Passphrase,
		OSHint:     rec.OSHint,
	}
}

var _ pool.TargetResolver = (*TargetStore)(nil)
