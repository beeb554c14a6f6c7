package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bankeu-api/config"
	"bankeu-api/models"

	"gorm.io/gorm"
)

// ReferenceDirectory serves the read-only administrative hierarchy with a
// short-lived in-memory cache.
type ReferenceDirectory struct {
	db  *gorm.DB
	ttl time.Duration

	mu    sync.RWMutex
	cache *referenceCacheEntry
}

type referenceCacheEntry struct {
	kecamatans []models.Kecamatan
	desas      []models.Desa
	desaByID   map[uint]models.Desa
	fetchedAt  time.Time
}

func NewReferenceDirectory(db *gorm.DB, ttl time.Duration) *ReferenceDirectory {
	if db == nil {
		db = config.DB
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReferenceDirectory{db: db, ttl: ttl}
}

func (r *ReferenceDirectory) load(ctx context.Context, force bool) (*referenceCacheEntry, error) {
	r.mu.RLock()
	cached := r.cache
	r.mu.RUnlock()

	if cached != nil && !force && time.Since(cached.fetchedAt) < r.ttl {
		return cached, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cache != nil && !force && time.Since(r.cache.fetchedAt) < r.ttl {
		return r.cache, nil
	}

	var kecamatans []models.Kecamatan
	if err := r.db.WithContext(ctx).Order("nama").Find(&kecamatans).Error; err != nil {
		return nil, fmt.Errorf("failed to load kecamatans: %w", err)
	}
	var desas []models.Desa
	if err := r.db.WithContext(ctx).Order("kecamatan_id, nama").Find(&desas).Error; err != nil {
		return nil, fmt.Errorf("failed to load desas: %w", err)
	}

	byID := make(map[uint]models.Desa, len(desas))
	for _, d := range desas {
		byID[d.ID] = d
	}

	entry := &referenceCacheEntry{
		kecamatans: kecamatans,
		desas:      desas,
		desaByID:   byID,
		fetchedAt:  time.Now(),
	}
	r.cache = entry
	return entry, nil
}

// Clear invalidates the in-memory cache.
func (r *ReferenceDirectory) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
}

// Kecamatans returns every district ordered by name.
func (r *ReferenceDirectory) Kecamatans(ctx context.Context) ([]models.Kecamatan, error) {
	entry, err := r.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return entry.kecamatans, nil
}

// Desas returns every village.
func (r *ReferenceDirectory) Desas(ctx context.Context) ([]models.Desa, error) {
	entry, err := r.load(ctx, false)
	if err != nil {
		return nil, err
	}
	return entry.desas, nil
}

// DesaByID looks a village up, refreshing the cache once on a miss.
func (r *ReferenceDirectory) DesaByID(ctx context.Context, id uint) (*models.Desa, error) {
	entry, err := r.load(ctx, false)
	if err != nil {
		return nil, err
	}
	if d, ok := entry.desaByID[id]; ok {
		return &d, nil
	}

	entry, err = r.load(ctx, true)
	if err != nil {
		return nil, err
	}
	if d, ok := entry.desaByID[id]; ok {
		return &d, nil
	}
	return nil, newError(KindNotFound, "desa %d not found", id)
}
