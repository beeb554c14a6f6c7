package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bankeu-api/config"
	"bankeu-api/models"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func trackingCacheKey(year int) string {
	return fmt.Sprintf("bankeu:tracking-summary:%d", year)
}

// TrackingService builds the public per-kecamatan tracking summary.
type TrackingService struct {
	db        *gorm.DB
	directory *ReferenceDirectory
	rdb       *redis.Client
	settings  config.WorkflowSettings
	now       func() time.Time
}

// NewTrackingService wires the summary source. rdb may be nil, in which case
// every request is computed from the database.
func NewTrackingService(db *gorm.DB, directory *ReferenceDirectory, rdb *redis.Client, settings config.WorkflowSettings) *TrackingService {
	if db == nil {
		db = config.DB
	}
	if directory == nil {
		directory = NewReferenceDirectory(db, 0)
	}
	return &TrackingService{db: db, directory: directory, rdb: rdb, settings: settings, now: time.Now}
}

// Summary returns the projection for year (zero means the default year).
func (s *TrackingService) Summary(ctx context.Context, year int) (*TrackingSummary, error) {
	year = s.settings.YearOrDefault(year)
	if year < 2000 || year > 2100 {
		return nil, validationError("tahun %d is out of range", year)
	}

	if cached, ok := s.cached(ctx, year); ok {
		return cached, nil
	}

	kecamatans, err := s.directory.Kecamatans(ctx)
	if err != nil {
		return nil, err
	}
	desas, err := s.directory.Desas(ctx)
	if err != nil {
		return nil, err
	}

	var proposals []models.Proposal
	if err := s.db.WithContext(ctx).
		Where("tahun_anggaran = ?", year).
		Find(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to load proposals: %w", err)
	}

	summary := BuildTrackingSummary(year, kecamatans, desas, proposals, decimal.NewFromInt(s.settings.DisplayCeiling), s.now())
	s.store(ctx, year, &summary)
	return &summary, nil
}

// Invalidate drops the cached summary of year.
func (s *TrackingService) Invalidate(ctx context.Context, year int) error {
	if s.rdb == nil {
		return nil
	}
	return s.rdb.Del(ctx, trackingCacheKey(year)).Err()
}

func (s *TrackingService) cached(ctx context.Context, year int) (*TrackingSummary, bool) {
	if s.rdb == nil || s.settings.TrackingCacheTTL <= 0 {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, trackingCacheKey(year)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: tracking cache read failed: %v", err)
		}
		return nil, false
	}
	var summary TrackingSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		log.Printf("Warning: discarding corrupt tracking cache for %d: %v", year, err)
		return nil, false
	}
	return &summary, true
}

func (s *TrackingService) store(ctx context.Context, year int, summary *TrackingSummary) {
	if s.rdb == nil || s.settings.TrackingCacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, trackingCacheKey(year), payload, s.settings.TrackingCacheTTL).Err(); err != nil {
		log.Printf("Warning: tracking cache write failed: %v", err)
	}
}
