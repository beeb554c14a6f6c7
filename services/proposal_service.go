package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bankeu-api/config"
	"bankeu-api/models"
	"bankeu-api/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransitionResult is returned by every state-changing proposal operation.
type TransitionResult struct {
	Proposal       models.Proposal `json:"proposal"`
	ReturnedToDesa bool            `json:"returned_to_desa"`
	Warnings       []string        `json:"warnings,omitempty"`
}

// DecideInput is a reviewer's verdict on a proposal.
type DecideInput struct {
	ProposalID uint
	Authority  models.AuthorityType
	Actor      Actor
	Verdict    models.ReviewStatus
	Catatan    string
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *uint
}

// DraftInput carries the content of a new village proposal.
type DraftInput struct {
	KegiatanID           uint
	TahunAnggaran        int
	Judul                string
	NamaKegiatanSpesifik string
	Volume               string
	Lokasi               string
	AnggaranUsulan       decimal.Decimal
	FileProposal         string
}

// ProposalService runs the proposal state machine against the database.
type ProposalService struct {
	db      *gorm.DB
	effects *SideEffects
	now     func() time.Time
}

func NewProposalService(db *gorm.DB, effects *SideEffects) *ProposalService {
	if db == nil {
		db = config.DB
	}
	return &ProposalService{db: db, effects: effects, now: time.Now}
}

// Get loads a proposal the actor is allowed to see.
func (s *ProposalService) Get(ctx context.Context, actor Actor, id uint) (*models.Proposal, error) {
	p, err := loadProposal(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if err := authorizeViewProposal(actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// History lists the transitions recorded for a proposal, oldest first.
func (s *ProposalService) History(ctx context.Context, actor Actor, id uint) ([]models.ProposalStatusHistory, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	var rows []models.ProposalStatusHistory
	if err := s.db.WithContext(ctx).Where("proposal_id = ?", id).Order("history_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return rows, nil
}

// CreateDraft stores a new proposal for the actor's village. Scope columns are
// copied from the village and the activity.
func (s *ProposalService) CreateDraft(ctx context.Context, actor Actor, in DraftInput) (*models.Proposal, error) {
	if actor.Role != RoleDesa || actor.DesaID == 0 {
		return nil, notAuthorized("only village accounts may draft proposals")
	}
	in.Judul = utils.SanitizeInput(in.Judul)
	if in.Judul == "" || in.KegiatanID == 0 || in.TahunAnggaran == 0 {
		return nil, validationError("judul, kegiatan_id and tahun_anggaran are required")
	}
	if !in.AnggaranUsulan.IsPositive() {
		return nil, validationError("anggaran_usulan must be greater than zero")
	}

	db := s.db.WithContext(ctx)
	var desa models.Desa
	if err := db.First(&desa, actor.DesaID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "desa %d not found", actor.DesaID)
		}
		return nil, fmt.Errorf("failed to load desa: %w", err)
	}
	var kegiatan models.Kegiatan
	if err := db.First(&kegiatan, in.KegiatanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationError("kegiatan %d not found", in.KegiatanID)
		}
		return nil, fmt.Errorf("failed to load kegiatan: %w", err)
	}

	p := models.Proposal{
		DesaID:               desa.ID,
		KecamatanID:          desa.KecamatanID,
		KegiatanID:           kegiatan.ID,
		DinasID:              kegiatan.DinasID,
		TahunAnggaran:        in.TahunAnggaran,
		Judul:                in.Judul,
		NamaKegiatanSpesifik: utils.SanitizeInput(in.NamaKegiatanSpesifik),
		Volume:               utils.SanitizeInput(in.Volume),
		Lokasi:               utils.SanitizeInput(in.Lokasi),
		AnggaranUsulan:       in.AnggaranUsulan,
		FileProposal:         stringPtr(strings.TrimSpace(in.FileProposal)),
		Stage:                models.StageDesa,
		Status:               models.ProposalDraft,
		Version:              1,
		CreatedBy:            actor.UserID,
	}
	if err := db.Create(&p).Error; err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	return &p, nil
}

// Submit hands a proposal to the next authority.
func (s *ProposalService) Submit(ctx context.Context, actor Actor, id uint, to models.AuthorityType) (*TransitionResult, error) {
	if !to.Valid() {
		return nil, validationError("unknown authority %q", to)
	}
	return s.transition(ctx, id, to, "submit_to_"+string(to), actor, nil, "", func(tx *gorm.DB, p models.Proposal, now time.Time) (models.Proposal, error) {
		if err := authorizeSubmit(actor, &p, to); err != nil {
			return p, err
		}
		next, err := applySubmit(p, to, actor.UserID, now)
		if err != nil {
			return p, err
		}
		if to == models.AuthorityDinas {
			if err := requireActiveVerifier(tx, ProposalAuthority(&p, to)); err != nil {
				return p, err
			}
		}
		return next, nil
	})
}

// StartReview marks a pending proposal as being reviewed.
func (s *ProposalService) StartReview(ctx context.Context, actor Actor, id uint, authority models.AuthorityType) (*TransitionResult, error) {
	if !authority.Valid() {
		return nil, validationError("unknown authority %q", authority)
	}
	return s.transition(ctx, id, authority, "start_review", actor, nil, "", func(tx *gorm.DB, p models.Proposal, now time.Time) (models.Proposal, error) {
		if err := s.authorizeReviewer(tx, actor, &p, authority); err != nil {
			return p, err
		}
		return applyStartReview(p, authority, actor.UserID, now)
	})
}

// Decide records a verdict. All resulting column changes, including the DPMD
// reset, are written by a single version-guarded UPDATE.
func (s *ProposalService) Decide(ctx context.Context, in DecideInput) (*TransitionResult, error) {
	if !in.Authority.Valid() {
		return nil, validationError("unknown authority %q", in.Authority)
	}
	verdict, err := ParseVerdict(string(in.Verdict))
	if err != nil {
		recordFailure(err)
		return nil, err
	}
	catatan := utils.SanitizeNote(in.Catatan)

	return s.transition(ctx, in.ProposalID, in.Authority, "decide_"+string(verdict), in.Actor, in.ExpectedVersion, catatan, func(tx *gorm.DB, p models.Proposal, now time.Time) (models.Proposal, error) {
		if err := s.authorizeReviewer(tx, in.Actor, &p, in.Authority); err != nil {
			return p, err
		}
		return applyDecision(p, in.Authority, verdict, catatan, in.Actor.UserID, now)
	})
}

func (s *ProposalService) authorizeReviewer(tx *gorm.DB, actor Actor, p *models.Proposal, authority models.AuthorityType) error {
	ref := ProposalAuthority(p, authority)
	if actor.isAdminOf(ref) {
		return nil
	}
	var holder *uint
	if actor.worksFor(ref) {
		h, err := assignmentHolder(tx, ref, p.DesaID)
		if err != nil {
			return err
		}
		holder = h
	}
	return authorizeReview(actor, p, authority, holder)
}

type applyFunc func(tx *gorm.DB, p models.Proposal, now time.Time) (models.Proposal, error)

// transition loads the proposal, applies a pure transition and persists it
// with an optimistic version check. Side effects run only after commit.
func (s *ProposalService) transition(ctx context.Context, id uint, authority models.AuthorityType, action string, actor Actor, expectedVersion *uint, catatan string, apply applyFunc) (*TransitionResult, error) {
	now := s.now()
	var before, after models.Proposal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := loadProposal(tx, id)
		if err != nil {
			return err
		}
		if expectedVersion != nil && *expectedVersion != current.Version {
			return newError(KindConcurrentModification, "proposal %d changed (version %d, expected %d)", id, current.Version, *expectedVersion)
		}

		next, err := apply(tx, *current, now)
		if err != nil {
			return err
		}
		if err := checkInvariants(next); err != nil {
			return err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = now

		cols := stateColumns(next)
		cols["updated_at"] = now
		res := tx.Model(&models.Proposal{}).
			Where("id = ? AND version = ?", current.ID, current.Version).
			Updates(cols)
		if res.Error != nil {
			return fmt.Errorf("failed to update proposal: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return newError(KindConcurrentModification, "proposal %d was modified concurrently", id)
		}

		history := models.ProposalStatusHistory{
			ProposalID:    current.ID,
			AuthorityType: authority,
			Action:        action,
			OldStatus:     stringPtr(string(current.Status)),
			NewStatus:     string(next.Status),
			ChangedBy:     actor.UserID,
			Catatan:       stringPtr(catatan),
			CreatedAt:     now,
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("failed to log status history: %w", err)
		}

		before, after = *current, next
		return nil
	})
	if err != nil {
		recordFailure(err)
		return nil, err
	}

	transitionsTotal.WithLabelValues(string(authority), action).Inc()

	returned := before.Stage != models.StageDesa && after.Stage == models.StageDesa
	event := newTransitionEvent(after, authority, action, string(before.Status), string(after.Status), actor.UserID, catatan, returned, now)
	return &TransitionResult{
		Proposal:       after,
		ReturnedToDesa: returned,
		Warnings:       s.effects.Dispatch(ctx, event),
	}, nil
}

func loadProposal(db *gorm.DB, id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "proposal %d not found", id)
		}
		return nil, fmt.Errorf("failed to load proposal: %w", err)
	}
	return &p, nil
}

// assignmentHolder returns the verifier holding desaID under ref, nil when the
// village is in the unassigned pool.
func assignmentHolder(db *gorm.DB, ref AuthorityRef, desaID uint) (*uint, error) {
	var rows []models.VerifierAssignment
	if err := db.Where("authority_type = ? AND authority_id = ? AND desa_id = ?", ref.Type, ref.ID, desaID).
		Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return uintPtr(rows[0].VerifierID), nil
}

func requireActiveVerifier(db *gorm.DB, ref AuthorityRef) error {
	var count int64
	if err := db.Model(&models.Verifier{}).
		Where("authority_type = ? AND authority_id = ? AND is_active = ?", ref.Type, ref.ID, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count verifiers: %w", err)
	}
	if count == 0 {
		return validationError("%s %d has no active verifier configured", ref.Type, ref.ID)
	}
	return nil
}
