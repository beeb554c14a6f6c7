package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankeu-api/config"
	"bankeu-api/models"
	"bankeu-api/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SignatureDirectory reports which verifiers have a signature artifact on file.
type SignatureDirectory interface {
	SignedVerifiers(ctx context.Context, verifierIDs []uint) (map[uint]bool, error)
}

// GormSignatureDirectory reads verifier_signatures.
type GormSignatureDirectory struct {
	db *gorm.DB
}

func NewGormSignatureDirectory(db *gorm.DB) *GormSignatureDirectory {
	if db == nil {
		db = config.DB
	}
	return &GormSignatureDirectory{db: db}
}

func (d *GormSignatureDirectory) SignedVerifiers(ctx context.Context, verifierIDs []uint) (map[uint]bool, error) {
	signed := make(map[uint]bool, len(verifierIDs))
	if len(verifierIDs) == 0 {
		return signed, nil
	}
	var ids []uint
	if err := d.db.WithContext(ctx).Model(&models.VerifierSignature{}).
		Where("verifier_id IN ? AND file_path <> ''", verifierIDs).
		Pluck("verifier_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load signatures: %w", err)
	}
	for _, id := range ids {
		signed[id] = true
	}
	return signed, nil
}

// QuestionnaireService stores verification checklists.
type QuestionnaireService struct {
	db         *gorm.DB
	signatures SignatureDirectory
	now        func() time.Time
}

func NewQuestionnaireService(db *gorm.DB, signatures SignatureDirectory) *QuestionnaireService {
	if db == nil {
		db = config.DB
	}
	if signatures == nil {
		signatures = NewGormSignatureDirectory(db)
	}
	return &QuestionnaireService{db: db, signatures: signatures, now: time.Now}
}

// Upsert saves one verifier's checklist for a proposal. Finalizing freezes it.
func (s *QuestionnaireService) Upsert(ctx context.Context, actor Actor, in QuestionnaireInput) (*models.QuestionnaireResponse, error) {
	if err := validateQuestionnaire(in); err != nil {
		return nil, err
	}
	in.Catatan = utils.SanitizeNote(in.Catatan)
	for i := range in.Items {
		in.Items[i].Catatan = utils.SanitizeNote(in.Items[i].Catatan)
	}

	var saved models.QuestionnaireResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProposal(tx, in.ProposalID)
		if err != nil {
			return err
		}
		if err := checkQuestionnaireOpen(p, in.Authority); err != nil {
			return err
		}
		ref := ProposalAuthority(p, in.Authority)
		verifier, err := loadVerifier(tx, ref, in.VerifierID)
		if err != nil {
			return err
		}
		if err := checkQuestionnaireRole(*verifier, in.Role); err != nil {
			return err
		}
		var holder *uint
		if in.Authority != models.AuthorityKecamatan {
			if holder, err = assignmentHolder(tx, ref, p.DesaID); err != nil {
				return err
			}
		}
		if err := authorizeQuestionnaire(actor, p, in.Authority, in.VerifierID, holder); err != nil {
			return err
		}

		var rows []models.QuestionnaireResponse
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("proposal_id = ? AND authority_type = ? AND role = ? AND verifier_id = ? AND review_round = ?", in.ProposalID, in.Authority, in.Role, in.VerifierID, p.ReviewRound).
			Limit(1).Find(&rows).Error; err != nil {
			return fmt.Errorf("failed to load questionnaire: %w", err)
		}
		var existing *models.QuestionnaireResponse
		if len(rows) > 0 {
			existing = &rows[0]
		}

		next, err := applyQuestionnaire(existing, in, s.now())
		if err != nil {
			return err
		}
		next.Round = p.ReviewRound
		if err := tx.Save(&next).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return newError(KindConcurrentModification, "questionnaire for proposal %d was saved concurrently", in.ProposalID)
			}
			return fmt.Errorf("failed to save questionnaire: %w", err)
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Get returns one verifier's checklist.
func (s *QuestionnaireService) Get(ctx context.Context, actor Actor, proposalID uint, authority models.AuthorityType, role string, verifierID uint) (*models.QuestionnaireResponse, error) {
	p, err := s.viewableProposal(ctx, actor, proposalID)
	if err != nil {
		return nil, err
	}
	var resp models.QuestionnaireResponse
	err = s.db.WithContext(ctx).
		Where("proposal_id = ? AND authority_type = ? AND role = ? AND verifier_id = ? AND review_round = ?", proposalID, authority, role, verifierID, p.ReviewRound).
		First(&resp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "no %s questionnaire for role %s on proposal %d", authority, role, proposalID)
		}
		return nil, fmt.Errorf("failed to load questionnaire: %w", err)
	}
	return &resp, nil
}

// List returns every checklist an authority has for a proposal in its current
// review round. Checklists of earlier rounds stay stored but are not listed.
func (s *QuestionnaireService) List(ctx context.Context, actor Actor, proposalID uint, authority models.AuthorityType) ([]models.QuestionnaireResponse, error) {
	p, err := s.viewableProposal(ctx, actor, proposalID)
	if err != nil {
		return nil, err
	}
	rows := []models.QuestionnaireResponse{}
	if err := s.db.WithContext(ctx).
		Where("proposal_id = ? AND authority_type = ? AND review_round = ?", proposalID, authority, p.ReviewRound).
		Order("role, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load questionnaires: %w", err)
	}
	return rows, nil
}

// IsStageComplete reports whether every required role of the authority has a
// finalized, signed checklist. It gates the minutes document only.
func (s *QuestionnaireService) IsStageComplete(ctx context.Context, actor Actor, proposalID uint, authority models.AuthorityType) (*StageCompletion, error) {
	switch authority {
	case models.AuthorityDinas, models.AuthorityKecamatan:
	case models.AuthorityDPMD:
		return nil, validationError("dpmd does not produce verification minutes")
	default:
		return nil, validationError("unknown authority %q", authority)
	}
	responses, err := s.List(ctx, actor, proposalID, authority)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(responses))
	for _, r := range responses {
		if r.Status == models.QuestionnaireSubmitted {
			ids = append(ids, r.VerifierID)
		}
	}
	signed, err := s.signatures.SignedVerifiers(ctx, normalizeIDs(ids))
	if err != nil {
		return nil, err
	}
	result := evaluateCompletion(proposalID, authority, responses, signed)
	return &result, nil
}

func (s *QuestionnaireService) viewableProposal(ctx context.Context, actor Actor, proposalID uint) (*models.Proposal, error) {
	p, err := loadProposal(s.db.WithContext(ctx), proposalID)
	if err != nil {
		return nil, err
	}
	if err := authorizeViewProposal(actor, p); err != nil {
		return nil, err
	}
	return p, nil
}
