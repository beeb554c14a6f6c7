package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bankeu-api/config"
	"bankeu-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignedVillage is one row of a verifier's village list.
type AssignedVillage struct {
	AssignmentID  uint      `json:"assignment_id"`
	DesaID        uint      `json:"desa_id"`
	DesaNama      string    `json:"desa_nama"`
	KecamatanID   uint      `json:"kecamatan_id"`
	KecamatanNama string    `json:"kecamatan_nama"`
	CreatedAt     time.Time `json:"created_at"`
}

// AvailableVillage is a village nobody under the authority covers yet.
type AvailableVillage struct {
	DesaID        uint   `json:"desa_id"`
	DesaNama      string `json:"desa_nama"`
	KecamatanID   uint   `json:"kecamatan_id"`
	KecamatanNama string `json:"kecamatan_nama"`
}

// AssignResult reports what an accepted batch changed.
type AssignResult struct {
	Assigned    []uint `json:"assigned"`
	AlreadyHeld []uint `json:"already_held"`
}

// AssignmentService maintains the exclusive verifier-to-village registry.
type AssignmentService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAssignmentService(db *gorm.DB) *AssignmentService {
	if db == nil {
		db = config.DB
	}
	return &AssignmentService{db: db, now: time.Now}
}

// Assign gives verifierID the listed villages. The batch is all-or-nothing: a
// single village held by another verifier refuses it with every conflict listed.
func (s *AssignmentService) Assign(ctx context.Context, actor Actor, ref AuthorityRef, verifierID uint, desaIDs []uint) (*AssignResult, error) {
	if err := authorizeManageAssignments(actor, ref); err != nil {
		return nil, err
	}
	ids := normalizeIDs(desaIDs)
	if len(ids) == 0 {
		return nil, validationError("desa_ids must list at least one village")
	}

	now := s.now()
	result := &AssignResult{}
	var desaByID map[uint]models.Desa
	lostRace := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		verifier, err := loadVerifier(tx, ref, verifierID)
		if err != nil {
			return err
		}
		if !verifier.IsActive {
			return validationError("verifier %d is inactive", verifierID)
		}

		var desas []models.Desa
		if err := tx.Where("id IN ?", ids).Find(&desas).Error; err != nil {
			return fmt.Errorf("failed to load desas: %w", err)
		}
		desaByID = make(map[uint]models.Desa, len(desas))
		for _, d := range desas {
			desaByID[d.ID] = d
		}
		for _, id := range ids {
			d, ok := desaByID[id]
			if !ok {
				return validationError("desa %d not found", id)
			}
			if ref.Type == models.AuthorityKecamatan && d.KecamatanID != ref.ID {
				return validationError("desa %d is outside kecamatan %d", id, ref.ID)
			}
		}

		var existing []models.VerifierAssignment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("authority_type = ? AND authority_id = ? AND desa_id IN ?", ref.Type, ref.ID, ids).
			Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load assignments: %w", err)
		}

		plan := planAssignment(verifierID, ids, existing)
		if len(plan.Conflicts) > 0 {
			return s.conflictError(tx, plan.Conflicts, desaByID)
		}

		rows := make([]models.VerifierAssignment, 0, len(plan.Insert))
		for _, id := range plan.Insert {
			rows = append(rows, models.VerifierAssignment{
				VerifierID:    verifierID,
				AuthorityType: ref.Type,
				AuthorityID:   ref.ID,
				DesaID:        id,
				KecamatanID:   desaByID[id].KecamatanID,
				CreatedBy:     actor.UserID,
				CreatedAt:     now,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					lostRace = true
					return err
				}
				return fmt.Errorf("failed to create assignments: %w", err)
			}
		}

		result.Assigned = plan.Insert
		result.AlreadyHeld = plan.AlreadyHeld
		return nil
	})
	if lostRace {
		// The failed transaction is gone; read the winners outside it.
		err = s.raceConflict(ctx, ref, verifierID, ids, desaByID)
	}
	if err != nil {
		if KindOf(err) == KindAssignmentConflict {
			assignmentConflictsTotal.Inc()
		}
		return nil, err
	}
	return result, nil
}

// raceConflict describes the villages a concurrent batch took first.
func (s *AssignmentService) raceConflict(ctx context.Context, ref AuthorityRef, verifierID uint, ids []uint, desaByID map[uint]models.Desa) error {
	db := s.db.WithContext(ctx)
	var existing []models.VerifierAssignment
	if err := db.Where("authority_type = ? AND authority_id = ? AND desa_id IN ?", ref.Type, ref.ID, ids).
		Find(&existing).Error; err != nil {
		return fmt.Errorf("failed to load assignments: %w", err)
	}
	plan := planAssignment(verifierID, ids, existing)
	if len(plan.Conflicts) == 0 {
		return newError(KindAssignmentConflict, "villages were assigned concurrently; reload and retry")
	}
	return s.conflictError(db, plan.Conflicts, desaByID)
}

func (s *AssignmentService) conflictError(tx *gorm.DB, conflicts []models.VerifierAssignment, desaByID map[uint]models.Desa) error {
	holderIDs := make([]uint, 0, len(conflicts))
	for _, c := range conflicts {
		holderIDs = append(holderIDs, c.VerifierID)
	}
	var holders []models.Verifier
	if err := tx.Where("id IN ?", normalizeIDs(holderIDs)).Find(&holders).Error; err != nil {
		return fmt.Errorf("failed to load conflicting verifiers: %w", err)
	}

	verifierNames := make(map[uint]string, len(holders))
	for _, v := range holders {
		verifierNames[v.ID] = v.Nama
	}
	desaNames := make(map[uint]string, len(desaByID))
	for id, d := range desaByID {
		desaNames[id] = d.Nama
	}

	e := newError(KindAssignmentConflict, "%d village(s) are already assigned to another verifier", len(conflicts))
	e.Conflicts = describeConflicts(conflicts, desaNames, verifierNames)
	return e
}

// Unassign removes the listed villages from verifierID. Villages the verifier
// does not hold are ignored, so repeating the call is harmless.
func (s *AssignmentService) Unassign(ctx context.Context, actor Actor, ref AuthorityRef, verifierID uint, desaIDs []uint) (int64, error) {
	if err := authorizeManageAssignments(actor, ref); err != nil {
		return 0, err
	}
	ids := normalizeIDs(desaIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("authority_type = ? AND authority_id = ? AND verifier_id = ? AND desa_id IN ?", ref.Type, ref.ID, verifierID, ids).
		Delete(&models.VerifierAssignment{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to remove assignments: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// AssignedVillages lists the villages verifierID covers under ref.
func (s *AssignmentService) AssignedVillages(ctx context.Context, actor Actor, ref AuthorityRef, verifierID uint) ([]AssignedVillage, error) {
	if err := authorizeViewAuthority(actor, ref); err != nil {
		return nil, err
	}
	if _, err := loadVerifier(s.db.WithContext(ctx), ref, verifierID); err != nil {
		return nil, err
	}

	rows := []AssignedVillage{}
	err := s.db.WithContext(ctx).
		Table("verifier_assignments va").
		Select("va.id AS assignment_id, va.desa_id, d.nama AS desa_nama, va.kecamatan_id, k.nama AS kecamatan_nama, va.created_at").
		Joins("JOIN desas d ON d.id = va.desa_id").
		Joins("LEFT JOIN kecamatans k ON k.id = va.kecamatan_id").
		Where("va.authority_type = ? AND va.authority_id = ? AND va.verifier_id = ?", ref.Type, ref.ID, verifierID).
		Order("k.nama, d.nama").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned villages: %w", err)
	}
	return rows, nil
}

// AvailableVillages lists villages without any verifier under ref. Kecamatan
// authorities only see their own villages.
func (s *AssignmentService) AvailableVillages(ctx context.Context, actor Actor, ref AuthorityRef) ([]AvailableVillage, error) {
	if err := authorizeViewAuthority(actor, ref); err != nil {
		return nil, err
	}

	taken := s.db.Model(&models.VerifierAssignment{}).
		Select("desa_id").
		Where("authority_type = ? AND authority_id = ?", ref.Type, ref.ID)

	query := s.db.WithContext(ctx).
		Table("desas d").
		Select("d.id AS desa_id, d.nama AS desa_nama, d.kecamatan_id, k.nama AS kecamatan_nama").
		Joins("LEFT JOIN kecamatans k ON k.id = d.kecamatan_id").
		Where("d.id NOT IN (?)", taken)
	if ref.Type == models.AuthorityKecamatan {
		query = query.Where("d.kecamatan_id = ?", ref.ID)
	}

	rows := []AvailableVillage{}
	if err := query.Order("k.nama, d.nama").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load available villages: %w", err)
	}
	return rows, nil
}

// CoverageStats counts the authority's proposals for year per verifier and for
// the unassigned pool, using that authority's review status.
func (s *AssignmentService) CoverageStats(ctx context.Context, actor Actor, ref AuthorityRef, year int) (*CoverageReport, error) {
	if err := authorizeViewAuthority(actor, ref); err != nil {
		return nil, err
	}
	year = config.Workflow.YearOrDefault(year)
	db := s.db.WithContext(ctx)

	var verifiers []models.Verifier
	if err := db.Where("authority_type = ? AND authority_id = ? AND is_active = ?", ref.Type, ref.ID, true).
		Order("nama").Find(&verifiers).Error; err != nil {
		return nil, fmt.Errorf("failed to load verifiers: %w", err)
	}
	var assignments []models.VerifierAssignment
	if err := db.Where("authority_type = ? AND authority_id = ?", ref.Type, ref.ID).
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	statusCol, scopeCol := coverageColumns(ref.Type)
	if statusCol == "" {
		return nil, validationError("unknown authority %q", ref.Type)
	}
	query := db.Model(&models.Proposal{}).
		Select("id, desa_id, "+statusCol+" AS status").
		Where("tahun_anggaran = ? AND "+statusCol+" IS NOT NULL", year)
	if scopeCol != "" {
		query = query.Where(scopeCol+" = ?", ref.ID)
	}
	var proposals []coverageProposal
	if err := query.Scan(&proposals).Error; err != nil {
		return nil, fmt.Errorf("failed to load proposals: %w", err)
	}

	report := buildCoverage(ref, year, verifiers, assignments, proposals)
	return &report, nil
}

// coverageColumns maps an authority to its fixed status and scope columns.
func coverageColumns(t models.AuthorityType) (status, scope string) {
	switch t {
	case models.AuthorityDinas:
		return "dinas_status", "dinas_id"
	case models.AuthorityKecamatan:
		return "kecamatan_status", "kecamatan_id"
	case models.AuthorityDPMD:
		return "dpmd_status", ""
	}
	return "", ""
}

func loadVerifier(db *gorm.DB, ref AuthorityRef, verifierID uint) (*models.Verifier, error) {
	var v models.Verifier
	err := db.Where("id = ? AND authority_type = ? AND authority_id = ?", verifierID, ref.Type, ref.ID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindNotFound, "verifier %d not found in %s %d", verifierID, ref.Type, ref.ID)
		}
		return nil, fmt.Errorf("failed to load verifier: %w", err)
	}
	return &v, nil
}
