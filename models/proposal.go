package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuthorityType identifies one of the three reviewing organizations.
type AuthorityType string

const (
	AuthorityDinas     AuthorityType = "dinas"
	AuthorityKecamatan AuthorityType = "kecamatan"
	AuthorityDPMD      AuthorityType = "dpmd"
)

// DPMDAuthorityID is the id of the single final-approving agency.
const DPMDAuthorityID uint = 1

// AuthorityTypes lists the chain in review order.
var AuthorityTypes = []AuthorityType{AuthorityDinas, AuthorityKecamatan, AuthorityDPMD}

func (a AuthorityType) Valid() bool {
	switch a {
	case AuthorityDinas, AuthorityKecamatan, AuthorityDPMD:
		return true
	}
	return false
}

// ReviewStatus is the per-authority decision state.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewInReview ReviewStatus = "in_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewRevision ReviewStatus = "revision"
)

// InProgress reports whether the authority still owes a decision.
func (s ReviewStatus) InProgress() bool {
	return s == ReviewPending || s == ReviewInReview
}

// Stage is the furthest authority a proposal has been handed to.
type Stage string

const (
	StageDesa      Stage = "desa"
	StageDinas     Stage = "dinas"
	StageKecamatan Stage = "kecamatan"
	StageDPMD      Stage = "dpmd"
)

// OverallStatus mirrors the status at the current stage for fast filtering.
type OverallStatus string

const (
	ProposalDraft    OverallStatus = "draft"
	ProposalPending  OverallStatus = "pending"
	ProposalInReview OverallStatus = "in_review"
	ProposalApproved OverallStatus = "approved"
	ProposalRejected OverallStatus = "rejected"
	ProposalRevision OverallStatus = "revision"
	ProposalVerified OverallStatus = "verified"
)

// StageReview is the review block stored once per authority on a proposal.
type StageReview struct {
	Status      *ReviewStatus `gorm:"column:status;type:varchar(20)" json:"status"`
	Catatan     *string       `gorm:"column:catatan;type:text" json:"catatan"`
	VerifiedBy  *uint         `gorm:"column:verified_by" json:"verified_by"`
	VerifiedAt  *time.Time    `gorm:"column:verified_at" json:"verified_at"`
	Submitted   bool          `gorm:"column:submitted;not null" json:"submitted"`
	SubmittedAt *time.Time    `gorm:"column:submitted_at" json:"submitted_at"`
	SubmittedBy *uint         `gorm:"column:submitted_by" json:"submitted_by"`
}

// CurrentStatus returns the review status or "" when the authority has none.
func (r StageReview) CurrentStatus() ReviewStatus {
	if r.Status == nil {
		return ""
	}
	return *r.Status
}

// Proposal is a village's bankeu request and its position in the review chain.
type Proposal struct {
	ID                   uint            `gorm:"primaryKey;column:id" json:"id"`
	DesaID               uint            `gorm:"column:desa_id;index" json:"desa_id"`
	KecamatanID          uint            `gorm:"column:kecamatan_id;index" json:"kecamatan_id"`
	KegiatanID           uint            `gorm:"column:kegiatan_id" json:"kegiatan_id"`
	DinasID              uint            `gorm:"column:dinas_id;index" json:"dinas_id"`
	TahunAnggaran        int             `gorm:"column:tahun_anggaran;index" json:"tahun_anggaran"`
	Judul                string          `gorm:"column:judul" json:"judul"`
	NamaKegiatanSpesifik string          `gorm:"column:nama_kegiatan_spesifik" json:"nama_kegiatan_spesifik"`
	Volume               string          `gorm:"column:volume" json:"volume"`
	Lokasi               string          `gorm:"column:lokasi" json:"lokasi"`
	AnggaranUsulan       decimal.Decimal `gorm:"column:anggaran_usulan;type:decimal(15,2)" json:"anggaran_usulan"`
	FileProposal         *string         `gorm:"column:file_proposal" json:"file_proposal"`

	Dinas     StageReview `gorm:"embedded;embeddedPrefix:dinas_" json:"dinas"`
	Kecamatan StageReview `gorm:"embedded;embeddedPrefix:kecamatan_" json:"kecamatan"`
	DPMD      StageReview `gorm:"embedded;embeddedPrefix:dpmd_" json:"dpmd"`

	Stage   Stage         `gorm:"column:stage;type:varchar(20);index" json:"stage"`
	Status  OverallStatus `gorm:"column:status;type:varchar(20);index" json:"status"`
	Version uint          `gorm:"column:version;not null" json:"version"`

	// ReviewRound counts DPMD resets; questionnaires belong to one round.
	ReviewRound uint `gorm:"column:review_round;not null" json:"review_round"`

	CreatedBy uint      `gorm:"column:created_by" json:"created_by"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Proposal) TableName() string {
	return "proposals"
}

// Review returns the review block for the given authority.
func (p *Proposal) Review(authority AuthorityType) *StageReview {
	switch authority {
	case AuthorityDinas:
		return &p.Dinas
	case AuthorityKecamatan:
		return &p.Kecamatan
	case AuthorityDPMD:
		return &p.DPMD
	}
	return nil
}

// AuthorityID resolves which organization of the given type owns this proposal.
func (p *Proposal) AuthorityID(authority AuthorityType) uint {
	switch authority {
	case AuthorityDinas:
		return p.DinasID
	case AuthorityKecamatan:
		return p.KecamatanID
	case AuthorityDPMD:
		return DPMDAuthorityID
	}
	return 0
}
