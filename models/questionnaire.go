package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// QuestionnaireItemCount is the fixed size of the verification checklist.
const QuestionnaireItemCount = 13

// ItemVerdict is a reviewer's finding on one checklist item.
type ItemVerdict string

const (
	VerdictOK             ItemVerdict = "ok"
	VerdictTidakLengkap   ItemVerdict = "tidak_lengkap"
	VerdictTidakSesuai    ItemVerdict = "tidak_sesuai"
	VerdictPerluPerbaikan ItemVerdict = "perlu_perbaikan"
)

func (v ItemVerdict) Valid() bool {
	switch v {
	case VerdictOK, VerdictTidakLengkap, VerdictTidakSesuai, VerdictPerluPerbaikan:
		return true
	}
	return false
}

// Rekomendasi is the reviewer's overall recommendation.
type Rekomendasi string

const (
	RekomendasiLayak       Rekomendasi = "layak"
	RekomendasiTidakLayak  Rekomendasi = "tidak_layak"
	RekomendasiPerluRevisi Rekomendasi = "perlu_revisi"
)

func (r Rekomendasi) Valid() bool {
	switch r {
	case RekomendasiLayak, RekomendasiTidakLayak, RekomendasiPerluRevisi:
		return true
	}
	return false
}

// QuestionnaireStatus tracks whether a response can still be edited.
type QuestionnaireStatus string

const (
	QuestionnaireDraft     QuestionnaireStatus = "draft"
	QuestionnaireSubmitted QuestionnaireStatus = "submitted"
)

// Questionnaire roles. Dinas and DPMD have a single verifier; kecamatan reviews
// with a five-member team.
const (
	RoleVerifikator = "verifikator"
	RoleKetua       = "ketua"
	RoleSekretaris  = "sekretaris"
	RoleAnggota1    = "anggota_1"
	RoleAnggota2    = "anggota_2"
	RoleAnggota3    = "anggota_3"
)

// QuestionnaireItem is one scored checklist entry.
type QuestionnaireItem struct {
	Verdict ItemVerdict `json:"verdict"`
	Catatan string      `json:"catatan,omitempty"`
}

// QuestionnaireItems is stored as a JSON array in a single column.
type QuestionnaireItems []QuestionnaireItem

func (items QuestionnaireItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (items *QuestionnaireItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*items = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported questionnaire items type %T", src)
	}
	if len(raw) == 0 {
		*items = nil
		return nil
	}
	var decoded []QuestionnaireItem
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return errors.New("invalid questionnaire items payload")
	}
	*items = decoded
	return nil
}

// QuestionnaireResponse is one verifier's checklist for one proposal.
type QuestionnaireResponse struct {
	ID            uint                `gorm:"primaryKey;column:id" json:"id"`
	ProposalID    uint                `gorm:"column:proposal_id;uniqueIndex:uq_questionnaire_owner" json:"proposal_id"`
	AuthorityType AuthorityType       `gorm:"column:authority_type;type:varchar(20);uniqueIndex:uq_questionnaire_owner" json:"authority_type"`
	Role          string              `gorm:"column:role;type:varchar(30);uniqueIndex:uq_questionnaire_owner" json:"role"`
	VerifierID    uint                `gorm:"column:verifier_id;uniqueIndex:uq_questionnaire_owner" json:"verifier_id"`
	Round         uint                `gorm:"column:review_round;not null;uniqueIndex:uq_questionnaire_owner" json:"review_round"`
	Items         QuestionnaireItems  `gorm:"column:items;type:text" json:"items"`
	Rekomendasi   Rekomendasi         `gorm:"column:rekomendasi;type:varchar(20)" json:"rekomendasi"`
	Catatan       *string             `gorm:"column:catatan;type:text" json:"catatan"`
	Status        QuestionnaireStatus `gorm:"column:status;type:varchar(20)" json:"status"`
	SubmittedAt   *time.Time          `gorm:"column:submitted_at" json:"submitted_at"`
	CreatedAt     time.Time           `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at" json:"updated_at"`
}

func (QuestionnaireResponse) TableName() string { return "questionnaire_responses" }
