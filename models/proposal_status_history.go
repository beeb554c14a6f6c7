package models

import "time"

// ProposalStatusHistory tracks every transition applied to a proposal.
type ProposalStatusHistory struct {
	HistoryID     uint          `gorm:"primaryKey;column:history_id" json:"history_id"`
	ProposalID    uint          `gorm:"column:proposal_id;index" json:"proposal_id"`
	AuthorityType AuthorityType `gorm:"column:authority_type;type:varchar(20)" json:"authority_type"`
	Action        string        `gorm:"column:action" json:"action"`
	OldStatus     *string       `gorm:"column:old_status" json:"old_status"`
	NewStatus     string        `gorm:"column:new_status" json:"new_status"`
	ChangedBy     uint          `gorm:"column:changed_by" json:"changed_by"`
	Catatan       *string       `gorm:"column:catatan" json:"catatan"`
	CreatedAt     time.Time     `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for ProposalStatusHistory.
func (ProposalStatusHistory) TableName() string {
	return "proposal_status_history"
}

// AllModels lists every table owned by this service, for migrations.
func AllModels() []interface{} {
	return []interface{}{
		&Kecamatan{},
		&Desa{},
		&Dinas{},
		&Kegiatan{},
		&Proposal{},
		&Verifier{},
		&VerifierAssignment{},
		&VerifierSignature{},
		&QuestionnaireResponse{},
		&ProposalStatusHistory{},
	}
}
