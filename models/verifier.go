package models

import "time"

// Verifier is an authority staff member allowed to review proposals.
// Jabatan doubles as the questionnaire role the verifier fills in.
type Verifier struct {
	ID            uint          `gorm:"primaryKey;column:id" json:"id"`
	UserID        uint          `gorm:"column:user_id;index" json:"user_id"`
	AuthorityType AuthorityType `gorm:"column:authority_type;type:varchar(20);index:idx_verifier_authority" json:"authority_type"`
	AuthorityID   uint          `gorm:"column:authority_id;index:idx_verifier_authority" json:"authority_id"`
	Nama          string        `gorm:"column:nama" json:"nama"`
	NIP           *string       `gorm:"column:nip" json:"nip"`
	Jabatan       string        `gorm:"column:jabatan" json:"jabatan"`
	Email         *string       `gorm:"column:email" json:"email,omitempty"`
	IsActive      bool          `gorm:"column:is_active" json:"is_active"`
	CreatedAt     time.Time     `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"column:updated_at" json:"updated_at"`
}

func (Verifier) TableName() string { return "verifiers" }

// VerifierAssignment gives one verifier exclusive responsibility for one village
// within an authority. KecamatanID is copied from the village.
type VerifierAssignment struct {
	ID            uint          `gorm:"primaryKey;column:id" json:"id"`
	VerifierID    uint          `gorm:"column:verifier_id;index" json:"verifier_id"`
	AuthorityType AuthorityType `gorm:"column:authority_type;type:varchar(20);uniqueIndex:uq_assignment_village" json:"authority_type"`
	AuthorityID   uint          `gorm:"column:authority_id;uniqueIndex:uq_assignment_village" json:"authority_id"`
	DesaID        uint          `gorm:"column:desa_id;uniqueIndex:uq_assignment_village" json:"desa_id"`
	KecamatanID   uint          `gorm:"column:kecamatan_id" json:"kecamatan_id"`
	CreatedBy     uint          `gorm:"column:created_by" json:"created_by"`
	CreatedAt     time.Time     `gorm:"column:created_at" json:"created_at"`
}

func (VerifierAssignment) TableName() string { return "verifier_assignments" }

// VerifierSignature references a verifier's signature artifact held by the file store.
type VerifierSignature struct {
	ID         uint      `gorm:"primaryKey;column:id" json:"id"`
	VerifierID uint      `gorm:"column:verifier_id;uniqueIndex" json:"verifier_id"`
	FilePath   string    `gorm:"column:file_path" json:"file_path"`
	UploadedAt time.Time `gorm:"column:uploaded_at" json:"uploaded_at"`
}

func (VerifierSignature) TableName() string { return "verifier_signatures" }
