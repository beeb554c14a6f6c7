package models

// Kecamatan is a district (sub-region) in the administrative hierarchy.
type Kecamatan struct {
	ID   uint   `gorm:"primaryKey;column:id" json:"id"`
	Kode string `gorm:"column:kode" json:"kode"`
	Nama string `gorm:"column:nama" json:"nama"`
}

func (Kecamatan) TableName() string { return "kecamatans" }

// Desa is a village; the unit that submits proposals.
type Desa struct {
	ID          uint   `gorm:"primaryKey;column:id" json:"id"`
	KecamatanID uint   `gorm:"column:kecamatan_id;index" json:"kecamatan_id"`
	Kode        string `gorm:"column:kode" json:"kode"`
	Nama        string `gorm:"column:nama" json:"nama"`
	Status      string `gorm:"column:status" json:"status"` // desa | kelurahan
}

func (Desa) TableName() string { return "desas" }

// Dinas is a subject-matter department.
type Dinas struct {
	ID        uint   `gorm:"primaryKey;column:id" json:"id"`
	Nama      string `gorm:"column:nama" json:"nama"`
	Singkatan string `gorm:"column:singkatan" json:"singkatan"`
}

func (Dinas) TableName() string { return "dinas" }

// Kegiatan is a program line item; each belongs to one dinas.
type Kegiatan struct {
	ID            uint   `gorm:"primaryKey;column:id" json:"id"`
	DinasID       uint   `gorm:"column:dinas_id;index" json:"dinas_id"`
	JenisKegiatan string `gorm:"column:jenis_kegiatan" json:"jenis_kegiatan"`
	NamaKegiatan  string `gorm:"column:nama_kegiatan" json:"nama_kegiatan"`
}

func (Kegiatan) TableName() string { return "kegiatans" }
