package services

import (
	"sort"
	"time"

	"bankeu-api/models"

	"github.com/shopspring/decimal"
)

// TrackingStage is the coarse public stage of a proposal.
type TrackingStage string

const (
	TrackingSelesai     TrackingStage = "selesai"
	TrackingDiKecamatan TrackingStage = "di_kecamatan"
	TrackingDiDinas     TrackingStage = "di_dinas"
	TrackingDiDesa      TrackingStage = "di_desa"
)

// ClassifyTrackingStage applies the most-advanced-first precedence.
func ClassifyTrackingStage(p models.Proposal) TrackingStage {
	switch {
	case p.Status == models.ProposalVerified,
		p.DPMD.Submitted,
		p.Kecamatan.CurrentStatus() == models.ReviewApproved:
		return TrackingSelesai
	case p.Kecamatan.Submitted:
		return TrackingDiKecamatan
	case p.Dinas.Submitted:
		return TrackingDiDinas
	}
	return TrackingDiDesa
}

// hasProposed is true once the proposal has actually reached Dinas.
func hasProposed(p models.Proposal) bool {
	return p.Dinas.Submitted || p.Kecamatan.Submitted || p.DPMD.Submitted || p.Status == models.ProposalVerified
}

// ClampBudget caps a single amount at the display ceiling. Negative amounts
// count as zero.
func ClampBudget(amount, ceiling decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	if ceiling.IsPositive() && amount.GreaterThan(ceiling) {
		return ceiling
	}
	return amount
}

// StageCounts tallies proposals per public stage.
type StageCounts struct {
	DiDesa      int `json:"di_desa"`
	DiDinas     int `json:"di_dinas"`
	DiKecamatan int `json:"di_kecamatan"`
	Selesai     int `json:"selesai"`
}

func (c *StageCounts) add(stage TrackingStage) {
	switch stage {
	case TrackingSelesai:
		c.Selesai++
	case TrackingDiKecamatan:
		c.DiKecamatan++
	case TrackingDiDinas:
		c.DiDinas++
	default:
		c.DiDesa++
	}
}

type TrackingDesa struct {
	DesaID         uint            `json:"desa_id"`
	Nama           string          `json:"nama"`
	SudahMengusul  bool            `json:"sudah_mengusulkan"`
	JumlahProposal int             `json:"jumlah_proposal"`
	Tahapan        StageCounts     `json:"tahapan"`
	TotalAnggaran  decimal.Decimal `json:"total_anggaran"`
}

type TrackingKecamatan struct {
	KecamatanID     uint            `json:"kecamatan_id"`
	Nama            string          `json:"nama"`
	JumlahDesa      int             `json:"jumlah_desa"`
	DesaMengusulkan int             `json:"desa_mengusulkan"`
	JumlahProposal  int             `json:"jumlah_proposal"`
	Tahapan         StageCounts     `json:"tahapan"`
	TotalAnggaran   decimal.Decimal `json:"total_anggaran"`
	Desa            []TrackingDesa  `json:"desa"`
}

type TrackingTotals struct {
	JumlahKecamatan       int             `json:"jumlah_kecamatan"`
	JumlahDesa            int             `json:"jumlah_desa"`
	DesaMengusulkan       int             `json:"desa_mengusulkan"`
	PersentasePartisipasi float64         `json:"persentase_partisipasi"`
	JumlahProposal        int             `json:"jumlah_proposal"`
	Tahapan               StageCounts     `json:"tahapan"`
	TotalAnggaran         decimal.Decimal `json:"total_anggaran"`
}

// TrackingSummary is the public dashboard projection for one budget year.
type TrackingSummary struct {
	Tahun         int                 `json:"tahun"`
	BatasAnggaran decimal.Decimal     `json:"batas_anggaran"`
	Kecamatan     []TrackingKecamatan `json:"kecamatan"`
	Total         TrackingTotals      `json:"total"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// BuildTrackingSummary derives the projection from directory rows and the
// year's proposals. It has no side effects.
func BuildTrackingSummary(year int, kecamatans []models.Kecamatan, desas []models.Desa, proposals []models.Proposal, ceiling decimal.Decimal, now time.Time) TrackingSummary {
	type desaAcc struct {
		row      TrackingDesa
		proposed bool
	}
	type kecAcc struct {
		row   TrackingKecamatan
		desas map[uint]*desaAcc
		order []uint
	}

	kecs := make(map[uint]*kecAcc, len(kecamatans))
	kecOrder := make([]uint, 0, len(kecamatans))
	ensureKec := func(id uint, nama string) *kecAcc {
		if acc, ok := kecs[id]; ok {
			return acc
		}
		acc := &kecAcc{
			row:   TrackingKecamatan{KecamatanID: id, Nama: nama, TotalAnggaran: decimal.Zero},
			desas: make(map[uint]*desaAcc),
		}
		kecs[id] = acc
		kecOrder = append(kecOrder, id)
		return acc
	}
	ensureDesa := func(kec *kecAcc, id uint, nama string) *desaAcc {
		if acc, ok := kec.desas[id]; ok {
			return acc
		}
		acc := &desaAcc{row: TrackingDesa{DesaID: id, Nama: nama, TotalAnggaran: decimal.Zero}}
		kec.desas[id] = acc
		kec.order = append(kec.order, id)
		return acc
	}

	for _, k := range kecamatans {
		ensureKec(k.ID, k.Nama)
	}
	desaKec := make(map[uint]uint, len(desas))
	for _, d := range desas {
		desaKec[d.ID] = d.KecamatanID
		ensureDesa(ensureKec(d.KecamatanID, ""), d.ID, d.Nama)
	}

	for _, p := range proposals {
		kecID, known := desaKec[p.DesaID]
		if !known {
			kecID = p.KecamatanID
		}
		desa := ensureDesa(ensureKec(kecID, ""), p.DesaID, "")

		stage := ClassifyTrackingStage(p)
		amount := ClampBudget(p.AnggaranUsulan, ceiling)

		desa.row.JumlahProposal++
		desa.row.Tahapan.add(stage)
		desa.row.TotalAnggaran = desa.row.TotalAnggaran.Add(amount)
		if hasProposed(p) {
			desa.proposed = true
		}
	}

	summary := TrackingSummary{
		Tahun:         year,
		BatasAnggaran: ceiling,
		Kecamatan:     make([]TrackingKecamatan, 0, len(kecOrder)),
		Total:         TrackingTotals{TotalAnggaran: decimal.Zero},
		GeneratedAt:   now,
	}

	for _, kecID := range kecOrder {
		kec := kecs[kecID]
		row := kec.row
		row.Desa = make([]TrackingDesa, 0, len(kec.order))
		for _, desaID := range kec.order {
			d := kec.desas[desaID]
			d.row.SudahMengusul = d.proposed
			row.JumlahDesa++
			if d.proposed {
				row.DesaMengusulkan++
			}
			row.JumlahProposal += d.row.JumlahProposal
			row.Tahapan.DiDesa += d.row.Tahapan.DiDesa
			row.Tahapan.DiDinas += d.row.Tahapan.DiDinas
			row.Tahapan.DiKecamatan += d.row.Tahapan.DiKecamatan
			row.Tahapan.Selesai += d.row.Tahapan.Selesai
			row.TotalAnggaran = row.TotalAnggaran.Add(d.row.TotalAnggaran)
			row.Desa = append(row.Desa, d.row)
		}
		sort.SliceStable(row.Desa, func(i, j int) bool { return row.Desa[i].Nama < row.Desa[j].Nama })

		summary.Total.JumlahKecamatan++
		summary.Total.JumlahDesa += row.JumlahDesa
		summary.Total.DesaMengusulkan += row.DesaMengusulkan
		summary.Total.JumlahProposal += row.JumlahProposal
		summary.Total.Tahapan.DiDesa += row.Tahapan.DiDesa
		summary.Total.Tahapan.DiDinas += row.Tahapan.DiDinas
		summary.Total.Tahapan.DiKecamatan += row.Tahapan.DiKecamatan
		summary.Total.Tahapan.Selesai += row.Tahapan.Selesai
		summary.Total.TotalAnggaran = summary.Total.TotalAnggaran.Add(row.TotalAnggaran)
		summary.Kecamatan = append(summary.Kecamatan, row)
	}
	sort.SliceStable(summary.Kecamatan, func(i, j int) bool { return summary.Kecamatan[i].Nama < summary.Kecamatan[j].Nama })

	if summary.Total.JumlahDesa > 0 {
		pct := float64(summary.Total.DesaMengusulkan) * 100 / float64(summary.Total.JumlahDesa)
		summary.Total.PersentasePartisipasi = float64(int(pct*100+0.5)) / 100
	}
	return summary
}
