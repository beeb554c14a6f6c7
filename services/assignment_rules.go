package services

import (
	"sort"

	"bankeu-api/models"
)

type assignmentPlan struct {
	Insert      []uint
	AlreadyHeld []uint
	Conflicts   []models.VerifierAssignment
}

// normalizeIDs drops zeros and duplicates while keeping the caller's order.
func normalizeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// planAssignment splits the requested villages into rows to insert, rows the
// verifier already holds and rows held by someone else. Any conflict means the
// whole batch must be refused.
func planAssignment(verifierID uint, desaIDs []uint, existing []models.VerifierAssignment) assignmentPlan {
	holders := make(map[uint]models.VerifierAssignment, len(existing))
	for _, row := range existing {
		holders[row.DesaID] = row
	}

	var plan assignmentPlan
	for _, desaID := range desaIDs {
		row, held := holders[desaID]
		switch {
		case !held:
			plan.Insert = append(plan.Insert, desaID)
		case row.VerifierID == verifierID:
			plan.AlreadyHeld = append(plan.AlreadyHeld, desaID)
		default:
			plan.Conflicts = append(plan.Conflicts, row)
		}
	}
	return plan
}

func describeConflicts(conflicts []models.VerifierAssignment, desaNames, verifierNames map[uint]string) []AssignmentConflict {
	out := make([]AssignmentConflict, 0, len(conflicts))
	for _, row := range conflicts {
		out = append(out, AssignmentConflict{
			DesaID:       row.DesaID,
			DesaNama:     desaNames[row.DesaID],
			VerifierID:   row.VerifierID,
			VerifierNama: verifierNames[row.VerifierID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DesaID < out[j].DesaID })
	return out
}

// StatusCounts tallies proposals by one authority's review status.
type StatusCounts struct {
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Revision int `json:"revision"`
	Total    int `json:"total"`
}

func (c *StatusCounts) add(status models.ReviewStatus) {
	switch status {
	case models.ReviewPending:
		c.Pending++
	case models.ReviewInReview:
		c.InReview++
	case models.ReviewApproved:
		c.Approved++
	case models.ReviewRejected:
		c.Rejected++
	case models.ReviewRevision:
		c.Revision++
	default:
		return
	}
	c.Total++
}

// VerifierCoverage is one verifier's share of an authority's workload.
type VerifierCoverage struct {
	VerifierID uint         `json:"verifier_id"`
	Nama       string       `json:"nama"`
	Jabatan    string       `json:"jabatan"`
	JumlahDesa int          `json:"jumlah_desa"`
	Proposals  StatusCounts `json:"proposals"`
}

// UnassignedCoverage is the workload owned by the authority as a whole.
type UnassignedCoverage struct {
	JumlahDesa int          `json:"jumlah_desa"`
	Proposals  StatusCounts `json:"proposals"`
}

// CoverageReport is returned by the coverage dashboard query.
type CoverageReport struct {
	Authority  AuthorityRef       `json:"authority"`
	Tahun      int                `json:"tahun"`
	Verifiers  []VerifierCoverage `json:"verifiers"`
	Unassigned UnassignedCoverage `json:"unassigned"`
	Total      StatusCounts       `json:"total"`
}

type coverageProposal struct {
	ID     uint
	DesaID uint
	Status models.ReviewStatus
}

// buildCoverage attributes every proposal to the verifier holding its village
// or, when nobody does, to the unassigned pool.
func buildCoverage(ref AuthorityRef, year int, verifiers []models.Verifier, assignments []models.VerifierAssignment, proposals []coverageProposal) CoverageReport {
	report := CoverageReport{Authority: ref, Tahun: year, Verifiers: make([]VerifierCoverage, 0, len(verifiers))}

	index := make(map[uint]int, len(verifiers))
	for _, v := range verifiers {
		index[v.ID] = len(report.Verifiers)
		report.Verifiers = append(report.Verifiers, VerifierCoverage{VerifierID: v.ID, Nama: v.Nama, Jabatan: v.Jabatan})
	}

	holder := make(map[uint]uint, len(assignments))
	for _, a := range assignments {
		holder[a.DesaID] = a.VerifierID
		if i, ok := index[a.VerifierID]; ok {
			report.Verifiers[i].JumlahDesa++
		}
	}

	unassignedDesa := make(map[uint]struct{})
	for _, p := range proposals {
		report.Total.add(p.Status)
		if vid, ok := holder[p.DesaID]; ok {
			if i, known := index[vid]; known {
				report.Verifiers[i].Proposals.add(p.Status)
				continue
			}
		}
		unassignedDesa[p.DesaID] = struct{}{}
		report.Unassigned.Proposals.add(p.Status)
	}
	report.Unassigned.JumlahDesa = len(unassignedDesa)
	return report
}
