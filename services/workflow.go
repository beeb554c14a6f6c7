package services

import (
	"fmt"
	"strings"
	"time"

	"bankeu-api/models"
)

// Position is the proposal's place in the chain, derived from its review blocks.
type Position struct {
	Stage  models.Stage        `json:"stage"`
	Status models.ReviewStatus `json:"status,omitempty"`
}

// PositionOf derives the position from the stored columns.
func PositionOf(p models.Proposal) Position {
	switch p.Stage {
	case models.StageDinas:
		return Position{Stage: models.StageDinas, Status: p.Dinas.CurrentStatus()}
	case models.StageKecamatan:
		return Position{Stage: models.StageKecamatan, Status: p.Kecamatan.CurrentStatus()}
	case models.StageDPMD:
		return Position{Stage: models.StageDPMD, Status: p.DPMD.CurrentStatus()}
	}
	return Position{Stage: models.StageDesa}
}

func stageOf(authority models.AuthorityType) models.Stage {
	switch authority {
	case models.AuthorityDinas:
		return models.StageDinas
	case models.AuthorityKecamatan:
		return models.StageKecamatan
	case models.AuthorityDPMD:
		return models.StageDPMD
	}
	return models.StageDesa
}

func overallFor(status models.ReviewStatus) models.OverallStatus {
	switch status {
	case models.ReviewPending:
		return models.ProposalPending
	case models.ReviewInReview:
		return models.ProposalInReview
	case models.ReviewApproved:
		return models.ProposalApproved
	case models.ReviewRejected:
		return models.ProposalRejected
	case models.ReviewRevision:
		return models.ProposalRevision
	}
	return models.ProposalDraft
}

func statusPtr(s models.ReviewStatus) *models.ReviewStatus { return &s }

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sentBack(s models.ReviewStatus) bool {
	return s == models.ReviewRejected || s == models.ReviewRevision
}

// ParseVerdict accepts the decision values of the verify endpoint.
func ParseVerdict(raw string) (models.ReviewStatus, error) {
	switch models.ReviewStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case models.ReviewApproved:
		return models.ReviewApproved, nil
	case models.ReviewRejected:
		return models.ReviewRejected, nil
	case models.ReviewRevision:
		return models.ReviewRevision, nil
	}
	return "", validationError("action must be one of approved, rejected, revision")
}

// applySubmit hands p to the target authority. It returns a new value; p is
// left untouched.
func applySubmit(p models.Proposal, to models.AuthorityType, actorID uint, now time.Time) (models.Proposal, error) {
	if p.Status == models.ProposalVerified {
		return p, invalidTransition("proposal %d is already verified", p.ID)
	}

	pos := PositionOf(p)
	switch to {
	case models.AuthorityDinas:
		resubmit := pos.Stage == models.StageDinas && sentBack(pos.Status)
		if pos.Stage != models.StageDesa && !resubmit {
			return p, invalidTransition("proposal %d is at %s (%s), not at the village", p.ID, pos.Stage, pos.Status)
		}
	case models.AuthorityKecamatan:
		fromDinas := pos.Stage == models.StageDinas && pos.Status == models.ReviewApproved
		resubmit := pos.Stage == models.StageKecamatan && sentBack(pos.Status)
		if !fromDinas && !resubmit {
			return p, invalidTransition("proposal %d must be approved by dinas before it goes to kecamatan", p.ID)
		}
	case models.AuthorityDPMD:
		if pos.Stage != models.StageKecamatan || pos.Status != models.ReviewApproved {
			return p, invalidTransition("proposal %d must be approved by kecamatan before it goes to dpmd", p.ID)
		}
	default:
		return p, validationError("unknown authority %q", to)
	}

	next := p
	review := next.Review(to)
	review.Status = statusPtr(models.ReviewPending)
	review.VerifiedBy = nil
	review.VerifiedAt = nil
	review.Submitted = true
	review.SubmittedAt = timePtr(now)
	review.SubmittedBy = uintPtr(actorID)
	next.Stage = stageOf(to)
	next.Status = models.ProposalPending
	return next, nil
}

// applyStartReview moves a pending proposal into review at the given authority.
func applyStartReview(p models.Proposal, authority models.AuthorityType, actorID uint, now time.Time) (models.Proposal, error) {
	review := p.Review(authority)
	if review == nil {
		return p, validationError("unknown authority %q", authority)
	}
	if review.CurrentStatus() != models.ReviewPending {
		return p, invalidTransition("proposal %d is not pending at %s", p.ID, authority)
	}

	next := p
	r := next.Review(authority)
	r.Status = statusPtr(models.ReviewInReview)
	r.VerifiedBy = uintPtr(actorID)
	next.Status = models.ProposalInReview
	return next, nil
}

// applyDecision records an authority's verdict. A DPMD rejection or revision
// sends the proposal back to the village with every earlier review erased.
func applyDecision(p models.Proposal, authority models.AuthorityType, verdict models.ReviewStatus, catatan string, actorID uint, now time.Time) (models.Proposal, error) {
	review := p.Review(authority)
	if review == nil {
		return p, validationError("unknown authority %q", authority)
	}
	if authority == models.AuthorityDPMD && p.Kecamatan.CurrentStatus() != models.ReviewApproved {
		return p, newError(KindPrecursorNotApproved, "proposal %d has not been approved by kecamatan", p.ID)
	}
	if !review.CurrentStatus().InProgress() {
		return p, invalidTransition("proposal %d has no open review at %s (status %q)", p.ID, authority, review.CurrentStatus())
	}
	catatan = strings.TrimSpace(catatan)
	if sentBack(verdict) && catatan == "" {
		return p, validationError("catatan is required when the verdict is %s", verdict)
	}

	if authority == models.AuthorityDPMD && sentBack(verdict) {
		return resetToDesa(p, verdict, catatan, actorID, now), nil
	}

	next := p
	r := next.Review(authority)
	r.Status = statusPtr(verdict)
	r.Catatan = stringPtr(catatan)
	r.VerifiedBy = uintPtr(actorID)
	r.VerifiedAt = timePtr(now)
	next.Status = overallFor(verdict)
	if authority == models.AuthorityDPMD && verdict == models.ReviewApproved {
		next.Status = models.ProposalVerified
	}
	return next, nil
}

// resetToDesa returns p to the village as if it had never been submitted.
// Only the DPMD verdict survives so the village can see why.
func resetToDesa(p models.Proposal, verdict models.ReviewStatus, catatan string, actorID uint, now time.Time) models.Proposal {
	next := p
	next.Dinas = models.StageReview{}
	next.Kecamatan = models.StageReview{}
	next.DPMD = models.StageReview{
		Status:     statusPtr(verdict),
		Catatan:    stringPtr(catatan),
		VerifiedBy: uintPtr(actorID),
		VerifiedAt: timePtr(now),
	}
	next.Stage = models.StageDesa
	next.Status = overallFor(verdict)
	next.ReviewRound = p.ReviewRound + 1
	return next
}

// checkInvariants guards every write: at most one authority in progress, no
// kecamatan review without a dinas review, and complete submission markers.
func checkInvariants(p models.Proposal) error {
	inProgress := 0
	for _, t := range models.AuthorityTypes {
		r := p.Review(t)
		if r.CurrentStatus().InProgress() {
			inProgress++
		}
		if r.Submitted && (r.SubmittedAt == nil || r.SubmittedBy == nil) {
			return fmt.Errorf("proposal %d: %s submitted without timestamp or actor", p.ID, t)
		}
	}
	if inProgress > 1 {
		return fmt.Errorf("proposal %d: more than one authority in progress", p.ID)
	}
	if p.Kecamatan.CurrentStatus().InProgress() && p.Dinas.Status == nil {
		return fmt.Errorf("proposal %d: kecamatan in progress without dinas review", p.ID)
	}
	if p.DPMD.CurrentStatus().InProgress() && p.Kecamatan.CurrentStatus() != models.ReviewApproved {
		return fmt.Errorf("proposal %d: dpmd in progress without kecamatan approval", p.ID)
	}
	return nil
}

// stateColumns lists every column a transition may touch, including NULLs, so
// one UPDATE writes the whole new state.
func stateColumns(p models.Proposal) map[string]interface{} {
	cols := map[string]interface{}{
		"stage":        p.Stage,
		"status":       p.Status,
		"version":      p.Version,
		"review_round": p.ReviewRound,
	}
	for _, t := range models.AuthorityTypes {
		r := p.Review(t)
		prefix := string(t) + "_"
		cols[prefix+"status"] = r.Status
		cols[prefix+"catatan"] = r.Catatan
		cols[prefix+"verified_by"] = r.VerifiedBy
		cols[prefix+"verified_at"] = r.VerifiedAt
		cols[prefix+"submitted"] = r.Submitted
		cols[prefix+"submitted_at"] = r.SubmittedAt
		cols[prefix+"submitted_by"] = r.SubmittedBy
	}
	return cols
}
