package services

import (
	"strings"
	"time"

	"bankeu-api/models"
)

// RequiredRoles lists the questionnaire roles that must all be finalized before
// an authority's minutes can be produced.
func RequiredRoles(authority models.AuthorityType) []string {
	switch authority {
	case models.AuthorityDinas:
		return []string{models.RoleVerifikator}
	case models.AuthorityKecamatan:
		return []string{models.RoleKetua, models.RoleSekretaris, models.RoleAnggota1, models.RoleAnggota2, models.RoleAnggota3}
	case models.AuthorityDPMD:
		return []string{models.RoleVerifikator}
	}
	return nil
}

func validRole(authority models.AuthorityType, role string) bool {
	for _, r := range RequiredRoles(authority) {
		if r == role {
			return true
		}
	}
	return false
}

// QuestionnaireInput is a save request for one verifier's checklist.
type QuestionnaireInput struct {
	ProposalID  uint
	Authority   models.AuthorityType
	Role        string
	VerifierID  uint
	Items       []models.QuestionnaireItem
	Rekomendasi models.Rekomendasi
	Catatan     string
	Finalize    bool
}

// validateQuestionnaire rejects incomplete checklists. Every item needs an
// explicit verdict; nothing is defaulted to "ok".
func validateQuestionnaire(in QuestionnaireInput) error {
	if in.ProposalID == 0 || in.VerifierID == 0 {
		return validationError("proposal and verifier are required")
	}
	if !in.Authority.Valid() {
		return validationError("unknown authority %q", in.Authority)
	}
	if !validRole(in.Authority, in.Role) {
		return validationError("role %q is not a %s questionnaire role", in.Role, in.Authority)
	}
	if len(in.Items) != models.QuestionnaireItemCount {
		return validationError("exactly %d items are required, got %d", models.QuestionnaireItemCount, len(in.Items))
	}
	for i, item := range in.Items {
		if !item.Verdict.Valid() {
			return validationError("item %d has invalid verdict %q", i+1, item.Verdict)
		}
	}
	if !in.Rekomendasi.Valid() {
		return validationError("rekomendasi must be one of layak, tidak_layak, perlu_revisi")
	}
	return nil
}

// checkQuestionnaireRole binds a checklist role to the verifier's jabatan, so
// one person cannot answer for several team seats.
func checkQuestionnaireRole(v models.Verifier, role string) error {
	if v.Jabatan != role {
		return notAuthorized("verifier %d holds jabatan %q and cannot fill role %q", v.ID, v.Jabatan, role)
	}
	return nil
}

// checkQuestionnaireOpen allows checklists only once the proposal has been
// handed to the authority in the current review round.
func checkQuestionnaireOpen(p *models.Proposal, authority models.AuthorityType) error {
	review := p.Review(authority)
	if review == nil {
		return validationError("unknown authority %q", authority)
	}
	if !review.Submitted {
		return invalidTransition("proposal %d has not been submitted to %s", p.ID, authority)
	}
	return nil
}

// applyQuestionnaire merges the input into the stored response. A submitted
// response is frozen.
func applyQuestionnaire(existing *models.QuestionnaireResponse, in QuestionnaireInput, now time.Time) (models.QuestionnaireResponse, error) {
	var next models.QuestionnaireResponse
	if existing != nil {
		if existing.Status == models.QuestionnaireSubmitted {
			return *existing, newError(KindAlreadySubmitted, "questionnaire %d was submitted and can no longer change", existing.ID)
		}
		next = *existing
	} else {
		next = models.QuestionnaireResponse{
			ProposalID:    in.ProposalID,
			AuthorityType: in.Authority,
			Role:          in.Role,
			VerifierID:    in.VerifierID,
			Status:        models.QuestionnaireDraft,
		}
	}

	items := make(models.QuestionnaireItems, len(in.Items))
	for i, item := range in.Items {
		items[i] = models.QuestionnaireItem{Verdict: item.Verdict, Catatan: strings.TrimSpace(item.Catatan)}
	}
	next.Items = items
	next.Rekomendasi = in.Rekomendasi
	next.Catatan = stringPtr(strings.TrimSpace(in.Catatan))
	if in.Finalize {
		next.Status = models.QuestionnaireSubmitted
		next.SubmittedAt = timePtr(now)
	}
	return next, nil
}

// RoleCompletion reports one required role of a stage checklist.
type RoleCompletion struct {
	Role         string `json:"role"`
	VerifierID   *uint  `json:"verifier_id"`
	Submitted    bool   `json:"submitted"`
	HasSignature bool   `json:"has_signature"`
}

// StageCompletion answers whether every expected reviewer has finished.
type StageCompletion struct {
	ProposalID uint                 `json:"proposal_id"`
	Authority  models.AuthorityType `json:"authority"`
	Complete   bool                 `json:"complete"`
	Roles      []RoleCompletion     `json:"roles"`
}

// evaluateCompletion checks each required role for a submitted response whose
// verifier has a signature on file. A verifier counts for one role only.
func evaluateCompletion(proposalID uint, authority models.AuthorityType, responses []models.QuestionnaireResponse, signed map[uint]bool) StageCompletion {
	result := StageCompletion{ProposalID: proposalID, Authority: authority, Complete: true}
	used := make(map[uint]string)
	for _, role := range RequiredRoles(authority) {
		rc := RoleCompletion{Role: role}
		for _, resp := range responses {
			if resp.Role != role || resp.AuthorityType != authority {
				continue
			}
			if seat, taken := used[resp.VerifierID]; taken && seat != role {
				continue
			}
			submitted := resp.Status == models.QuestionnaireSubmitted
			hasSig := signed[resp.VerifierID]
			// Prefer a finished, signed response when the role has several.
			if rc.VerifierID == nil || (submitted && hasSig) || (submitted && !rc.Submitted) {
				rc.VerifierID = uintPtr(resp.VerifierID)
				rc.Submitted = submitted
				rc.HasSignature = hasSig
			}
			if submitted && hasSig {
				break
			}
		}
		if rc.VerifierID != nil {
			used[*rc.VerifierID] = role
		}
		if !rc.Submitted || !rc.HasSignature {
			result.Complete = false
		}
		result.Roles = append(result.Roles, rc)
	}
	return result
}
