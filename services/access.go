package services

import (
	"bankeu-api/models"
)

// Role is the caller's organizational role as carried in the access token.
type Role string

const (
	RoleDesa              Role = "desa"
	RoleDinas             Role = "dinas"
	RoleDinasVerifier     Role = "verifikator_dinas"
	RoleKecamatan         Role = "kecamatan"
	RoleKecamatanVerifier Role = "verifikator_kecamatan"
	RoleDPMD              Role = "dpmd"
	RoleDPMDVerifier      Role = "verifikator_dpmd"
	RoleSuperAdmin        Role = "superadmin"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID      uint
	Role        Role
	DesaID      uint
	DinasID     uint
	KecamatanID uint
	// VerifierID is the caller's verifier account, zero for non-verifiers.
	VerifierID uint
}

// AuthorityRef identifies one concrete reviewing organization.
type AuthorityRef struct {
	Type models.AuthorityType `json:"type"`
	ID   uint                 `json:"id"`
}

// authority returns the organization the actor works for and whether the actor
// holds authority-wide privilege there.
func (a Actor) authority() (AuthorityRef, bool, bool) {
	switch a.Role {
	case RoleDinas:
		return AuthorityRef{Type: models.AuthorityDinas, ID: a.DinasID}, true, true
	case RoleDinasVerifier:
		return AuthorityRef{Type: models.AuthorityDinas, ID: a.DinasID}, false, true
	case RoleKecamatan:
		return AuthorityRef{Type: models.AuthorityKecamatan, ID: a.KecamatanID}, true, true
	case RoleKecamatanVerifier:
		return AuthorityRef{Type: models.AuthorityKecamatan, ID: a.KecamatanID}, false, true
	case RoleDPMD:
		return AuthorityRef{Type: models.AuthorityDPMD, ID: models.DPMDAuthorityID}, true, true
	case RoleDPMDVerifier:
		return AuthorityRef{Type: models.AuthorityDPMD, ID: models.DPMDAuthorityID}, false, true
	}
	return AuthorityRef{}, false, false
}

// worksFor reports whether the actor is staff of the given organization.
func (a Actor) worksFor(ref AuthorityRef) bool {
	own, _, ok := a.authority()
	return ok && own == ref && ref.ID != 0
}

// isAdminOf reports authority-wide privilege over ref.
func (a Actor) isAdminOf(ref AuthorityRef) bool {
	own, admin, ok := a.authority()
	return ok && admin && own == ref && ref.ID != 0
}

// ProposalAuthority resolves which organization of the given type owns p.
func ProposalAuthority(p *models.Proposal, t models.AuthorityType) AuthorityRef {
	return AuthorityRef{Type: t, ID: p.AuthorityID(t)}
}

// authorizeSubmit checks that the actor may hand p to the target authority.
// Villages submit to Dinas and Kecamatan; the Kecamatan forwards to DPMD.
func authorizeSubmit(actor Actor, p *models.Proposal, to models.AuthorityType) error {
	switch to {
	case models.AuthorityDinas, models.AuthorityKecamatan:
		if actor.Role != RoleDesa || actor.DesaID == 0 || actor.DesaID != p.DesaID {
			return notAuthorized("only the owning village may submit proposal %d to %s", p.ID, to)
		}
		return nil
	case models.AuthorityDPMD:
		if !actor.worksFor(ProposalAuthority(p, models.AuthorityKecamatan)) {
			return notAuthorized("only kecamatan %d may forward proposal %d to dpmd", p.KecamatanID, p.ID)
		}
		return nil
	}
	return validationError("unknown authority %q", to)
}

// authorizeReview checks that the actor may act as reviewer of p at the given
// authority. holder is the verifier assigned to p's village under that
// authority, nil when the village sits in the unassigned pool.
func authorizeReview(actor Actor, p *models.Proposal, authority models.AuthorityType, holder *uint) error {
	ref := ProposalAuthority(p, authority)
	if !actor.worksFor(ref) {
		return notAuthorized("actor is not staff of %s %d", ref.Type, ref.ID)
	}
	if actor.isAdminOf(ref) {
		return nil
	}
	if actor.VerifierID == 0 {
		return notAuthorized("actor has no verifier account")
	}
	if holder == nil {
		return notAuthorized("desa %d is not assigned to a verifier; only the %s administrator may act", p.DesaID, ref.Type)
	}
	if *holder != actor.VerifierID {
		return notAuthorized("desa %d is assigned to another verifier", p.DesaID)
	}
	return nil
}

// authorizeQuestionnaire checks who may write the checklist of verifierID.
// Kecamatan reviews as a team, so members only need to belong to the
// kecamatan; single-verifier authorities also require the village assignment.
func authorizeQuestionnaire(actor Actor, p *models.Proposal, authority models.AuthorityType, verifierID uint, holder *uint) error {
	ref := ProposalAuthority(p, authority)
	if actor.isAdminOf(ref) {
		return nil
	}
	if !actor.worksFor(ref) {
		return notAuthorized("actor is not staff of %s %d", ref.Type, ref.ID)
	}
	if actor.VerifierID == 0 || actor.VerifierID != verifierID {
		return notAuthorized("verifiers may only fill their own questionnaire")
	}
	if authority == models.AuthorityKecamatan {
		return nil
	}
	return authorizeReview(actor, p, authority, holder)
}

// authorizeManageAssignments allows the authority administrator (or a super
// admin) to change who covers which village.
func authorizeManageAssignments(actor Actor, ref AuthorityRef) error {
	if actor.Role == RoleSuperAdmin {
		return nil
	}
	if !actor.isAdminOf(ref) {
		return notAuthorized("only the %s administrator may manage verifier assignments", ref.Type)
	}
	return nil
}

// authorizeViewAuthority allows authority staff, DPMD and super admins to read
// registry data of an authority.
func authorizeViewAuthority(actor Actor, ref AuthorityRef) error {
	switch actor.Role {
	case RoleSuperAdmin, RoleDPMD:
		return nil
	}
	if !actor.worksFor(ref) {
		return notAuthorized("actor is not staff of %s %d", ref.Type, ref.ID)
	}
	return nil
}

// authorizeViewProposal lets the owning village and any reviewer in the chain read p.
func authorizeViewProposal(actor Actor, p *models.Proposal) error {
	switch actor.Role {
	case RoleSuperAdmin, RoleDPMD, RoleDPMDVerifier:
		return nil
	case RoleDesa:
		if actor.DesaID == p.DesaID {
			return nil
		}
	default:
		for _, t := range []models.AuthorityType{models.AuthorityDinas, models.AuthorityKecamatan} {
			if actor.worksFor(ProposalAuthority(p, t)) {
				return nil
			}
		}
	}
	return notAuthorized("proposal %d is outside the actor's area", p.ID)
}
