package services

import (
	"testing"

	"bankeu-api/models"

	"github.com/stretchr/testify/assert"
)

func TestAuthorizeSubmit(t *testing.T) {
	p := draftProposal()

	cases := []struct {
		name  string
		actor Actor
		to    models.AuthorityType
		ok    bool
	}{
		{"owning village to dinas", Actor{UserID: 1, Role: RoleDesa, DesaID: 101}, models.AuthorityDinas, true},
		{"owning village to kecamatan", Actor{UserID: 1, Role: RoleDesa, DesaID: 101}, models.AuthorityKecamatan, true},
		{"other village", Actor{UserID: 1, Role: RoleDesa, DesaID: 102}, models.AuthorityDinas, false},
		{"village to dpmd", Actor{UserID: 1, Role: RoleDesa, DesaID: 101}, models.AuthorityDPMD, false},
		{"kecamatan admin to dpmd", Actor{UserID: 5, Role: RoleKecamatan, KecamatanID: 11}, models.AuthorityDPMD, true},
		{"kecamatan verifier to dpmd", Actor{UserID: 6, Role: RoleKecamatanVerifier, KecamatanID: 11, VerifierID: 3}, models.AuthorityDPMD, true},
		{"other kecamatan to dpmd", Actor{UserID: 5, Role: RoleKecamatan, KecamatanID: 12}, models.AuthorityDPMD, false},
		{"dinas to kecamatan", Actor{UserID: 4, Role: RoleDinas, DinasID: 4}, models.AuthorityKecamatan, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizeSubmit(tc.actor, &p, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotAuthorized)
			}
		})
	}
}

func TestAuthorizeReviewHonoursAssignments(t *testing.T) {
	p := draftProposal()
	holder := uint(3)

	cases := []struct {
		name   string
		actor  Actor
		holder *uint
		ok     bool
	}{
		{"dinas admin without assignment", Actor{Role: RoleDinas, DinasID: 4}, nil, true},
		{"dinas admin with assignment", Actor{Role: RoleDinas, DinasID: 4}, &holder, true},
		{"assigned verifier", Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 3}, &holder, true},
		{"other verifier", Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 8}, &holder, false},
		{"verifier on unassigned village", Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 3}, nil, false},
		{"verifier of another dinas", Actor{Role: RoleDinasVerifier, DinasID: 9, VerifierID: 3}, &holder, false},
		{"village", Actor{Role: RoleDesa, DesaID: 101}, nil, false},
		{"superadmin is not a reviewer", Actor{Role: RoleSuperAdmin}, nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizeReview(tc.actor, &p, models.AuthorityDinas, tc.holder)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotAuthorized)
			}
		})
	}
}

func TestAuthorizeQuestionnaireKecamatanTeam(t *testing.T) {
	p := draftProposal()

	member := Actor{Role: RoleKecamatanVerifier, KecamatanID: 11, VerifierID: 21}
	assert.NoError(t, authorizeQuestionnaire(member, &p, models.AuthorityKecamatan, 21, nil))
	assert.ErrorIs(t, authorizeQuestionnaire(member, &p, models.AuthorityKecamatan, 22, nil), ErrNotAuthorized)

	outsider := Actor{Role: RoleKecamatanVerifier, KecamatanID: 12, VerifierID: 21}
	assert.ErrorIs(t, authorizeQuestionnaire(outsider, &p, models.AuthorityKecamatan, 21, nil), ErrNotAuthorized)

	holder := uint(3)
	dinasVerifier := Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 3}
	assert.NoError(t, authorizeQuestionnaire(dinasVerifier, &p, models.AuthorityDinas, 3, &holder))
	assert.ErrorIs(t, authorizeQuestionnaire(dinasVerifier, &p, models.AuthorityDinas, 3, nil), ErrNotAuthorized)
}

func TestAuthorizeManageAssignments(t *testing.T) {
	ref := AuthorityRef{Type: models.AuthorityDinas, ID: 4}

	assert.NoError(t, authorizeManageAssignments(Actor{Role: RoleSuperAdmin}, ref))
	assert.NoError(t, authorizeManageAssignments(Actor{Role: RoleDinas, DinasID: 4}, ref))
	assert.ErrorIs(t, authorizeManageAssignments(Actor{Role: RoleDinas, DinasID: 5}, ref), ErrNotAuthorized)
	assert.ErrorIs(t, authorizeManageAssignments(Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 3}, ref), ErrNotAuthorized)
	assert.ErrorIs(t, authorizeManageAssignments(Actor{Role: RoleDinas}, AuthorityRef{Type: models.AuthorityDinas}), ErrNotAuthorized)
}

func TestAuthorizeViewProposal(t *testing.T) {
	p := draftProposal()

	assert.NoError(t, authorizeViewProposal(Actor{Role: RoleDesa, DesaID: 101}, &p))
	assert.NoError(t, authorizeViewProposal(Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 1}, &p))
	assert.NoError(t, authorizeViewProposal(Actor{Role: RoleKecamatan, KecamatanID: 11}, &p))
	assert.NoError(t, authorizeViewProposal(Actor{Role: RoleDPMD}, &p))
	assert.ErrorIs(t, authorizeViewProposal(Actor{Role: RoleDesa, DesaID: 102}, &p), ErrNotAuthorized)
	assert.ErrorIs(t, authorizeViewProposal(Actor{Role: RoleDinas, DinasID: 5}, &p), ErrNotAuthorized)
}
