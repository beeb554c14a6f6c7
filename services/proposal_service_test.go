package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"bankeu-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var proposalColumns = []string{"id", "desa_id", "kecamatan_id", "dinas_id", "tahun_anggaran", "judul", "anggaran_usulan", "stage", "status", "version", "dinas_status"}

func proposalRow(version int64, dinasStatus string) []driver.Value {
	return []driver.Value{int64(7), int64(101), int64(11), int64(4), int64(2026), "Rehabilitasi jalan desa", "250000000", "dinas", dinasStatus, version, dinasStatus}
}

type recordingHook struct {
	name   string
	err    error
	events []TransitionEvent
}

func (h *recordingHook) Name() string { return h.name }

func (h *recordingHook) AfterTransition(_ context.Context, event TransitionEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func dinasAdmin() Actor {
	return Actor{UserID: 40, Role: RoleDinas, DinasID: 4}
}

func TestDecideCommitsAndDispatchesAfterCommit(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns, proposalRow(3, "in_review")),
		execStep("UPDATE `proposals` SET .* WHERE id = \\? AND version = \\?", scriptedResult{rowsAffected: 1}),
		execStep("INSERT INTO `proposal_status_history`", scriptedResult{lastInsertID: 1, rowsAffected: 1}),
	})

	ok := &recordingHook{name: "nats"}
	failing := &recordingHook{name: "email", err: errors.New("smtp down")}
	svc := NewProposalService(gormDB, NewSideEffects(ok, failing))
	svc.now = func() time.Time { return testNow }

	result, err := svc.Decide(context.Background(), DecideInput{
		ProposalID: 7,
		Authority:  models.AuthorityDinas,
		Actor:      dinasAdmin(),
		Verdict:    models.ReviewApproved,
	})
	require.NoError(t, err)

	assert.Equal(t, models.ProposalApproved, result.Proposal.Status)
	assert.Equal(t, uint(4), result.Proposal.Version)
	assert.False(t, result.ReturnedToDesa)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "smtp down")

	require.Len(t, ok.events, 1)
	assert.Equal(t, "decide_approved", ok.events[0].Action)
	assert.Equal(t, "in_review", ok.events[0].OldStatus)
	assert.Equal(t, "approved", ok.events[0].NewStatus)

	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, state.commits)
	assert.Equal(t, 0, state.rollbacks)
}

func TestDecideLosingWriterGetsConcurrentModification(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns, proposalRow(3, "in_review")),
		execStep("UPDATE `proposals` SET .* WHERE id = \\? AND version = \\?", scriptedResult{rowsAffected: 0}),
	})

	hook := &recordingHook{name: "nats"}
	svc := NewProposalService(gormDB, NewSideEffects(hook))

	_, err := svc.Decide(context.Background(), DecideInput{
		ProposalID: 7,
		Authority:  models.AuthorityDinas,
		Actor:      dinasAdmin(),
		Verdict:    models.ReviewRejected,
		Catatan:    "dokumen tidak lengkap",
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Empty(t, hook.events)

	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 0, state.commits)
	assert.Equal(t, 1, state.rollbacks)
}

func TestDecideRejectsStaleExpectedVersion(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns, proposalRow(5, "in_review")),
	})
	svc := NewProposalService(gormDB, nil)

	stale := uint(4)
	_, err := svc.Decide(context.Background(), DecideInput{
		ProposalID:      7,
		Authority:       models.AuthorityDinas,
		Actor:           dinasAdmin(),
		Verdict:         models.ReviewApproved,
		ExpectedVersion: &stale,
	})
	assert.ErrorIs(t, err, ErrConcurrentModification)
	require.NoError(t, state.verifyComplete())
}

func TestDecideChecksAssignmentForVerifiers(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns, proposalRow(3, "pending")),
		selectStep("SELECT \\* FROM `verifier_assignments`", []string{"id", "verifier_id", "authority_type", "authority_id", "desa_id"},
			[]driver.Value{int64(1), int64(9), "dinas", int64(4), int64(101)}),
	})
	svc := NewProposalService(gormDB, nil)

	_, err := svc.Decide(context.Background(), DecideInput{
		ProposalID: 7,
		Authority:  models.AuthorityDinas,
		Actor:      Actor{UserID: 41, Role: RoleDinasVerifier, DinasID: 4, VerifierID: 3},
		Verdict:    models.ReviewApproved,
	})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, state.rollbacks)
}

func TestDecideValidatesVerdictBeforeLoading(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, nil)
	svc := NewProposalService(gormDB, nil)

	_, err := svc.Decide(context.Background(), DecideInput{
		ProposalID: 7,
		Authority:  models.AuthorityDinas,
		Actor:      dinasAdmin(),
		Verdict:    "pending",
	})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, state.verifyComplete())
}

func TestSubmitToDinasRequiresActiveVerifier(t *testing.T) {
	draft := []driver.Value{int64(7), int64(101), int64(11), int64(4), int64(2026), "Rehabilitasi jalan desa", "250000000", "desa", "draft", int64(1), nil}
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns, draft),
		selectStep("SELECT count\\(\\*\\) FROM `verifiers`", []string{"count(*)"}, []driver.Value{int64(0)}),
	})
	svc := NewProposalService(gormDB, nil)

	_, err := svc.Submit(context.Background(), Actor{UserID: 1, Role: RoleDesa, DesaID: 101}, 7, models.AuthorityDinas)
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, state.verifyComplete())
}

func TestGetProposalNotFound(t *testing.T) {
	gormDB, _ := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `proposals`", proposalColumns),
	})
	svc := NewProposalService(gormDB, nil)

	_, err := svc.Get(context.Background(), dinasAdmin(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
