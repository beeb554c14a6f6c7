package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"bankeu-api/models"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	verifierColumns   = []string{"id", "user_id", "authority_type", "authority_id", "nama", "jabatan", "is_active"}
	desaColumns       = []string{"id", "kecamatan_id", "kode", "nama", "status"}
	assignmentColumns = []string{"id", "verifier_id", "authority_type", "authority_id", "desa_id", "kecamatan_id"}
)

func dinasRef() AuthorityRef {
	return AuthorityRef{Type: models.AuthorityDinas, ID: 4}
}

func TestAssignRefusesVillageHeldByAnotherVerifier(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(20), int64(60), "dinas", int64(4), "Yanti", "verifikator", true}),
		selectStep("SELECT \\* FROM `desas`", desaColumns,
			[]driver.Value{int64(1), int64(11), "3202011001", "Sukamaju", "desa"}),
		selectStep("SELECT \\* FROM `verifier_assignments` .* FOR UPDATE", assignmentColumns,
			[]driver.Value{int64(5), int64(10), "dinas", int64(4), int64(1), int64(11)}),
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(10), int64(61), "dinas", int64(4), "Budi", "verifikator", true}),
	})
	svc := NewAssignmentService(gormDB)

	_, err := svc.Assign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAssignmentConflict)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []AssignmentConflict{{DesaID: 1, DesaNama: "Sukamaju", VerifierID: 10, VerifierNama: "Budi"}}, e.Conflicts)

	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 0, state.commits)
	assert.Equal(t, 1, state.rollbacks)
}

func TestAssignInsertsFreeVillages(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(20), int64(60), "dinas", int64(4), "Yanti", "verifikator", true}),
		selectStep("SELECT \\* FROM `desas`", desaColumns,
			[]driver.Value{int64(1), int64(11), "3202011001", "Sukamaju", "desa"},
			[]driver.Value{int64(2), int64(11), "3202011002", "Karangtengah", "desa"}),
		selectStep("SELECT \\* FROM `verifier_assignments` .* FOR UPDATE", assignmentColumns,
			[]driver.Value{int64(5), int64(20), "dinas", int64(4), int64(1), int64(11)}),
		execStep("INSERT INTO `verifier_assignments`", scriptedResult{lastInsertID: 6, rowsAffected: 1}),
	})
	svc := NewAssignmentService(gormDB)
	svc.now = func() time.Time { return testNow }

	result, err := svc.Assign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, result.Assigned)
	assert.Equal(t, []uint{1}, result.AlreadyHeld)

	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, state.commits)
}

func TestAssignLostRaceReportsWinningHolder(t *testing.T) {
	duplicate := execStep("INSERT INTO `verifier_assignments`", scriptedResult{})
	duplicate.err = &gomysql.MySQLError{Number: 1062, Message: "Duplicate entry '4-dinas-2' for key 'uq_assignment_village'"}

	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(20), int64(60), "dinas", int64(4), "Yanti", "verifikator", true}),
		selectStep("SELECT \\* FROM `desas`", desaColumns,
			[]driver.Value{int64(2), int64(11), "3202011002", "Karangtengah", "desa"}),
		selectStep("SELECT \\* FROM `verifier_assignments` .* FOR UPDATE", assignmentColumns),
		duplicate,
		selectStep("SELECT \\* FROM `verifier_assignments` WHERE", assignmentColumns,
			[]driver.Value{int64(9), int64(11), "dinas", int64(4), int64(2), int64(11)}),
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(11), int64(62), "dinas", int64(4), "Dedi", "verifikator", true}),
	})
	svc := NewAssignmentService(gormDB)

	_, err := svc.Assign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{2})
	assert.ErrorIs(t, err, ErrAssignmentConflict)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, []AssignmentConflict{{DesaID: 2, DesaNama: "Karangtengah", VerifierID: 11, VerifierNama: "Dedi"}}, e.Conflicts)

	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, state.rollbacks)
}

func TestAssignRejectsInactiveVerifier(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `verifiers`", verifierColumns,
			[]driver.Value{int64(20), int64(60), "dinas", int64(4), "Yanti", "verifikator", false}),
	})
	svc := NewAssignmentService(gormDB)

	_, err := svc.Assign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{1})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, state.verifyComplete())
	assert.Equal(t, 1, state.rollbacks)
}

func TestAssignRequiresManagingActor(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, nil)
	svc := NewAssignmentService(gormDB)

	verifier := Actor{Role: RoleDinasVerifier, DinasID: 4, VerifierID: 20}
	_, err := svc.Assign(context.Background(), verifier, dinasRef(), 20, []uint{1})
	assert.ErrorIs(t, err, ErrNotAuthorized)
	require.NoError(t, state.verifyComplete())
}

func TestUnassignTwiceIsHarmless(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		execStep("DELETE FROM `verifier_assignments` WHERE .*verifier_id = \\?", scriptedResult{rowsAffected: 1}),
		execStep("DELETE FROM `verifier_assignments` WHERE .*verifier_id = \\?", scriptedResult{rowsAffected: 0}),
	})
	svc := NewAssignmentService(gormDB)

	removed, err := svc.Unassign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = svc.Unassign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{1})
	require.NoError(t, err)
	assert.Zero(t, removed)

	require.NoError(t, state.verifyComplete())
}

func TestUnassignEmptyListTouchesNothing(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, nil)
	svc := NewAssignmentService(gormDB)

	removed, err := svc.Unassign(context.Background(), dinasAdmin(), dinasRef(), 20, []uint{0})
	require.NoError(t, err)
	assert.Zero(t, removed)
	require.NoError(t, state.verifyComplete())
}

func TestCoverageColumns(t *testing.T) {
	status, scope := coverageColumns(models.AuthorityKecamatan)
	assert.Equal(t, "kecamatan_status", status)
	assert.Equal(t, "kecamatan_id", scope)

	status, scope = coverageColumns(models.AuthorityDPMD)
	assert.Equal(t, "dpmd_status", status)
	assert.Empty(t, scope)

	status, _ = coverageColumns("bappeda")
	assert.Empty(t, status)
}
