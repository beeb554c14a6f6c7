package services

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"bankeu-api/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingSummaryWithoutRedis(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, []*queryStep{
		selectStep("SELECT \\* FROM `kecamatans` ORDER BY nama", []string{"id", "kode", "nama"},
			[]driver.Value{int64(11), "320201", "Cibadak"}),
		selectStep("SELECT \\* FROM `desas` ORDER BY kecamatan_id, nama", desaColumns,
			[]driver.Value{int64(101), int64(11), "3202011001", "Sukamaju", "desa"},
			[]driver.Value{int64(102), int64(11), "3202011002", "Tenjo", "desa"}),
		selectStep("SELECT \\* FROM `proposals` WHERE tahun_anggaran = \\?",
			[]string{"id", "desa_id", "kecamatan_id", "dinas_id", "tahun_anggaran", "anggaran_usulan", "stage", "status", "dinas_status", "dinas_submitted"},
			[]driver.Value{int64(7), int64(101), int64(11), int64(4), int64(2026), "3000000000", "dinas", "pending", "pending", true}),
	})

	settings := config.DefaultWorkflowSettings()
	svc := NewTrackingService(gormDB, NewReferenceDirectory(gormDB, time.Minute), nil, settings)
	svc.now = func() time.Time { return testNow }

	summary, err := svc.Summary(context.Background(), 2026)
	require.NoError(t, err)
	require.NoError(t, state.verifyComplete())

	assert.Equal(t, 2026, summary.Tahun)
	assert.Equal(t, 2, summary.Total.JumlahDesa)
	assert.Equal(t, 1, summary.Total.DesaMengusulkan)
	assert.Equal(t, 50.0, summary.Total.PersentasePartisipasi)
	assert.True(t, summary.Total.TotalAnggaran.Equal(decimal.NewFromInt(1_500_000_000)))
	assert.Equal(t, StageCounts{DiDinas: 1}, summary.Total.Tahapan)
}

func TestTrackingSummaryRejectsYearOutOfRange(t *testing.T) {
	gormDB, state := newScriptedGormDB(t, nil)
	svc := NewTrackingService(gormDB, nil, nil, config.DefaultWorkflowSettings())

	_, err := svc.Summary(context.Background(), 1999)
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, state.verifyComplete())
	assert.NoError(t, svc.Invalidate(context.Background(), 2026))
}

func TestTrackingCacheKey(t *testing.T) {
	assert.Equal(t, "bankeu:tracking-summary:2026", trackingCacheKey(2026))
}
