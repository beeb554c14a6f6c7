package services

import (
	"context"
	"errors"
	"testing"

	"bankeu-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchIsNilSafe(t *testing.T) {
	var effects *SideEffects
	assert.Nil(t, effects.Dispatch(context.Background(), TransitionEvent{}))
	assert.Nil(t, NewSideEffects(nil).Dispatch(context.Background(), TransitionEvent{}))
}

func TestDispatchRunsEveryHookDespiteFailures(t *testing.T) {
	first := &recordingHook{name: "email", err: errors.New("smtp down")}
	second := &recordingHook{name: "nats"}

	warnings := NewSideEffects(first, second).Dispatch(context.Background(), TransitionEvent{ProposalID: 7, Action: "submit_to_dinas"})
	assert.Equal(t, []string{"email: smtp down"}, warnings)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestDispatchSurvivesCancelledRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	hook := &ctxHook{}
	NewSideEffects(hook).Dispatch(ctx, TransitionEvent{})
	assert.NoError(t, hook.seen)
}

type ctxHook struct{ seen error }

func (h *ctxHook) Name() string { return "ctx" }

func (h *ctxHook) AfterTransition(ctx context.Context, _ TransitionEvent) error {
	h.seen = ctx.Err()
	return nil
}

func TestConstructorsSkipMissingInfrastructure(t *testing.T) {
	assert.Nil(t, NewNATSEventPublisher(nil))
	assert.Nil(t, NewTrackingCacheInvalidator(nil))
	assert.Nil(t, NewEmailNotifier(nil, nil, nil))
}

func TestNewTransitionEventCarriesProposal(t *testing.T) {
	p := draftProposal()
	event := newTransitionEvent(p, models.AuthorityDinas, "submit_to_dinas", "draft", "pending", 1, "", false, testNow)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, p.ID, event.ProposalID)
	assert.Equal(t, 2026, event.Tahun)
	assert.Equal(t, testNow, event.OccurredAt)
}

func TestRenderTransitionMailEscapesAndSpellsAmount(t *testing.T) {
	html := renderTransitionMail(TransitionEvent{
		Judul:          "Jalan <desa>",
		Anggaran:       decimal.NewFromInt(250_000_000),
		Authority:      models.AuthorityDPMD,
		OldStatus:      "in_review",
		NewStatus:      "rejected",
		Catatan:        "RAB tidak sesuai",
		ReturnedToDesa: true,
		OccurredAt:     testNow,
	})
	require.NotEmpty(t, html)
	assert.Contains(t, html, "Jalan &lt;desa&gt;")
	assert.Contains(t, html, "Rp 250.000.000")
	assert.Contains(t, html, "dua ratus lima puluh juta rupiah")
	assert.Contains(t, html, "Catatan: RAB tidak sesuai")
	assert.Contains(t, html, "dikembalikan ke desa")
}
