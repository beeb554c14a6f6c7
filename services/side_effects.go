package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	"bankeu-api/models"
	"bankeu-api/utils"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransitionEvent describes a committed proposal transition.
type TransitionEvent struct {
	ID             string               `json:"id"`
	ProposalID     uint                 `json:"proposal_id"`
	Judul          string               `json:"judul"`
	DesaID         uint                 `json:"desa_id"`
	KecamatanID    uint                 `json:"kecamatan_id"`
	DinasID        uint                 `json:"dinas_id"`
	Tahun          int                  `json:"tahun"`
	Anggaran       decimal.Decimal      `json:"anggaran"`
	Authority      models.AuthorityType `json:"authority"`
	Action         string               `json:"action"`
	OldStatus      string               `json:"old_status"`
	NewStatus      string               `json:"new_status"`
	ActorID        uint                 `json:"actor_id"`
	Catatan        string               `json:"catatan,omitempty"`
	ReturnedToDesa bool                 `json:"returned_to_desa"`
	OccurredAt     time.Time            `json:"occurred_at"`
}

func newTransitionEvent(p models.Proposal, authority models.AuthorityType, action string, oldStatus, newStatus string, actorID uint, catatan string, returned bool, now time.Time) TransitionEvent {
	return TransitionEvent{
		ID:             uuid.NewString(),
		ProposalID:     p.ID,
		Judul:          p.Judul,
		DesaID:         p.DesaID,
		KecamatanID:    p.KecamatanID,
		DinasID:        p.DinasID,
		Tahun:          p.TahunAnggaran,
		Anggaran:       p.AnggaranUsulan,
		Authority:      authority,
		Action:         action,
		OldStatus:      oldStatus,
		NewStatus:      newStatus,
		ActorID:        actorID,
		Catatan:        catatan,
		ReturnedToDesa: returned,
		OccurredAt:     now,
	}
}

// TransitionHook runs after a transition has committed. Its failure never
// undoes the transition.
type TransitionHook interface {
	Name() string
	AfterTransition(ctx context.Context, event TransitionEvent) error
}

// SideEffects fans a committed transition out to every hook and collects
// failures as warnings for the response.
type SideEffects struct {
	hooks   []TransitionHook
	timeout time.Duration
}

func NewSideEffects(hooks ...TransitionHook) *SideEffects {
	active := make([]TransitionHook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			active = append(active, h)
		}
	}
	return &SideEffects{hooks: active, timeout: 10 * time.Second}
}

// Dispatch is safe on a nil receiver.
func (s *SideEffects) Dispatch(ctx context.Context, event TransitionEvent) []string {
	if s == nil || len(s.hooks) == 0 {
		return nil
	}
	hookCtx, cancel := detachedContext(ctx, s.timeout)
	defer cancel()

	var warnings []string
	for _, hook := range s.hooks {
		if err := hook.AfterTransition(hookCtx, event); err != nil {
			sideEffectFailuresTotal.WithLabelValues(hook.Name()).Inc()
			log.Printf("Warning: %s failed for proposal %d (%s): %v", hook.Name(), event.ProposalID, event.Action, err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", hook.Name(), err))
		}
	}
	return warnings
}

// NATSEventPublisher publishes transitions on bankeu.proposal.<action>.
type NATSEventPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
}

func NewNATSEventPublisher(conn *nats.Conn) *NATSEventPublisher {
	if conn == nil {
		return nil
	}
	return &NATSEventPublisher{conn: conn, subjectPrefix: "bankeu.proposal"}
}

func (p *NATSEventPublisher) Name() string { return "nats" }

func (p *NATSEventPublisher) AfterTransition(_ context.Context, event TransitionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.conn.Publish(p.subjectPrefix+"."+event.Action, payload)
}

// TrackingCacheInvalidator drops the cached public summary of the event's year.
type TrackingCacheInvalidator struct {
	rdb *redis.Client
}

func NewTrackingCacheInvalidator(rdb *redis.Client) *TrackingCacheInvalidator {
	if rdb == nil {
		return nil
	}
	return &TrackingCacheInvalidator{rdb: rdb}
}

func (i *TrackingCacheInvalidator) Name() string { return "tracking-cache" }

func (i *TrackingCacheInvalidator) AfterTransition(ctx context.Context, event TransitionEvent) error {
	return i.rdb.Del(ctx, trackingCacheKey(event.Tahun)).Err()
}

// MailFunc matches config.SendMail.
type MailFunc func(to []string, subject, html string) error

// EmailNotifier mails the verifiers of the authority that now holds the proposal.
type EmailNotifier struct {
	db    *gorm.DB
	send  MailFunc
	extra []string
}

func NewEmailNotifier(db *gorm.DB, send MailFunc, extra []string) *EmailNotifier {
	if db == nil || send == nil {
		return nil
	}
	return &EmailNotifier{db: db, send: send, extra: extra}
}

func (n *EmailNotifier) Name() string { return "email" }

func (n *EmailNotifier) AfterTransition(ctx context.Context, event TransitionEvent) error {
	recipients := append([]string(nil), n.extra...)

	authorityID := event.DinasID
	switch event.Authority {
	case models.AuthorityKecamatan:
		authorityID = event.KecamatanID
	case models.AuthorityDPMD:
		authorityID = models.DPMDAuthorityID
	}

	var emails []string
	if err := n.db.WithContext(ctx).Model(&models.Verifier{}).
		Where("authority_type = ? AND authority_id = ? AND is_active = ? AND email IS NOT NULL", event.Authority, authorityID, true).
		Pluck("email", &emails).Error; err != nil {
		return fmt.Errorf("load recipients: %w", err)
	}
	recipients = append(recipients, emails...)
	if len(recipients) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[Bankeu %d] Proposal #%d: %s", event.Tahun, event.ProposalID, strings.ReplaceAll(event.Action, "_", " "))
	return n.send(recipients, subject, renderTransitionMail(event))
}

func renderTransitionMail(event TransitionEvent) string {
	var b strings.Builder
	b.WriteString("<p>Proposal <strong>")
	b.WriteString(html.EscapeString(event.Judul))
	b.WriteString("</strong> (")
	b.WriteString(utils.FormatRupiah(event.Anggaran))
	b.WriteString("; ")
	b.WriteString(html.EscapeString(utils.Terbilang(event.Anggaran)))
	b.WriteString(")</p>")
	fmt.Fprintf(&b, "<p>%s: %s &rarr; %s</p>", html.EscapeString(string(event.Authority)), html.EscapeString(event.OldStatus), html.EscapeString(event.NewStatus))
	if event.Catatan != "" {
		b.WriteString("<p>Catatan: ")
		b.WriteString(html.EscapeString(event.Catatan))
		b.WriteString("</p>")
	}
	if event.ReturnedToDesa {
		b.WriteString("<p>Proposal dikembalikan ke desa dan harus diajukan ulang dari awal.</p>")
	}
	b.WriteString("<p>")
	b.WriteString(utils.FormatTanggal(event.OccurredAt))
	b.WriteString("</p>")
	return b.String()
}
