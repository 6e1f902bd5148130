// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/user/auditrelay/internal/inspector"
	"github.com/user/auditrelay/internal/ledger"
	"github.com/user/auditrelay/internal/types"
	"github.com/user/auditrelay/internal/uptime"
)

const diagnosticCommand = "/ping"

// Pipeline classifies inbound events, renders audit records for origins not
// yet reported, and forwards them to the audit destination. One record per
// origin per process lifetime; an origin is marked seen after the forward
// attempt whether or not delivery succeeded.
type Pipeline struct {
	ledger  *ledger.Ledger
	clock   *uptime.Clock
	forward types.Forwarder
	inspect types.Inspector
	images  types.ImageFetcher
	reply   types.Replier
	ownerID int64
}

// New creates a Pipeline. All collaborators are required; ownerID gates the
// diagnostic command.
func New(led *ledger.Ledger, clock *uptime.Clock, fwd types.Forwarder, ins types.Inspector, images types.ImageFetcher, reply types.Replier, ownerID int64) *Pipeline {
	return &Pipeline{
		ledger:  led,
		clock:   clock,
		forward: fwd,
		inspect: ins,
		images:  images,
		reply:   reply,
		ownerID: ownerID,
	}
}

// Handle processes one inbound event. It never returns an error: enrichment
// and delivery failures degrade or are logged, per the audit policy.
func (p *Pipeline) Handle(ctx context.Context, event *types.InboundEvent) {
	if isDiagnostic(event.Text) {
		// The diagnostic command is excluded from auditing entirely.
		// Non-owner senders get no reply and no side effect.
		if event.Sender.ID == p.ownerID {
			p.respondDiagnostic(ctx, event)
		}
		return
	}

	switch event.Kind {
	case types.OriginGroup:
		p.handleGroup(ctx, event)
	default:
		p.handlePrivate(ctx, event)
	}
}

func (p *Pipeline) handlePrivate(ctx context.Context, event *types.InboundEvent) {
	if p.ledger.Seen(event.Sender.ID) {
		return
	}

	record := &types.AuditRecord{
		ID:   types.NewRecordID(),
		Body: renderPrivate(event),
	}
	if event.Sender.HasProfileImage {
		image, err := p.images.FetchProfileImage(ctx, event.Sender.ID)
		if err != nil {
			slog.Warn("profile image fetch failed",
				"record_id", string(record.ID),
				"user_id", event.Sender.ID,
				"error", err)
		} else {
			record.Image = image
		}
	}

	p.deliver(ctx, record, event.Sender.ID)
}

func (p *Pipeline) handleGroup(ctx context.Context, event *types.InboundEvent) {
	group := event.Group
	if group == nil {
		return
	}
	if p.ledger.Seen(group.ID) {
		return
	}

	adminInfo := inspector.NotAdminLine
	summary, err := p.inspect.Inspect(ctx, group.ID)
	if err != nil {
		slog.Debug("permission inspection unavailable",
			"chat_id", group.ID,
			"error", err)
	} else {
		adminInfo = inspector.Render(summary)
	}

	record := &types.AuditRecord{
		ID:   types.NewRecordID(),
		Body: renderGroup(event, resolveLink(group), adminInfo),
	}
	p.deliver(ctx, record, group.ID)
}

// deliver makes the single forward attempt and marks the origin regardless
// of the outcome. No duplicate record beats guaranteed delivery here.
func (p *Pipeline) deliver(ctx context.Context, record *types.AuditRecord, originID int64) {
	if err := p.forward.Forward(ctx, record); err != nil {
		slog.Error("audit forward failed",
			"record_id", string(record.ID),
			"origin_id", originID,
			"error", err)
	}
	p.ledger.Mark(originID)
}

func (p *Pipeline) respondDiagnostic(ctx context.Context, event *types.InboundEvent) {
	text := fmt.Sprintf("🏓 Pong!\n⏱ Uptime: `%s`", p.clock.Human())
	if err := p.reply.Reply(ctx, event.ChatID, event.MessageID, text); err != nil {
		slog.Warn("diagnostic reply failed", "chat_id", event.ChatID, "error", err)
		// Best-effort error report; if this fails too it is dropped.
		if err := p.reply.Reply(ctx, event.ChatID, event.MessageID, "⚠️ Failed to report uptime"); err != nil {
			slog.Debug("diagnostic error reply failed", "chat_id", event.ChatID, "error", err)
		}
	}
}

// isDiagnostic matches the diagnostic command with or without a bot-name
// suffix ("/ping", "/ping@auditbot").
func isDiagnostic(text string) bool {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return false
	}
	cmd := strings.ToLower(fields[0])
	return cmd == diagnosticCommand || strings.HasPrefix(cmd, diagnosticCommand+"@")
}

func renderPrivate(event *types.InboundEvent) string {
	return fmt.Sprintf(
		"📩 **PRIVATE MESSAGE**\n\n"+
			"👤 Name: %s\n"+
			"🆔 ID: `%d`\n"+
			"🔗 Mention: %s\n"+
			"🗯 Text: %s",
		fallback(event.Sender.DisplayName),
		event.Sender.ID,
		fallback(event.Sender.MentionHandle),
		fallback(event.Text),
	)
}

func renderGroup(event *types.InboundEvent, link, adminInfo string) string {
	return fmt.Sprintf(
		"👥 **GROUP MESSAGE**\n\n"+
			"📛 Group: %s\n"+
			"🆔 Chat ID: `%d`\n"+
			"🔗 Link: %s\n\n"+
			"👤 From: %s\n"+
			"🆔 User ID: `%d`\n\n"+
			"%s",
		fallback(event.Group.Title),
		event.Group.ID,
		link,
		fallback(event.Sender.MentionHandle),
		event.Sender.ID,
		adminInfo,
	)
}

// resolveLink prefers an explicit invite link, then a message permalink,
// then the literal "Not Available".
func resolveLink(group *types.GroupChat) string {
	if group.InviteLink != "" {
		return group.InviteLink
	}
	if group.MessageLink != "" {
		return group.MessageLink
	}
	return "Not Available"
}

func fallback(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
