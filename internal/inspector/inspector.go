// internal/inspector/inspector.go
package inspector

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/auditrelay/internal/types"
)

// NotAdminLine is the fallback rendering used whenever the bot's membership
// cannot be resolved or carries no administrative status.
const NotAdminLine = "❌ Bot is not admin"

// ErrNotAdmin signals that the membership lookup succeeded but the bot holds
// no administrative status in the group.
var ErrNotAdmin = errors.New("bot is not an administrator")

// Member is the backend's view of one chat membership entry.
type Member struct {
	Status             string
	CustomTitle        string
	CanChangeInfo      bool
	CanDeleteMessages  bool
	CanPinMessages     bool
	CanInviteUsers     bool
	CanRestrictMembers bool
	CanPromoteMembers  bool
}

// MemberClient resolves the bot's own membership entry in a group chat.
type MemberClient interface {
	SelfMember(ctx context.Context, chatID int64) (Member, error)
}

// Inspector queries the backend for the bot's own membership and derives a
// capability summary. Summaries are computed fresh per call, never cached.
type Inspector struct {
	client MemberClient
}

// New creates an Inspector over the given member client.
func New(client MemberClient) *Inspector {
	return &Inspector{client: client}
}

// Inspect implements types.Inspector. A failed lookup and a non-admin bot
// both yield an error; callers render the same fallback for either.
func (i *Inspector) Inspect(ctx context.Context, chatID int64) (*types.PermissionSummary, error) {
	member, err := i.client.SelfMember(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat member: %w", err)
	}
	if member.Status != "administrator" && member.Status != "creator" {
		return nil, ErrNotAdmin
	}
	return &types.PermissionSummary{
		IsAdmin:            true,
		CustomTitle:        member.CustomTitle,
		CanChangeInfo:      member.CanChangeInfo,
		CanDeleteMessages:  member.CanDeleteMessages,
		CanPinMessages:     member.CanPinMessages,
		CanInviteUsers:     member.CanInviteUsers,
		CanRestrictMembers: member.CanRestrictMembers,
		CanPromoteMembers:  member.CanPromoteMembers,
	}, nil
}

// Render formats an admin capability summary for inclusion in a group audit
// record. A nil summary renders the not-admin fallback.
func Render(p *types.PermissionSummary) string {
	if p == nil || !p.IsAdmin {
		return NotAdminLine
	}
	title := p.CustomTitle
	if title == "" {
		title = "Admin"
	}
	return fmt.Sprintf(
		"✅ **Bot is Admin**\n"+
			"🏷 Title: `%s`\n"+
			"✏️ Edit: %t\n"+
			"🗑 Delete: %t\n"+
			"📌 Pin: %t\n"+
			"➕ Invite: %t\n"+
			"🚫 Ban: %t\n"+
			"📣 Promote: %t",
		title,
		p.CanChangeInfo,
		p.CanDeleteMessages,
		p.CanPinMessages,
		p.CanInviteUsers,
		p.CanRestrictMembers,
		p.CanPromoteMembers,
	)
}
