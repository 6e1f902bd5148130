// internal/types/models.go
package types

// OriginKind classifies the conversation context an inbound event came from.
type OriginKind string

const (
	OriginPrivate OriginKind = "private"
	OriginGroup   OriginKind = "group"
)

// PrivateUser identifies a human Telegram account. For group events it
// describes the poster, distinct from the group origin itself.
type PrivateUser struct {
	ID              int64
	DisplayName     string
	MentionHandle   string
	HasProfileImage bool
}

// GroupChat identifies a group or supergroup origin. InviteLink and
// MessageLink are both optional; link resolution order is decided by the
// pipeline, not here.
type GroupChat struct {
	ID          int64
	Title       string
	InviteLink  string
	MessageLink string
}

// InboundEvent is one observed conversational event. Sender is always set.
// Group is set only when Kind is OriginGroup. ChatID is the chat to reply
// into for the diagnostic command (the private chat or the group itself).
type InboundEvent struct {
	Kind      OriginKind
	Sender    PrivateUser
	Group     *GroupChat
	Text      string
	ChatID    int64
	MessageID int
}

// OriginID returns the dedup key for the event: the group chat ID for group
// events, the sender's user ID otherwise.
func (e *InboundEvent) OriginID() int64 {
	if e.Kind == OriginGroup && e.Group != nil {
		return e.Group.ID
	}
	return e.Sender.ID
}

// PermissionSummary is the bot's own capability set in a group, derived
// fresh per event and never cached.
type PermissionSummary struct {
	IsAdmin            bool
	CustomTitle        string
	CanChangeInfo      bool
	CanDeleteMessages  bool
	CanPinMessages     bool
	CanInviteUsers     bool
	CanRestrictMembers bool
	CanPromoteMembers  bool
}

// AuditRecord is a fully rendered, ready-to-send payload. Image is optional;
// when present the record is delivered as a photo with Body as its caption.
type AuditRecord struct {
	ID    RecordID
	Body  string
	Image []byte
}
