// internal/types/interfaces.go
package types

import "context"

// Forwarder delivers a rendered record to the audit destination.
type Forwarder interface {
	Forward(ctx context.Context, record *AuditRecord) error
}

// Inspector resolves the bot's own membership in a group chat. A non-nil
// error covers both failed lookups and non-administrator status; callers
// render the same fallback for either.
type Inspector interface {
	Inspect(ctx context.Context, chatID int64) (*PermissionSummary, error)
}

// ImageFetcher downloads a user's current profile image. Returning nil bytes
// with a nil error means the user has no retrievable image.
type ImageFetcher interface {
	FetchProfileImage(ctx context.Context, userID int64) ([]byte, error)
}

// Replier sends a plain text reply into the chat an event came from.
type Replier interface {
	Reply(ctx context.Context, chatID int64, messageID int, text string) error
}
