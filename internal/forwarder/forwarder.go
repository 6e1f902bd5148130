// internal/forwarder/forwarder.go
package forwarder

import (
	"context"
	"fmt"

	"github.com/user/auditrelay/internal/types"
)

// Sender is the slice of the backend client the forwarder needs.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendImage(ctx context.Context, chatID int64, image []byte, caption string) error
}

// Forwarder delivers rendered audit records to the fixed audit destination.
// Delivery is single-attempt; retry policy belongs to the caller, which in
// this design chooses to log and move on.
type Forwarder struct {
	sender Sender
	chatID int64
}

// New creates a Forwarder targeting the given audit chat.
func New(sender Sender, auditChatID int64) *Forwarder {
	return &Forwarder{sender: sender, chatID: auditChatID}
}

// Forward implements types.Forwarder. Records with an image are sent as a
// photo with the body as caption, text-only records as a plain message.
func (f *Forwarder) Forward(ctx context.Context, record *types.AuditRecord) error {
	if len(record.Image) > 0 {
		if err := f.sender.SendImage(ctx, f.chatID, record.Image, record.Body); err != nil {
			return fmt.Errorf("send photo record: %w", err)
		}
		return nil
	}
	if err := f.sender.SendText(ctx, f.chatID, record.Body); err != nil {
		return fmt.Errorf("send text record: %w", err)
	}
	return nil
}
