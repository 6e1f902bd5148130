package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/user/auditrelay/internal/ledger"
	"github.com/user/auditrelay/internal/types"
	"github.com/user/auditrelay/internal/uptime"
)

type mockForwarder struct {
	records []*types.AuditRecord
	err     error
}

func (m *mockForwarder) Forward(ctx context.Context, record *types.AuditRecord) error {
	m.records = append(m.records, record)
	return m.err
}

type mockInspector struct {
	summary *types.PermissionSummary
	err     error
	calls   int
}

func (m *mockInspector) Inspect(ctx context.Context, chatID int64) (*types.PermissionSummary, error) {
	m.calls++
	return m.summary, m.err
}

type mockImageFetcher struct {
	image []byte
	err   error
	calls int
}

func (m *mockImageFetcher) FetchProfileImage(ctx context.Context, userID int64) ([]byte, error) {
	m.calls++
	return m.image, m.err
}

type mockReplier struct {
	chatIDs []int64
	texts   []string
	errs    []error
}

func (m *mockReplier) Reply(ctx context.Context, chatID int64, messageID int, text string) error {
	m.chatIDs = append(m.chatIDs, chatID)
	m.texts = append(m.texts, text)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return err
	}
	return nil
}

type fixture struct {
	pipeline *Pipeline
	ledger   *ledger.Ledger
	forward  *mockForwarder
	inspect  *mockInspector
	images   *mockImageFetcher
	reply    *mockReplier
}

const ownerID = int64(777)

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ledger:  ledger.New(),
		forward: &mockForwarder{},
		inspect: &mockInspector{err: errors.New("not configured")},
		images:  &mockImageFetcher{},
		reply:   &mockReplier{},
	}
	clock := uptime.NewClockAt(time.Now().Add(-65 * time.Second))
	f.pipeline = New(f.ledger, clock, f.forward, f.inspect, f.images, f.reply, ownerID)
	return f
}

func privateEvent(userID int64, text string) *types.InboundEvent {
	return &types.InboundEvent{
		Kind: types.OriginPrivate,
		Sender: types.PrivateUser{
			ID:            userID,
			DisplayName:   "Alice",
			MentionHandle: "[111](tg://user?id=111)",
		},
		Text:      text,
		ChatID:    userID,
		MessageID: 1,
	}
}

func groupEvent(chatID, userID int64) *types.InboundEvent {
	return &types.InboundEvent{
		Kind:   types.OriginGroup,
		Sender: types.PrivateUser{ID: userID, MentionHandle: "[222](tg://user?id=222)"},
		Group:  &types.GroupChat{ID: chatID, Title: "Test Group"},
		Text:   "hello",
		ChatID: chatID,
	}
}

func TestPrivateFirstEvent(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), privateEvent(111, "hi there"))

	if len(f.forward.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(f.forward.records))
	}
	body := f.forward.records[0].Body
	if !strings.Contains(body, "PRIVATE MESSAGE") {
		t.Errorf("expected private header, got %q", body)
	}
	if !strings.Contains(body, "`111`") {
		t.Errorf("expected numeric ID in body, got %q", body)
	}
	if !strings.Contains(body, "hi there") {
		t.Errorf("expected raw text verbatim, got %q", body)
	}
	if !f.ledger.Seen(111) {
		t.Error("expected origin to be marked after forward")
	}
}

func TestPrivateDuplicateDropped(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), privateEvent(111, "first"))
	f.pipeline.Handle(context.Background(), privateEvent(111, "second"))

	if len(f.forward.records) != 1 {
		t.Fatalf("expected exactly 1 record for repeated origin, got %d", len(f.forward.records))
	}
}

func TestPrivateMissingFieldsFallBack(t *testing.T) {
	f := setup(t)

	event := privateEvent(111, "")
	event.Sender.DisplayName = ""
	f.pipeline.Handle(context.Background(), event)

	body := f.forward.records[0].Body
	if !strings.Contains(body, "Name: N/A") {
		t.Errorf("expected N/A name fallback, got %q", body)
	}
	if !strings.Contains(body, "Text: N/A") {
		t.Errorf("expected N/A text fallback, got %q", body)
	}
}

func TestPrivateWithProfileImage(t *testing.T) {
	f := setup(t)
	f.images.image = []byte{0xFF, 0xD8}

	event := privateEvent(111, "hi")
	event.Sender.HasProfileImage = true
	f.pipeline.Handle(context.Background(), event)

	if len(f.forward.records[0].Image) == 0 {
		t.Error("expected image attached to record")
	}
}

func TestPrivateImageFetchFailureDegrades(t *testing.T) {
	f := setup(t)
	f.images.err = errors.New("download failed")

	event := privateEvent(111, "hi")
	event.Sender.HasProfileImage = true
	f.pipeline.Handle(context.Background(), event)

	if len(f.forward.records) != 1 {
		t.Fatal("expected record despite image failure")
	}
	if len(f.forward.records[0].Image) != 0 {
		t.Error("expected text-only record")
	}
	if !f.ledger.Seen(111) {
		t.Error("expected origin marked despite image failure")
	}
}

func TestPrivateEmptyImageFallsBack(t *testing.T) {
	f := setup(t)
	f.images.image = nil

	event := privateEvent(111, "hi")
	event.Sender.HasProfileImage = true
	f.pipeline.Handle(context.Background(), event)

	if len(f.forward.records) != 1 || len(f.forward.records[0].Image) != 0 {
		t.Error("expected text-only record when download yields nothing")
	}
}

func TestPrivateNoImageFlagSkipsFetch(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), privateEvent(111, "hi"))

	if f.images.calls != 0 {
		t.Errorf("expected no fetch for imageless sender, got %d calls", f.images.calls)
	}
}

func TestGroupInspectionFailure(t *testing.T) {
	f := setup(t)
	f.inspect.err = errors.New("forbidden")

	f.pipeline.Handle(context.Background(), groupEvent(-100500, 222))

	if len(f.forward.records) != 1 {
		t.Fatal("expected record despite inspection failure")
	}
	body := f.forward.records[0].Body
	if !strings.Contains(body, "❌ Bot is not admin") {
		t.Errorf("expected not-admin fallback, got %q", body)
	}
	if !f.ledger.Seen(-100500) {
		t.Error("expected group marked despite inspection failure")
	}
}

func TestGroupAdminSummary(t *testing.T) {
	f := setup(t)
	f.inspect.summary = &types.PermissionSummary{IsAdmin: true, CanPinMessages: true}
	f.inspect.err = nil

	f.pipeline.Handle(context.Background(), groupEvent(-100500, 222))

	body := f.forward.records[0].Body
	if !strings.Contains(body, "Bot is Admin") {
		t.Errorf("expected admin summary, got %q", body)
	}
	if !strings.Contains(body, "📌 Pin: true") {
		t.Errorf("expected pin capability line, got %q", body)
	}
}

func TestGroupDuplicateDropped(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), groupEvent(-100500, 222))
	f.pipeline.Handle(context.Background(), groupEvent(-100500, 333))

	if len(f.forward.records) != 1 {
		t.Fatalf("expected 1 record per group, got %d", len(f.forward.records))
	}
	if f.inspect.calls != 1 {
		t.Errorf("expected inspection only for the first event, got %d calls", f.inspect.calls)
	}
}

func TestGroupLinkPreference(t *testing.T) {
	cases := []struct {
		name   string
		group  types.GroupChat
		expect string
	}{
		{"invite wins", types.GroupChat{InviteLink: "https://t.me/+abc", MessageLink: "https://t.me/g/5"}, "https://t.me/+abc"},
		{"permalink next", types.GroupChat{MessageLink: "https://t.me/g/5"}, "https://t.me/g/5"},
		{"literal last", types.GroupChat{}, "Not Available"},
	}
	for _, tc := range cases {
		if got := resolveLink(&tc.group); got != tc.expect {
			t.Errorf("%s: resolveLink = %q, want %q", tc.name, got, tc.expect)
		}
	}
}

func TestForwardFailureStillMarks(t *testing.T) {
	f := setup(t)
	f.forward.err = errors.New("delivery refused")

	f.pipeline.Handle(context.Background(), privateEvent(111, "first"))
	f.forward.err = nil
	f.pipeline.Handle(context.Background(), privateEvent(111, "second"))

	// At-most-once: the failed attempt still consumed the origin's one slot.
	if len(f.forward.records) != 1 {
		t.Fatalf("expected no retry after failed forward, got %d records", len(f.forward.records))
	}
	if !f.ledger.Seen(111) {
		t.Error("expected origin marked after failed forward")
	}
}

func TestOwnerDiagnostic(t *testing.T) {
	f := setup(t)

	event := privateEvent(ownerID, "/ping")
	f.pipeline.Handle(context.Background(), event)

	if len(f.reply.texts) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(f.reply.texts))
	}
	if !strings.Contains(f.reply.texts[0], "Pong") {
		t.Errorf("expected pong reply, got %q", f.reply.texts[0])
	}
	if !strings.Contains(f.reply.texts[0], "1m 5s") {
		t.Errorf("expected uptime in reply, got %q", f.reply.texts[0])
	}
	if len(f.forward.records) != 0 {
		t.Error("diagnostic command must not be audited")
	}
	if f.ledger.Seen(ownerID) {
		t.Error("diagnostic command must not mark the origin")
	}
}

func TestOwnerDiagnosticWithBotSuffix(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), privateEvent(ownerID, "/ping@auditbot"))

	if len(f.reply.texts) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(f.reply.texts))
	}
}

func TestNonOwnerDiagnosticIgnored(t *testing.T) {
	f := setup(t)

	f.pipeline.Handle(context.Background(), privateEvent(111, "/ping"))

	if len(f.reply.texts) != 0 {
		t.Error("non-owner diagnostic must get no reply")
	}
	if len(f.forward.records) != 0 {
		t.Error("diagnostic command must not be audited")
	}
	if f.ledger.Seen(111) {
		t.Error("non-owner diagnostic must leave the ledger untouched")
	}
}

func TestDiagnosticReplyFailureReportsError(t *testing.T) {
	f := setup(t)
	f.reply.errs = []error{errors.New("blocked")}

	f.pipeline.Handle(context.Background(), privateEvent(ownerID, "/ping"))

	if len(f.reply.texts) != 2 {
		t.Fatalf("expected pong attempt plus error report, got %d replies", len(f.reply.texts))
	}
	if !strings.Contains(f.reply.texts[1], "Failed") {
		t.Errorf("expected short error text, got %q", f.reply.texts[1])
	}
}

func TestDiagnosticDoubleFailureDropped(t *testing.T) {
	f := setup(t)
	f.reply.errs = []error{errors.New("blocked"), errors.New("still blocked")}

	// Must not panic or propagate.
	f.pipeline.Handle(context.Background(), privateEvent(ownerID, "/ping"))
}
