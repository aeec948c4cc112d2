package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chatpoints/chatpoints-backend/internal/ledger"
	"github.com/chatpoints/chatpoints-backend/pkg/chat"
	"github.com/chatpoints/chatpoints-backend/pkg/db/models"
)

type recordingNotifier struct {
	notifications []string
	reactions     []string
	notifyErr     error
	reactErr      error
}

func (r *recordingNotifier) Notify(ctx context.Context, channelID, text string) error {
	if r.notifyErr != nil {
		return r.notifyErr
	}
	r.notifications = append(r.notifications, text)
	return nil
}

func (r *recordingNotifier) React(ctx context.Context, messageID, emoji string) error {
	if r.reactErr != nil {
		return r.reactErr
	}
	r.reactions = append(r.reactions, messageID+":"+emoji)
	return nil
}

type stubLedger struct {
	ledger.Service
	balance    int
	balanceErr error
	top        []models.Account
	topErr     error
}

func (s stubLedger) GetBalance(ctx context.Context, userID, tenantID string) (int, error) {
	return s.balance, s.balanceErr
}

func (s stubLedger) TopN(ctx context.Context, tenantID string, n int) ([]models.Account, error) {
	return s.top, s.topErr
}

func TestAnnouncerAwardNotifiesAndReacts(t *testing.T) {
	notifier := &recordingNotifier{}
	a := NewAnnouncer(notifier, "fire", nil)

	a.AnnounceAward(context.Background(), "chan_1", chat.Message{ID: "msg_1", AuthorID: "user_1"}, 3)

	if len(notifier.notifications) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notifications))
	}
	if !strings.Contains(notifier.notifications[0], "<@user_1>") ||
		!strings.Contains(notifier.notifications[0], "3 points") {
		t.Fatalf("unexpected announcement: %q", notifier.notifications[0])
	}
	if len(notifier.reactions) != 1 || notifier.reactions[0] != "msg_1:fire" {
		t.Fatalf("unexpected reactions: %v", notifier.reactions)
	}
}

func TestAnnouncerSwallowsFailures(t *testing.T) {
	notifier := &recordingNotifier{notifyErr: errors.New("down"), reactErr: errors.New("down")}
	a := NewAnnouncer(notifier, "fire", nil)

	// Must not panic or surface an error.
	a.AnnounceAward(context.Background(), "chan_1", chat.Message{ID: "msg_1", AuthorID: "user_1"}, 1)
	a.AnnounceRevert(context.Background(), "chan_1", "user_1", 0)
}

func TestFormatLeaderboard(t *testing.T) {
	if got := FormatLeaderboard(nil); !strings.Contains(got, "No points") {
		t.Fatalf("unexpected empty leaderboard text: %q", got)
	}

	accounts := []models.Account{
		{ID: uuid.New(), UserID: "u1", DisplayName: "Ali", Balance: 4},
		{ID: uuid.New(), UserID: "u2", Username: "bee", Balance: 1},
		{ID: uuid.New(), UserID: "u3", Balance: 0, CreatedAt: time.Now()},
	}
	got := FormatLeaderboard(accounts)

	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header plus 3 rows, got %q", got)
	}
	if !strings.Contains(lines[1], "1. Ali - 4 points") {
		t.Fatalf("display name row wrong: %q", lines[1])
	}
	if !strings.Contains(lines[2], "2. bee - 1 point") {
		t.Fatalf("username fallback row wrong: %q", lines[2])
	}
	if !strings.Contains(lines[3], "<@u3>") {
		t.Fatalf("mention fallback row wrong: %q", lines[3])
	}
}

func TestCommandHandlerPoints(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewCommandHandler(stubLedger{balance: 7}, notifier, 10, nil)

	handled := h.Handle(context.Background(), "tenant_1", "chan_1", chat.Message{
		AuthorID: "user_1", Content: "!points",
	})
	if !handled {
		t.Fatal("expected command to be handled")
	}
	if len(notifier.notifications) != 1 || !strings.Contains(notifier.notifications[0], "7 points") {
		t.Fatalf("unexpected reply: %v", notifier.notifications)
	}
}

func TestCommandHandlerLeaderboardAndHelp(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewCommandHandler(stubLedger{top: []models.Account{
		{UserID: "u1", Username: "ali", Balance: 2},
	}}, notifier, 10, nil)
	ctx := context.Background()

	if !h.Handle(ctx, "tenant_1", "chan_1", chat.Message{Content: "!leaderboard"}) {
		t.Fatal("expected leaderboard to be handled")
	}
	if !h.Handle(ctx, "tenant_1", "chan_1", chat.Message{Content: "!help"}) {
		t.Fatal("expected help to be handled")
	}
	if len(notifier.notifications) != 2 {
		t.Fatalf("expected two replies, got %v", notifier.notifications)
	}
	if !strings.Contains(notifier.notifications[0], "Leaderboard") {
		t.Fatalf("unexpected leaderboard reply: %q", notifier.notifications[0])
	}
}

func TestCommandHandlerIgnoresNonCommands(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewCommandHandler(stubLedger{}, notifier, 10, nil)
	ctx := context.Background()

	cases := []string{"hello", "", "!unknown", "points please"}
	for _, content := range cases {
		if h.Handle(ctx, "tenant_1", "chan_1", chat.Message{Content: content}) {
			t.Fatalf("content %q should not be handled", content)
		}
	}
	if len(notifier.notifications) != 0 {
		t.Fatalf("expected no replies, got %v", notifier.notifications)
	}
}

func TestCommandHandlerSurvivesLedgerErrors(t *testing.T) {
	notifier := &recordingNotifier{}
	h := NewCommandHandler(stubLedger{balanceErr: errors.New("db down")}, notifier, 10, nil)

	handled := h.Handle(context.Background(), "tenant_1", "chan_1", chat.Message{Content: "!points"})
	if !handled {
		t.Fatal("a failed lookup is still a handled command")
	}
	if len(notifier.notifications) != 0 {
		t.Fatalf("expected no reply on lookup failure, got %v", notifier.notifications)
	}
}
