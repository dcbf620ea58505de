//go:build !integration

package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"group-broadcast-gateway/internal/application"
	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/infra/i18n"
)

const (
	adminID    = "100000001"
	userID     = "200000002"
	strangerID = "300000003"
	window     = 30 * 24 * time.Hour
)

type fixture struct {
	activation *mockActivationUC
	auth       *mockAuthUC
	users      *mockUserUC
	groups     *mockGroupUC
	broadcasts *mockBroadcastUC
	stats      *mockStatsUC
	messenger  *mockMessenger
	tr         *i18n.Translator
	d          *application.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("failed to load locale: %v", err)
	}
	f := &fixture{
		activation: &mockActivationUC{},
		auth:       &mockAuthUC{authorized: map[string]bool{userID: true}},
		users:      &mockUserUC{},
		groups:     &mockGroupUC{},
		broadcasts: &mockBroadcastUC{},
		stats:      &mockStatsUC{},
		messenger:  &mockMessenger{},
		tr:         tr,
	}
	f.d = application.NewDispatcher(
		f.activation, f.auth, f.users, f.groups, f.broadcasts, f.stats, f.messenger, tr,
		application.DispatcherConfig{
			AdminID:           adminID,
			AdminContact:      "@operator",
			ActivationCommand: "/activate",
			UsageWindow:       window,
		},
		newTestLogger(),
	)
	return f
}

func private(sender, text string) application.InboundMessage {
	return application.InboundMessage{SenderID: sender, SenderName: "Sam", ChatID: sender, Text: text}
}

func inGroup(sender, text string) application.InboundMessage {
	return application.InboundMessage{SenderID: sender, SenderName: "Sam", ChatID: "-100123", ChatTitle: "Team", IsGroup: true, Text: text}
}

func TestDispatcher_Admin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	expires := time.Date(2026, 5, 2, 10, 30, 0, 0, time.UTC)
	f.activation.issueFunc = func(ctx context.Context, phone string) (*model.ActivationCode, error) {
		if phone != "4915112345678" {
			return nil, domain.ErrInvalidArgument
		}
		return &model.ActivationCode{Phone: phone, Code: "ABCD-EFGH", ExpiresAt: expires}, nil
	}
	f.stats.stats = &model.Stats{TotalUsers: 3, ActiveUsers: 2, TotalCodes: 4, UsedCodes: 1, TotalGroups: 5}

	t.Run("gencode issues a code", func(t *testing.T) {
		got := f.d.Handle(ctx, private(adminID, "/gencode 4915112345678"))
		if !strings.Contains(got, "ABCD-EFGH") || !strings.Contains(got, "2026-05-02 10:30") {
			t.Fatalf("unexpected reply: %q", got)
		}
	})

	t.Run("gencode without argument shows usage", func(t *testing.T) {
		if got := f.d.Handle(ctx, private(adminID, "/gencode")); got != f.tr.T("gencode_usage") {
			t.Fatalf("expected usage, but got %q", got)
		}
	})

	t.Run("gencode with a bad phone is rejected", func(t *testing.T) {
		if got := f.d.Handle(ctx, private(adminID, "/gencode abc")); got != f.tr.T("gencode_invalid_phone", "abc") {
			t.Fatalf("expected invalid phone reply, but got %q", got)
		}
	})

	t.Run("stats", func(t *testing.T) {
		if got := f.d.Handle(ctx, private(adminID, "/stats")); got != f.tr.T("stats", 3, 2, 4, 1, 5) {
			t.Fatalf("unexpected stats reply: %q", got)
		}
	})

	t.Run("bot suffix and case are ignored", func(t *testing.T) {
		if got := f.d.Handle(ctx, private(adminID, "/HELP@gateway_bot")); got != f.tr.T("admin_help") {
			t.Fatalf("expected admin help, but got %q", got)
		}
	})

	t.Run("other admin text is ignored without an auth check", func(t *testing.T) {
		before := f.auth.calls
		if got := f.d.Handle(ctx, private(adminID, "/status")); got != "" {
			t.Fatalf("expected no reply, but got %q", got)
		}
		if got := f.d.Handle(ctx, private(adminID, "hello")); got != "" {
			t.Fatalf("expected no reply, but got %q", got)
		}
		if f.auth.calls != before {
			t.Fatalf("expected the authorization gate not to be consulted")
		}
	})

	t.Run("store failure becomes a generic reply", func(t *testing.T) {
		f.stats.err = domain.ErrOperationFailed
		defer func() { f.stats.err = nil }()
		if got := f.d.Handle(ctx, private(adminID, "/stats")); got != f.tr.T("generic_error") {
			t.Fatalf("expected generic error, but got %q", got)
		}
	})
}

func TestDispatcher_Activate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	activated := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

	f.activation.redeemFunc = func(ctx context.Context, phone, input string) (*model.User, error) {
		switch input {
		case "GOOD-CODE":
			return &model.User{Phone: phone, Active: true, ActivatedAt: &activated}, nil
		case "DOWN":
			return nil, domain.ErrOperationFailed
		default:
			return nil, domain.ErrInvalidCode
		}
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"missing argument", "/activate", f.tr.T("activate_usage", "/activate")},
		{"rejected code", "/activate NOPE-NOPE", f.tr.T("activate_failed")},
		{"accepted code", "/activate GOOD-CODE", f.tr.T("activate_success", "2026-01-31 08:00")},
		{"store failure", "/activate DOWN", f.tr.T("generic_error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the activation flow never consults the gate
			if got := f.d.Handle(ctx, private(strangerID, tt.text)); got != tt.want {
				t.Fatalf("expected %q, but got %q", tt.want, got)
			}
		})
	}
	if f.auth.calls != 0 {
		t.Fatalf("expected no authorization checks, but got %d", f.auth.calls)
	}
}

func TestDispatcher_Unauthorized(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	want := f.tr.T("access_required", "@operator", "/activate")
	for _, text := range []string{"/status", "/broadcast hi", "hello"} {
		if got := f.d.Handle(ctx, private(strangerID, text)); got != want {
			t.Fatalf("%q: expected access required, but got %q", text, got)
		}
	}

	f.auth.err = domain.ErrOperationFailed
	if got := f.d.Handle(ctx, private(strangerID, "/status")); got != f.tr.T("generic_error") {
		t.Fatalf("expected generic error when the gate fails, but got %q", got)
	}
}

func TestDispatcher_GroupChatter(t *testing.T) {
	f := newFixture(t)
	if got := f.d.Handle(context.Background(), inGroup(strangerID, "good morning")); got != "" {
		t.Fatalf("expected group chatter to be ignored, but got %q", got)
	}
	if f.auth.calls != 0 {
		t.Fatalf("expected no authorization check for chatter")
	}
}

func TestDispatcher_Status(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	expires := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	f.users.statusFunc = func(ctx context.Context, phone string) (*model.UserStatus, error) {
		return &model.UserStatus{Phone: phone, Active: true, ExpiresAt: &expires, DaysRemaining: 12, GroupCount: 2}, nil
	}
	if got := f.d.Handle(ctx, private(userID, "/status")); got != f.tr.T("status_active", 12, "2026-02-01 00:00", 2) {
		t.Fatalf("unexpected status reply: %q", got)
	}

	f.users.statusFunc = func(ctx context.Context, phone string) (*model.UserStatus, error) {
		return &model.UserStatus{Phone: phone, GroupCount: 1}, nil
	}
	if got := f.d.Handle(ctx, private(userID, "/status")); got != f.tr.T("status_inactive", 1) {
		t.Fatalf("unexpected inactive reply: %q", got)
	}
}

func TestDispatcher_AddGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	addedAt := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)

	f.groups.registerFunc = func(ctx context.Context, groupID, name, owner string) (*model.Group, bool, error) {
		if groupID == "-100999" {
			return &model.Group{GroupID: groupID, Name: "Old", AddedBy: "4915100000000", AddedAt: addedAt}, false, nil
		}
		return &model.Group{GroupID: groupID, Name: name, AddedBy: owner, AddedAt: addedAt}, true, nil
	}

	if got := f.d.Handle(ctx, private(userID, "/addgroup")); got != f.tr.T("addgroup_not_group") {
		t.Fatalf("expected not-a-group reply in a private chat, but got %q", got)
	}
	if got := f.d.Handle(ctx, inGroup(userID, "/addgroup")); got != f.tr.T("addgroup_success", "Team") {
		t.Fatalf("unexpected reply: %q", got)
	}

	msg := inGroup(userID, "/addgroup")
	msg.ChatID = "-100999"
	if got := f.d.Handle(ctx, msg); got != f.tr.T("addgroup_exists", "4915100000000", "2026-01-02 03:04") {
		t.Fatalf("expected existing registration, but got %q", got)
	}
}

func TestDispatcher_Broadcast(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var captured func(*model.BroadcastResult, error)
	f.broadcasts.startFunc = func(ctx context.Context, sender, senderName, text string, done func(*model.BroadcastResult, error)) (*model.BroadcastJob, error) {
		switch text {
		case "busy":
			return nil, domain.ErrBroadcastInProgress
		case "nobody":
			return nil, domain.ErrNoGroups
		case "queue full":
			return nil, domain.ErrOperationFailed
		}
		if sender != userID || senderName != "Sam" {
			t.Errorf("unexpected sender %s/%s", sender, senderName)
		}
		captured = done
		return &model.BroadcastJob{ID: "job-1", Sender: sender, Total: 3}, nil
	}

	tests := []struct {
		text string
		want string
	}{
		{"/broadcast", f.tr.T("broadcast_usage")},
		{"/broadcast    ", f.tr.T("broadcast_usage")},
		{"/broadcast busy", f.tr.T("broadcast_in_progress")},
		{"/broadcast nobody", f.tr.T("broadcast_no_groups")},
		{"/broadcast queue full", f.tr.T("generic_error")},
		{"/broadcast hello all", f.tr.T("broadcast_started", 3)},
	}
	for _, tt := range tests {
		if got := f.d.Handle(ctx, private(userID, tt.text)); got != tt.want {
			t.Fatalf("%q: expected %q, but got %q", tt.text, tt.want, got)
		}
	}

	if captured == nil {
		t.Fatal("expected a completion callback")
	}
	captured(&model.BroadcastResult{JobID: "job-1", Total: 3, Success: 2, Failed: 1}, nil)
	sent := f.messenger.Sent()
	if len(sent) != 1 || sent[0].Target != userID || sent[0].Text != f.tr.T("broadcast_done", 2, 1, 0) {
		t.Fatalf("expected one summary to the sender's chat, but got %+v", sent)
	}
}

func TestDispatcher_UnknownAndHelp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if got := f.d.Handle(ctx, private(userID, "/frobnicate")); got != f.tr.T("unknown_command") {
		t.Fatalf("expected unknown command reply, but got %q", got)
	}
	if got := f.d.Handle(ctx, private(userID, "/help")); got != f.tr.T("user_help") {
		t.Fatalf("expected user help, but got %q", got)
	}
	if got := f.d.Handle(ctx, private(userID, "   ")); got != "" {
		t.Fatalf("expected no reply for blank text, but got %q", got)
	}
}

func TestDispatcher_NeverPanicsOnSendFailure(t *testing.T) {
	f := newFixture(t)
	f.messenger.err = errors.New("down")
	var done func(*model.BroadcastResult, error)
	f.broadcasts.startFunc = func(ctx context.Context, sender, senderName, text string, cb func(*model.BroadcastResult, error)) (*model.BroadcastJob, error) {
		done = cb
		return &model.BroadcastJob{Total: 1}, nil
	}
	_ = f.d.Handle(context.Background(), private(userID, "/broadcast x"))
	done(&model.BroadcastResult{Total: 1, Failed: 1}, nil)
}
