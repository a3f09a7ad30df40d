package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sentinel-moderation/internal/config"
	"sentinel-moderation/internal/modules/audit"
	"sentinel-moderation/internal/scheduler"
)

func testSnapshot(kind scheduler.Kind, channelID string) scheduler.Snapshot {
	applied := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return scheduler.Snapshot{
		Key:         scheduler.Key{GuildID: "g1", MemberID: "u1", Kind: kind},
		Reason:      "spam",
		ChannelID:   channelID,
		ModeratorID: "mod1",
		AppliedAt:   applied,
		FireAt:      applied.Add(2 * time.Hour),
	}
}

func newTestNotifier(api *fakeAPI, recorder *fakeRecorder) *notifier {
	return &notifier{
		api:    api,
		audit:  recorder,
		colors: config.DefaultConfig().Notifications.EmbedColors,
		footer: "Sentinel Moderation",
	}
}

func TestNotifyReversed(t *testing.T) {
	api := newFakeAPI()
	recorder := &fakeRecorder{}
	n := newTestNotifier(api, recorder)

	event := scheduler.Event{Type: scheduler.EventReversed, Action: testSnapshot(scheduler.KindTempBan, "c1"), Attempts: 1}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	sent := api.sent("c1")
	if len(sent) != 1 {
		t.Fatalf("expected one embed, got %d", len(sent))
	}
	if sent[0].Title != "✅ Timed Action Expired" {
		t.Fatalf("unexpected title %q", sent[0].Title)
	}
	if !strings.Contains(sent[0].Description, "<@u1> has been automatically unbanned after 2h") {
		t.Fatalf("unexpected description %q", sent[0].Description)
	}
	if len(recorder.cases) != 1 || recorder.cases[0].Action != audit.ActionAutoUnban {
		t.Fatalf("unexpected cases: %+v", recorder.cases)
	}
	if recorder.cases[0].Duration != 2*time.Hour || recorder.cases[0].ModeratorID != "mod1" {
		t.Fatalf("unexpected case: %+v", recorder.cases[0])
	}
}

func TestNotifyMuteWithoutChannel(t *testing.T) {
	api := newFakeAPI()
	recorder := &fakeRecorder{}
	n := newTestNotifier(api, recorder)

	event := scheduler.Event{Type: scheduler.EventReversed, Action: testSnapshot(scheduler.KindTempMute, ""), Attempts: 1}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(api.embeds) != 0 {
		t.Fatalf("expected no embeds without a channel")
	}
	if len(recorder.cases) != 1 || recorder.cases[0].Action != audit.ActionAutoUnmute {
		t.Fatalf("unexpected cases: %+v", recorder.cases)
	}
}

func TestNotifyReverseFailed(t *testing.T) {
	api := newFakeAPI()
	recorder := &fakeRecorder{}
	n := newTestNotifier(api, recorder)

	event := scheduler.Event{
		Type:     scheduler.EventReverseFailed,
		Action:   testSnapshot(scheduler.KindTempMute, "c1"),
		Attempts: 3,
		Err:      errors.New("missing access"),
	}
	if err := n.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	sent := api.sent("c1")
	if len(sent) != 1 || sent[0].Title != "❌ Automatic Reversal Failed" {
		t.Fatalf("unexpected embeds: %+v", sent)
	}
	if sent[0].Color != n.colors.Red {
		t.Fatalf("expected red embed")
	}
	if len(recorder.cases) != 1 || recorder.cases[0].Action != audit.ActionReverseFailed {
		t.Fatalf("unexpected cases: %+v", recorder.cases)
	}
	if !strings.Contains(recorder.cases[0].Reason, "after 3 attempts: missing access") {
		t.Fatalf("unexpected reason %q", recorder.cases[0].Reason)
	}
}

func TestNotifySendError(t *testing.T) {
	api := newFakeAPI()
	api.sendErr = errors.New("channel deleted")
	recorder := &fakeRecorder{}
	n := newTestNotifier(api, recorder)

	event := scheduler.Event{Type: scheduler.EventReversed, Action: testSnapshot(scheduler.KindTempBan, "c1"), Attempts: 1}
	if err := n.Notify(context.Background(), event); err == nil {
		t.Fatalf("expected send error")
	}
	if len(recorder.cases) != 1 {
		t.Fatalf("case must be recorded even when the embed fails")
	}
}
