package bot

import (
	"context"
	"errors"
	"sync"
	"testing"

	"sentinel-moderation/internal/scheduler"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const testRoleName = "🔇 Muted"

func TestExecutorTempBan(t *testing.T) {
	api := newFakeAPI()
	exec := newExecutor(api, newFakeRoleStore(), testRoleName, zap.NewNop())
	ctx := context.Background()

	if err := exec.Apply(ctx, "g1", "u1", scheduler.KindTempBan, "spam"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(api.bans) != 1 || api.bans[0] != "g1/u1/Tempban: spam/0" {
		t.Fatalf("unexpected bans: %v", api.bans)
	}
	if err := exec.Reverse(ctx, "g1", "u1", scheduler.KindTempBan); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if len(api.unbans) != 1 {
		t.Fatalf("expected one unban, got %v", api.unbans)
	}
}

func TestExecutorReverseUnknownBanIsDone(t *testing.T) {
	api := newFakeAPI()
	api.unbanErr = restError(discordgo.ErrCodeUnknownBan)
	exec := newExecutor(api, newFakeRoleStore(), testRoleName, zap.NewNop())

	if err := exec.Reverse(context.Background(), "g1", "u1", scheduler.KindTempBan); err != nil {
		t.Fatalf("expected unknown ban to count as reversed, got %v", err)
	}
}

func TestExecutorReverseSurfacesOtherErrors(t *testing.T) {
	api := newFakeAPI()
	api.unbanErr = restError(discordgo.ErrCodeMissingPermissions)
	exec := newExecutor(api, newFakeRoleStore(), testRoleName, zap.NewNop())

	err := exec.Reverse(context.Background(), "g1", "u1", scheduler.KindTempBan)
	if err == nil || !isMissingPermissions(err) {
		t.Fatalf("expected missing permissions error, got %v", err)
	}
}

func TestExecutorMuteCreatesRoleOnce(t *testing.T) {
	api := newFakeAPI()
	api.channels = []*discordgo.Channel{{ID: "c1"}, {ID: "c2"}}
	roles := newFakeRoleStore()
	exec := newExecutor(api, roles, testRoleName, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, member := range []string{"u1", "u2", "u3"} {
		wg.Add(1)
		go func(member string) {
			defer wg.Done()
			if err := exec.Apply(ctx, "g1", member, scheduler.KindTempMute, "noise"); err != nil {
				t.Errorf("apply: %v", err)
			}
		}(member)
	}
	wg.Wait()

	if len(api.created) != 1 {
		t.Fatalf("expected the muted role to be created once, got %d", len(api.created))
	}
	if api.created[0].Name != testRoleName || api.created[0].Permissions == nil || *api.created[0].Permissions != 0 {
		t.Fatalf("unexpected role params: %+v", api.created[0])
	}
	if len(api.permissions) != 2 {
		t.Fatalf("expected an overwrite per channel, got %d", len(api.permissions))
	}
	for _, call := range api.permissions {
		if call.deny != mutedDeny || call.roleID != "role-1" {
			t.Fatalf("unexpected overwrite: %+v", call)
		}
	}
	if len(api.roleAdds) != 3 {
		t.Fatalf("expected three role adds, got %v", api.roleAdds)
	}
	if roles.roles["g1"] != "role-1" {
		t.Fatalf("expected role id to be stored, got %q", roles.roles["g1"])
	}
}

func TestExecutorMuteReusesNamedRole(t *testing.T) {
	api := newFakeAPI()
	api.roles = []*discordgo.Role{{ID: "existing", Name: testRoleName}}
	exec := newExecutor(api, newFakeRoleStore(), testRoleName, zap.NewNop())

	if err := exec.Apply(context.Background(), "g1", "u1", scheduler.KindTempMute, ""); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(api.created) != 0 {
		t.Fatalf("expected existing role to be reused")
	}
	if len(api.roleAdds) != 1 || api.roleAdds[0] != "u1/existing" {
		t.Fatalf("unexpected role adds: %v", api.roleAdds)
	}
}

func TestExecutorUnmute(t *testing.T) {
	api := newFakeAPI()
	roles := newFakeRoleStore()
	exec := newExecutor(api, roles, testRoleName, zap.NewNop())
	ctx := context.Background()

	if err := exec.Reverse(ctx, "g1", "u1", scheduler.KindTempMute); err != nil {
		t.Fatalf("reverse without role: %v", err)
	}
	if len(api.created) != 0 || len(api.roleRemoves) != 0 {
		t.Fatalf("unmute must not create a role")
	}

	api.roles = []*discordgo.Role{{ID: "r9", Name: "other"}, {ID: "r1", Name: testRoleName}}
	if err := exec.Reverse(ctx, "g1", "u1", scheduler.KindTempMute); err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if len(api.roleRemoves) != 1 || api.roleRemoves[0] != "u1/r1" {
		t.Fatalf("unexpected role removes: %v", api.roleRemoves)
	}

	api.roleRemoveEr = restError(discordgo.ErrCodeUnknownMember)
	if err := exec.Reverse(ctx, "g1", "gone", scheduler.KindTempMute); err != nil {
		t.Fatalf("expected departed member to count as unmuted, got %v", err)
	}

	api.roleRemoveEr = errors.New("boom")
	if err := exec.Reverse(ctx, "g1", "u1", scheduler.KindTempMute); err == nil {
		t.Fatalf("expected platform error")
	}
}

func TestExecutorChannelCreateExtendsRole(t *testing.T) {
	api := newFakeAPI()
	exec := newExecutor(api, newFakeRoleStore(), testRoleName, zap.NewNop())
	ctx := context.Background()

	exec.onChannelCreate(ctx, &discordgo.Channel{ID: "c1", GuildID: "g1"})
	if len(api.permissions) != 0 {
		t.Fatalf("no muted role yet, expected no overwrite")
	}

	api.roles = []*discordgo.Role{{ID: "r1", Name: testRoleName}}
	exec.onChannelCreate(ctx, &discordgo.Channel{ID: "c2", GuildID: "g1"})
	if len(api.permissions) != 1 || api.permissions[0].channelID != "c2" {
		t.Fatalf("unexpected overwrites: %+v", api.permissions)
	}
}

func TestExecutorUnknownKind(t *testing.T) {
	exec := newExecutor(newFakeAPI(), newFakeRoleStore(), testRoleName, zap.NewNop())
	if err := exec.Apply(context.Background(), "g1", "u1", scheduler.Kind(99), ""); err == nil {
		t.Fatalf("expected unsupported kind error")
	}
}
