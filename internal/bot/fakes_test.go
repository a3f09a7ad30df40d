package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"sentinel-moderation/internal/scheduler"
	"sentinel-moderation/internal/storage"

	"github.com/bwmarrin/discordgo"
)

type permissionCall struct {
	channelID string
	roleID    string
	deny      int64
}

type fakeAPI struct {
	mu sync.Mutex

	roles    []*discordgo.Role
	channels []*discordgo.Channel

	bans         []string
	unbans       []string
	kicks        []string
	roleAdds     []string
	roleRemoves  []string
	created      []*discordgo.RoleParams
	permissions  []permissionCall
	embeds       map[string][]*discordgo.MessageEmbed
	replies      []*discordgo.MessageEmbed
	banErr       error
	unbanErr     error
	roleAddErr   error
	roleRemoveEr error
	sendErr      error

	// unbanGate, when set, holds GuildBanDelete until it is closed.
	unbanGate chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{embeds: make(map[string][]*discordgo.MessageEmbed)}
}

func (f *fakeAPI) GuildBanCreateWithReason(guildID, userID, reason string, days int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, fmt.Sprintf("%s/%s/%s/%d", guildID, userID, reason, days))
	return nil
}

func (f *fakeAPI) GuildBanDelete(guildID, userID string) error {
	if f.unbanGate != nil {
		<-f.unbanGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unbanErr != nil {
		return f.unbanErr
	}
	f.unbans = append(f.unbans, guildID+"/"+userID)
	return nil
}

func (f *fakeAPI) GuildMemberDeleteWithReason(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicks = append(f.kicks, guildID+"/"+userID)
	return nil
}

func (f *fakeAPI) GuildMemberRoleAdd(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleAddErr != nil {
		return f.roleAddErr
	}
	f.roleAdds = append(f.roleAdds, userID+"/"+roleID)
	return nil
}

func (f *fakeAPI) GuildMemberRoleRemove(guildID, userID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleRemoveEr != nil {
		return f.roleRemoveEr
	}
	f.roleRemoves = append(f.roleRemoves, userID+"/"+roleID)
	return nil
}

func (f *fakeAPI) GuildRoles(guildID string) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Role(nil), f.roles...), nil
}

func (f *fakeAPI) GuildRoleCreate(guildID string, params *discordgo.RoleParams) (*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role := &discordgo.Role{ID: fmt.Sprintf("role-%d", len(f.created)+1), Name: params.Name}
	f.created = append(f.created, params)
	f.roles = append(f.roles, role)
	return role, nil
}

func (f *fakeAPI) GuildChannels(guildID string) ([]*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Channel(nil), f.channels...), nil
}

func (f *fakeAPI) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permissions = append(f.permissions, permissionCall{channelID: channelID, roleID: targetID, deny: deny})
	return nil
}

func (f *fakeAPI) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.embeds[channelID] = append(f.embeds[channelID], embed)
	return &discordgo.Message{ID: "m", ChannelID: channelID}, nil
}

func (f *fakeAPI) UserChannelCreate(userID string) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + userID}, nil
}

func (f *fakeAPI) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string) ([]*discordgo.Message, error) {
	return nil, nil
}

func (f *fakeAPI) ChannelMessageDelete(channelID, messageID string) error {
	return nil
}

func (f *fakeAPI) ChannelMessagesBulkDelete(channelID string, messages []string) error {
	return nil
}

func (f *fakeAPI) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp.Data != nil {
		f.replies = append(f.replies, resp.Data.Embeds...)
	}
	return nil
}

func (f *fakeAPI) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, data.Embeds...)
	return &discordgo.Message{ID: "followup"}, nil
}

// lastReply returns the title of the newest embed sent back to the invoker.
func (f *fakeAPI) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return ""
	}
	return f.replies[len(f.replies)-1].Title
}

func (f *fakeAPI) counts() (bans, unbans, roleAdds, roleRemoves int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bans), len(f.unbans), len(f.roleAdds), len(f.roleRemoves)
}

func (f *fakeAPI) sent(channelID string) []*discordgo.MessageEmbed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embeds[channelID]
}

type fakeRoleStore struct {
	mu    sync.Mutex
	roles map[string]string
}

func newFakeRoleStore() *fakeRoleStore {
	return &fakeRoleStore{roles: make(map[string]string)}
}

func (f *fakeRoleStore) GetGuildSettings(_ context.Context, guildID string, defaults storage.GuildSettings) (storage.GuildSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defaults.GuildID = guildID
	defaults.MutedRoleID = f.roles[guildID]
	return defaults, nil
}

func (f *fakeRoleStore) SetMutedRole(_ context.Context, guildID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[guildID] = roleID
	return nil
}

type fakeRecorder struct {
	mu    sync.Mutex
	cases []storage.ModCase
}

func (f *fakeRecorder) Record(_ context.Context, entry storage.ModCase) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cases = append(f.cases, entry)
	return int64(len(f.cases))
}

func restError(code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

type manualTimer struct {
	clock    *manualClock
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// manualClock runs timers only when Advance passes their deadline.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, fn func()) scheduler.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, deadline: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.deadline.After(c.now):
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}
