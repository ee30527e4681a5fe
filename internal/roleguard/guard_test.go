package roleguard

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/config"
)

type fakeClient struct {
	roles       []*discordgo.Role
	members     map[string]*discordgo.Member
	memberErr   map[string]error
	addCalls    int
	removeCalls int
	addErr      error
	removeErr   error
	onAdd       func(userID, roleID string)
	onRemove    func(userID, roleID string)
}

func (f *fakeClient) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Roles: f.roles}, nil
}

func (f *fakeClient) GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error) {
	if err := f.memberErr[userID]; err != nil {
		return nil, err
	}
	member, ok := f.members[userID]
	if !ok {
		return nil, notFoundErr()
	}
	return member, nil
}

func (f *fakeClient) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.addCalls++
	if f.addErr != nil {
		return f.addErr
	}
	if f.onAdd != nil {
		f.onAdd(userID, roleID)
	}
	return nil
}

func (f *fakeClient) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	if f.onRemove != nil {
		f.onRemove(userID, roleID)
	}
	return nil
}

func notFoundErr() error {
	return &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember}}
}

func newTestGuard(client *fakeClient) *Guard {
	cfg := config.DefaultConfig().Booster
	guard := New(client, zap.NewNop(), "bot", cfg)
	guard.WithSleep(func(time.Duration) {})
	return guard
}

func baseClient() *fakeClient {
	client := &fakeClient{
		roles: []*discordgo.Role{
			{ID: "botrole", Position: 10},
			{ID: "perk", Position: 5},
			{ID: "admin", Position: 20},
		},
		members: map[string]*discordgo.Member{
			"bot": {User: &discordgo.User{ID: "bot"}, Roles: []string{"botrole"}},
			"u1":  {User: &discordgo.User{ID: "u1"}, Roles: []string{}},
		},
		memberErr: map[string]error{},
	}
	client.onAdd = func(userID, roleID string) {
		member := client.members[userID]
		member.Roles = append(member.Roles, roleID)
	}
	client.onRemove = func(userID, roleID string) {
		member := client.members[userID]
		kept := member.Roles[:0]
		for _, id := range member.Roles {
			if id != roleID {
				kept = append(kept, id)
			}
		}
		member.Roles = kept
	}
	return client
}

func TestGrantVerifiesRole(t *testing.T) {
	client := baseClient()
	guard := newTestGuard(client)

	outcome, err := guard.Grant("g", "u1", "perk")
	if err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if outcome != Applied {
		t.Fatalf("outcome = %v, want Applied", outcome)
	}
	if client.addCalls != 1 {
		t.Fatalf("add calls = %d, want 1", client.addCalls)
	}
}

func TestGrantSkipsWhenRoleAboveBot(t *testing.T) {
	client := baseClient()
	guard := newTestGuard(client)

	outcome, err := guard.Grant("g", "u1", "admin")
	if !errors.Is(err, ErrHierarchy) {
		t.Fatalf("err = %v, want ErrHierarchy", err)
	}
	if outcome != Skipped {
		t.Fatalf("outcome = %v, want Skipped", outcome)
	}
	if client.addCalls != 0 {
		t.Fatalf("add calls = %d, want 0 on hierarchy conflict", client.addCalls)
	}
}

func TestGrantAlreadyHeldIsSkip(t *testing.T) {
	client := baseClient()
	client.members["u1"].Roles = []string{"perk"}
	guard := newTestGuard(client)

	outcome, err := guard.Grant("g", "u1", "perk")
	if err != nil || outcome != Skipped {
		t.Fatalf("got (%v, %v), want (Skipped, nil)", outcome, err)
	}
	if client.addCalls != 0 {
		t.Fatalf("add calls = %d, want 0", client.addCalls)
	}
}

func TestGrantSilentDropFailsVerify(t *testing.T) {
	client := baseClient()
	client.onAdd = nil
	guard := newTestGuard(client)

	_, err := guard.Grant("g", "u1", "perk")
	if !errors.Is(err, ErrVerifyFailed) {
		t.Fatalf("err = %v, want ErrVerifyFailed", err)
	}
}

func TestRevokeMemberLeftIsCleanSkip(t *testing.T) {
	client := baseClient()
	delete(client.members, "u1")
	guard := newTestGuard(client)

	outcome, err := guard.Revoke("g", "u1", "perk")
	if err != nil {
		t.Fatalf("revoke of departed member errored: %v", err)
	}
	if outcome != Skipped {
		t.Fatalf("outcome = %v, want Skipped", outcome)
	}
	if client.removeCalls != 0 {
		t.Fatalf("remove calls = %d, want 0", client.removeCalls)
	}
}

func TestRevokeRemovesHeldRole(t *testing.T) {
	client := baseClient()
	client.members["u1"].Roles = []string{"perk"}
	guard := newTestGuard(client)

	outcome, err := guard.Revoke("g", "u1", "perk")
	if err != nil || outcome != Applied {
		t.Fatalf("got (%v, %v), want (Applied, nil)", outcome, err)
	}
	if hasRole(client.members["u1"], "perk") {
		t.Fatal("role still held after revoke")
	}
}

func TestForbiddenMapped(t *testing.T) {
	client := baseClient()
	client.addErr = &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeMissingPermissions}}
	guard := newTestGuard(client)

	_, err := guard.Grant("g", "u1", "perk")
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
}
