package voicerooms

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/storage"
)

type fakeVoiceClient struct {
	nextID  int
	created []discordgo.GuildChannelCreateData
	moves   map[string]string
	deleted []string
	moveErr error
}

func (f *fakeVoiceClient) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.nextID++
	f.created = append(f.created, data)
	return &discordgo.Channel{ID: "room-" + string(rune('0'+f.nextID)), ParentID: data.ParentID}, nil
}

func (f *fakeVoiceClient) GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	if f.moves == nil {
		f.moves = make(map[string]string)
	}
	f.moves[userID] = *channelID
	return nil
}

func (f *fakeVoiceClient) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.deleted = append(f.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeVoiceClient) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := &fakeVoiceClient{}
	return New(client, store, zap.NewNop(), "g"), client
}

func TestJoinMasterSpawnsRoomAndMoves(t *testing.T) {
	manager, client := newTestManager(t)
	ctx := context.Background()

	if err := manager.RegisterMaster(ctx, "master", "category"); err != nil {
		t.Fatalf("register: %v", err)
	}

	roomID, err := manager.HandleJoin("u1", "Ayla", "master")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if roomID == "" {
		t.Fatal("no room created")
	}
	if client.created[0].ParentID != "category" {
		t.Fatalf("room parent = %q, want category", client.created[0].ParentID)
	}
	if client.moves["u1"] != roomID {
		t.Fatalf("member moved to %q, want %q", client.moves["u1"], roomID)
	}
	if !manager.IsRoom(roomID) {
		t.Fatal("room not tracked")
	}
}

func TestJoinOrdinaryChannelIgnored(t *testing.T) {
	manager, client := newTestManager(t)

	roomID, err := manager.HandleJoin("u1", "Ayla", "general-vc")
	if err != nil || roomID != "" {
		t.Fatalf("got (%q, %v), want no-op", roomID, err)
	}
	if len(client.created) != 0 {
		t.Fatal("channel created for non-master join")
	}
}

func TestEmptyRoomDeleted(t *testing.T) {
	manager, client := newTestManager(t)
	ctx := context.Background()

	manager.RegisterMaster(ctx, "master", "category")
	roomID, _ := manager.HandleJoin("u1", "Ayla", "master")

	manager.HandleLeave(roomID, 1)
	if len(client.deleted) != 0 {
		t.Fatal("occupied room deleted")
	}

	manager.HandleLeave(roomID, 0)
	if len(client.deleted) != 1 || client.deleted[0] != roomID {
		t.Fatalf("deleted = %v, want [%s]", client.deleted, roomID)
	}
	if manager.IsRoom(roomID) {
		t.Fatal("deleted room still tracked")
	}
}

func TestFailedMoveTearsRoomDown(t *testing.T) {
	manager, client := newTestManager(t)
	ctx := context.Background()

	manager.RegisterMaster(ctx, "master", "category")
	client.moveErr = errors.New("member not in voice")

	if _, err := manager.HandleJoin("u1", "Ayla", "master"); err == nil {
		t.Fatal("expected move failure")
	}
	if len(client.deleted) != 1 {
		t.Fatalf("deleted = %v, want the orphaned room", client.deleted)
	}
}

func TestLoadRestoresMasters(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := store.UpsertVoiceMaster(ctx, storage.VoiceMaster{ChannelID: "master", CategoryID: "category"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	manager := New(&fakeVoiceClient{}, store, zap.NewNop(), "g")
	if err := manager.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !manager.IsMaster("master") {
		t.Fatal("master not restored from storage")
	}
}
