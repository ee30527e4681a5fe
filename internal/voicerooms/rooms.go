// Package voicerooms implements join-to-create voice channels. Joining
// a registered master channel spawns a personal room in the master's
// category and moves the member into it; the room is deleted once the
// last member leaves.
package voicerooms

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/storage"
)

type Client interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type Manager struct {
	client  Client
	store   *storage.Store
	logger  *zap.Logger
	guildID string

	mu      sync.Mutex
	masters map[string]string // master channel ID -> category ID
	rooms   map[string]string // spawned channel ID -> owner user ID
}

func New(client Client, store *storage.Store, logger *zap.Logger, guildID string) *Manager {
	return &Manager{
		client:  client,
		store:   store,
		logger:  logger,
		guildID: guildID,
		masters: make(map[string]string),
		rooms:   make(map[string]string),
	}
}

// Load reads registered master channels from storage. Spawned rooms are
// not persisted; any left over from a previous run are orphaned until
// their members leave and Discord reports them empty again.
func (m *Manager) Load(ctx context.Context) error {
	masters, err := m.store.ListVoiceMasters(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, master := range masters {
		m.masters[master.ChannelID] = master.CategoryID
	}
	return nil
}

func (m *Manager) RegisterMaster(ctx context.Context, channelID, categoryID string) error {
	if err := m.store.UpsertVoiceMaster(ctx, storage.VoiceMaster{ChannelID: channelID, CategoryID: categoryID}); err != nil {
		return err
	}
	m.mu.Lock()
	m.masters[channelID] = categoryID
	m.mu.Unlock()
	return nil
}

func (m *Manager) UnregisterMaster(ctx context.Context, channelID string) error {
	if err := m.store.DeleteVoiceMaster(ctx, channelID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.masters, channelID)
	m.mu.Unlock()
	return nil
}

func (m *Manager) IsMaster(channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.masters[channelID]
	return ok
}

func (m *Manager) IsRoom(channelID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rooms[channelID]
	return ok
}

// HandleJoin spawns a room when the joined channel is a master and
// moves the member into it. Returns the new channel ID, or empty when
// the join was not on a master channel.
func (m *Manager) HandleJoin(userID, username, channelID string) (string, error) {
	m.mu.Lock()
	categoryID, ok := m.masters[channelID]
	m.mu.Unlock()
	if !ok {
		return "", nil
	}

	channel, err := m.client.GuildChannelCreateComplex(m.guildID, discordgo.GuildChannelCreateData{
		Name:     fmt.Sprintf("%s's room", username),
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: categoryID,
	})
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.rooms[channel.ID] = userID
	m.mu.Unlock()

	if err := m.client.GuildMemberMove(m.guildID, userID, &channel.ID); err != nil {
		// The member left voice before the move landed. Tear the empty
		// room back down.
		m.logger.Warn("move into spawned room failed", zap.String("user_id", userID), zap.Error(err))
		m.deleteRoom(channel.ID)
		return "", err
	}

	m.logger.Info("voice room spawned",
		zap.String("owner_id", userID),
		zap.String("channel_id", channel.ID))
	return channel.ID, nil
}

// HandleLeave deletes a spawned room once it is empty. remaining is the
// occupant count after the departure.
func (m *Manager) HandleLeave(channelID string, remaining int) {
	if remaining > 0 {
		return
	}
	m.mu.Lock()
	_, ok := m.rooms[channelID]
	m.mu.Unlock()
	if !ok {
		return
	}
	m.deleteRoom(channelID)
}

func (m *Manager) deleteRoom(channelID string) {
	if _, err := m.client.ChannelDelete(channelID); err != nil {
		m.logger.Warn("room delete failed", zap.String("channel_id", channelID), zap.Error(err))
		return
	}
	m.mu.Lock()
	delete(m.rooms, channelID)
	m.mu.Unlock()
}
