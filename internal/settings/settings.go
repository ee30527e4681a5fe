// Package settings provides typed access to the server configuration
// stored in the server_settings table. Role and channel IDs are kept as
// strings; the role guard validates them against the live guild at use
// time.
package settings

import (
	"context"
	"encoding/json"

	"hearthwarden/internal/storage"
)

const (
	KeyBotChannel        = "bot_channel_id"
	KeyBoostAnnounce     = "boost_announce_channel_id"
	KeyBoosterChat       = "booster_chat_channel_id"
	KeyBoosterLoungeVC   = "booster_lounge_vc_id"
	KeyModLogChannel     = "mod_log_channel_id"
	KeyServerBoosterRole = "server_booster_role_id"
	KeyVeteranRole       = "veteran_booster_role_id"
	KeyMythicRole        = "mythic_booster_role_id"
	KeySpotlightRole     = "booster_spotlight_role_id"
	KeyMutedRole         = "muted_role_id"
	KeyRestrictedRole    = "restricted_role_id"
	KeyXPEnabled         = "xp_system_enabled"
	KeyColorRoles        = "booster_color_roles"
	KeyEmblemRoles       = "booster_emblem_roles"
)

var defaults = map[string]string{
	KeyBotChannel:        "",
	KeyBoostAnnounce:     "",
	KeyBoosterChat:       "",
	KeyBoosterLoungeVC:   "",
	KeyModLogChannel:     "",
	KeyServerBoosterRole: "",
	KeyVeteranRole:       "",
	KeyMythicRole:        "",
	KeySpotlightRole:     "",
	KeyMutedRole:         "",
	KeyRestrictedRole:    "",
	KeyXPEnabled:         "0",
	KeyColorRoles:        "{}",
	KeyEmblemRoles:       "{}",
}

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

func (s *Service) Get(ctx context.Context, key string) (string, error) {
	value, found, err := s.store.GetSetting(ctx, key)
	if err != nil {
		return "", err
	}
	if !found {
		return defaults[key], nil
	}
	return value, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.store.SetSetting(ctx, key, value)
}

func (s *Service) Bool(ctx context.Context, key string) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return value == "1", nil
}

func (s *Service) SetBool(ctx context.Context, key string, enabled bool) error {
	value := "0"
	if enabled {
		value = "1"
	}
	return s.Set(ctx, key, value)
}

// All merges stored settings over the defaults.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.store.AllSettings(ctx)
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(defaults))
	for key, value := range defaults {
		merged[key] = value
	}
	for key, value := range stored {
		merged[key] = value
	}
	return merged, nil
}

func (s *Service) ColorRoles(ctx context.Context) (map[string]string, error) {
	return s.roleMap(ctx, KeyColorRoles)
}

func (s *Service) SetColorRole(ctx context.Context, name, roleID string) error {
	return s.updateRoleMap(ctx, KeyColorRoles, name, roleID)
}

func (s *Service) RemoveColorRole(ctx context.Context, name string) error {
	return s.updateRoleMap(ctx, KeyColorRoles, name, "")
}

func (s *Service) EmblemRoles(ctx context.Context) (map[string]string, error) {
	return s.roleMap(ctx, KeyEmblemRoles)
}

func (s *Service) SetEmblemRole(ctx context.Context, emoji, roleID string) error {
	return s.updateRoleMap(ctx, KeyEmblemRoles, emoji, roleID)
}

func (s *Service) RemoveEmblemRole(ctx context.Context, emoji string) error {
	return s.updateRoleMap(ctx, KeyEmblemRoles, emoji, "")
}

func (s *Service) roleMap(ctx context.Context, key string) (map[string]string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	roles := make(map[string]string)
	if err := json.Unmarshal([]byte(value), &roles); err != nil {
		// A corrupt stored map falls back to empty rather than wedging
		// cosmetic commands.
		return make(map[string]string), nil
	}
	return roles, nil
}

func (s *Service) updateRoleMap(ctx context.Context, key, name, roleID string) error {
	roles, err := s.roleMap(ctx, key)
	if err != nil {
		return err
	}
	if roleID == "" {
		delete(roles, name)
	} else {
		roles[name] = roleID
	}
	encoded, err := json.Marshal(roles)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(encoded))
}
