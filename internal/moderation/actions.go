// Package moderation implements the staff-facing actions. Every action
// checks role hierarchy before touching Discord, records a mod-log
// case, and tries to DM the target; DM failures never block the
// action.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/config"
	"hearthwarden/internal/modlog"
	"hearthwarden/internal/roleguard"
	"hearthwarden/internal/settings"
	"hearthwarden/internal/storage"
)

var (
	ErrHierarchy      = errors.New("target outranks the moderator or the bot")
	ErrRoleNotSet     = errors.New("required moderation role is not configured")
	ErrSelfTarget     = errors.New("cannot moderate yourself")
	ErrBadDuration    = errors.New("unparseable duration")
	ErrAlreadyApplied = errors.New("action is already in effect")
	PermanentDuration = time.Duration(-1)
)

// Client is the slice of the Discord session moderation needs.
type Client interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type RoleGuard interface {
	Grant(guildID, userID, roleID string) (roleguard.Outcome, error)
	Revoke(guildID, userID, roleID string) (roleguard.Outcome, error)
	HasRole(guildID, userID, roleID string) (bool, error)
}

type Actions struct {
	client    Client
	guard     RoleGuard
	store     *storage.Store
	settings  *settings.Service
	cases     *modlog.Logger
	logger    *zap.Logger
	guildID   string
	botUserID string
	cfg       config.ModConfig
	notify    config.NotifyConfig

	after func(time.Duration, func()) // scheduling hook, time.AfterFunc in production
}

func New(client Client, guard RoleGuard, store *storage.Store, svc *settings.Service, cases *modlog.Logger, logger *zap.Logger, guildID, botUserID string, cfg config.ModConfig, notify config.NotifyConfig) *Actions {
	return &Actions{
		client:    client,
		guard:     guard,
		store:     store,
		settings:  svc,
		cases:     cases,
		logger:    logger,
		guildID:   guildID,
		botUserID: botUserID,
		cfg:       cfg,
		notify:    notify,
		after:     func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

// WithScheduler replaces the delayed-callback hook, for tests.
func (a *Actions) WithScheduler(after func(time.Duration, func())) {
	a.after = after
}

// ParseDuration reads moderator shorthand like 30m, 2h, 7d, 1w.
// "perm" yields PermanentDuration.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "perm" || raw == "permanent" {
		return PermanentDuration, nil
	}
	if len(raw) < 2 {
		return 0, ErrBadDuration
	}
	value, err := strconv.Atoi(raw[:len(raw)-1])
	if err != nil || value <= 0 {
		return 0, ErrBadDuration
	}
	switch raw[len(raw)-1] {
	case 'm':
		return time.Duration(value) * time.Minute, nil
	case 'h':
		return time.Duration(value) * time.Hour, nil
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	}
	return 0, ErrBadDuration
}

// Warn records a warning and locks the target out of XP gain for the
// configured window.
func (a *Actions) Warn(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	if err := a.checkTarget(moderatorID, targetID); err != nil {
		return 0, err
	}
	until := time.Now().Add(time.Duration(a.cfg.WarnLockHours) * time.Hour)
	if err := a.store.SetXPLock(ctx, targetID, until); err != nil {
		return 0, err
	}
	a.dm(targetID, "Warning", fmt.Sprintf("You have been warned: %s. XP gain is paused for %d hours.", reason, a.cfg.WarnLockHours), a.notify.EmbedColors.Warning)
	return a.cases.Record(ctx, modlog.ActionWarn, moderatorID, targetID, reason)
}

// Mute attaches the muted role. A positive duration schedules the
// matching unmute; PermanentDuration leaves it until a moderator lifts
// it.
func (a *Actions) Mute(ctx context.Context, moderatorID, targetID, reason string, duration time.Duration) (int64, error) {
	if err := a.checkTarget(moderatorID, targetID); err != nil {
		return 0, err
	}
	roleID, err := a.requiredRole(ctx, settings.KeyMutedRole)
	if err != nil {
		return 0, err
	}
	if held, err := a.guard.HasRole(a.guildID, targetID, roleID); err == nil && held {
		// A second mute would only add a duplicate case.
		return 0, ErrAlreadyApplied
	}
	if _, err := a.guard.Grant(a.guildID, targetID, roleID); err != nil {
		return 0, err
	}

	a.dm(targetID, "Muted", fmt.Sprintf("You have been muted: %s", reason), a.notify.EmbedColors.Action)
	if duration > 0 {
		a.after(duration, func() {
			if _, err := a.Unmute(context.Background(), a.botUserID, targetID, "mute expired"); err != nil {
				a.logger.Warn("scheduled unmute failed", zap.String("target_id", targetID), zap.Error(err))
			}
		})
	}
	return a.cases.Record(ctx, modlog.ActionMute, moderatorID, targetID, reason)
}

func (a *Actions) Unmute(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	roleID, err := a.requiredRole(ctx, settings.KeyMutedRole)
	if err != nil {
		return 0, err
	}
	if _, err := a.guard.Revoke(a.guildID, targetID, roleID); err != nil {
		return 0, err
	}
	return a.cases.Record(ctx, modlog.ActionUnmute, moderatorID, targetID, reason)
}

// Kick removes the member. The DM goes out before the kick since a
// kicked member can no longer be messaged.
func (a *Actions) Kick(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	if err := a.checkTarget(moderatorID, targetID); err != nil {
		return 0, err
	}
	a.dm(targetID, "Kicked", fmt.Sprintf("You have been kicked: %s", reason), a.notify.EmbedColors.Action)
	if err := a.client.GuildMemberDeleteWithReason(a.guildID, targetID, reason); err != nil {
		return 0, err
	}
	return a.cases.Record(ctx, modlog.ActionKick, moderatorID, targetID, reason)
}

// Ban bans the member. A permanent ban also wipes their economy record;
// temporary bans schedule the unban and keep the record for their
// return.
func (a *Actions) Ban(ctx context.Context, moderatorID, targetID, reason string, duration time.Duration) (int64, error) {
	if err := a.checkTarget(moderatorID, targetID); err != nil {
		return 0, err
	}
	a.dm(targetID, "Banned", fmt.Sprintf("You have been banned: %s", reason), a.notify.EmbedColors.Error)
	if err := a.client.GuildBanCreateWithReason(a.guildID, targetID, reason, 0); err != nil {
		return 0, err
	}
	if duration == PermanentDuration {
		if err := a.store.WipeEconomy(ctx, targetID); err != nil {
			a.logger.Warn("economy wipe failed", zap.String("target_id", targetID), zap.Error(err))
		}
	} else if duration > 0 {
		a.after(duration, func() {
			if _, err := a.Unban(context.Background(), a.botUserID, targetID, "ban expired"); err != nil {
				a.logger.Warn("scheduled unban failed", zap.String("target_id", targetID), zap.Error(err))
			}
		})
	}
	return a.cases.Record(ctx, modlog.ActionBan, moderatorID, targetID, reason)
}

func (a *Actions) Unban(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	if err := a.client.GuildBanDelete(a.guildID, targetID); err != nil {
		return 0, err
	}
	return a.cases.Record(ctx, modlog.ActionUnban, moderatorID, targetID, reason)
}

// Restrict attaches the restricted role and flags the record so the
// member is excluded from XP and economy features.
func (a *Actions) Restrict(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	if err := a.checkTarget(moderatorID, targetID); err != nil {
		return 0, err
	}
	roleID, err := a.requiredRole(ctx, settings.KeyRestrictedRole)
	if err != nil {
		return 0, err
	}
	if held, err := a.guard.HasRole(a.guildID, targetID, roleID); err == nil && held {
		return 0, ErrAlreadyApplied
	}
	if _, err := a.guard.Grant(a.guildID, targetID, roleID); err != nil {
		return 0, err
	}
	if err := a.store.SetRestricted(ctx, targetID, true); err != nil {
		return 0, err
	}
	a.dm(targetID, "Restricted", fmt.Sprintf("Your server access has been restricted: %s", reason), a.notify.EmbedColors.Error)
	return a.cases.Record(ctx, modlog.ActionRestrict, moderatorID, targetID, reason)
}

func (a *Actions) Unrestrict(ctx context.Context, moderatorID, targetID, reason string) (int64, error) {
	roleID, err := a.requiredRole(ctx, settings.KeyRestrictedRole)
	if err != nil {
		return 0, err
	}
	if _, err := a.guard.Revoke(a.guildID, targetID, roleID); err != nil {
		return 0, err
	}
	if err := a.store.SetRestricted(ctx, targetID, false); err != nil {
		return 0, err
	}
	return a.cases.Record(ctx, modlog.ActionUnrestrict, moderatorID, targetID, reason)
}

func (a *Actions) requiredRole(ctx context.Context, key string) (string, error) {
	roleID, err := a.settings.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if roleID == "" {
		return "", ErrRoleNotSet
	}
	return roleID, nil
}

// checkTarget enforces self-target and hierarchy rules. A target who
// already left the guild (ban by ID) passes; Discord applies its own
// checks on the ban itself.
func (a *Actions) checkTarget(moderatorID, targetID string) error {
	if moderatorID == targetID {
		return ErrSelfTarget
	}

	guild, err := a.client.Guild(a.guildID)
	if err != nil {
		return err
	}
	target, err := a.client.GuildMember(a.guildID, targetID)
	if err != nil {
		// Only a confirmed departure skips the hierarchy checks. A
		// transient fetch failure must not let the action through.
		if mapped := roleguard.MapRESTError(err); errors.Is(mapped, roleguard.ErrMemberLeft) {
			return nil
		}
		return err
	}

	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	targetTop := topPosition(positions, target)

	for _, userID := range []string{moderatorID, a.botUserID} {
		member, err := a.client.GuildMember(a.guildID, userID)
		if err != nil {
			return err
		}
		if topPosition(positions, member) <= targetTop {
			return ErrHierarchy
		}
	}
	return nil
}

func topPosition(positions map[string]int, member *discordgo.Member) int {
	top := 0
	for _, roleID := range member.Roles {
		if pos, ok := positions[roleID]; ok && pos > top {
			top = pos
		}
	}
	return top
}

func (a *Actions) dm(userID, title, body string, color int) {
	if !a.notify.DMEnabled {
		return
	}
	channel, err := a.client.UserChannelCreate(userID)
	if err != nil {
		a.logger.Debug("dm channel open failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	embed := &discordgo.MessageEmbed{Title: title, Description: body, Color: color}
	if _, err := a.client.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		a.logger.Debug("dm send failed", zap.String("user_id", userID), zap.Error(err))
	}
}
