// Package roleguard wraps Discord role mutation in a hierarchy check
// and a verify-after-write loop. Role changes in this codebase go
// through the guard so a silently dropped REST call never leaves the
// database claiming a perk the member does not hold.
package roleguard

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/config"
)

var (
	ErrHierarchy    = errors.New("role sits at or above the bot's top role")
	ErrMemberLeft   = errors.New("member is no longer in the guild")
	ErrForbidden    = errors.New("missing permission for role change")
	ErrVerifyFailed = errors.New("role change did not take effect")
)

// Client is the slice of the Discord session the guard needs.
// *discordgo.Session satisfies it.
type Client interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

type Outcome int

const (
	Applied Outcome = iota
	Skipped
)

type Guard struct {
	client    Client
	logger    *zap.Logger
	botUserID string

	propagation time.Duration
	retries     int
	sleep       func(time.Duration)
}

func New(client Client, logger *zap.Logger, botUserID string, cfg config.BoosterConfig) *Guard {
	return &Guard{
		client:      client,
		logger:      logger,
		botUserID:   botUserID,
		propagation: time.Duration(cfg.PropagationSeconds) * time.Second,
		retries:     cfg.VerifyRetries,
		sleep:       time.Sleep,
	}
}

// WithSleep replaces the propagation wait, for tests.
func (g *Guard) WithSleep(sleep func(time.Duration)) {
	g.sleep = sleep
}

// Grant assigns roleID to the member after confirming the bot outranks
// it, then re-fetches the member to verify the role actually landed.
// On a hierarchy conflict no API mutation is attempted.
func (g *Guard) Grant(guildID, userID, roleID string) (Outcome, error) {
	if err := g.checkHierarchy(guildID, roleID); err != nil {
		return Skipped, err
	}

	member, err := g.client.GuildMember(guildID, userID)
	if err != nil {
		return Skipped, MapRESTError(err)
	}
	if hasRole(member, roleID) {
		return Skipped, nil
	}

	if err := g.client.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		return Skipped, MapRESTError(err)
	}
	if err := g.verify(guildID, userID, roleID, true); err != nil {
		return Skipped, err
	}
	return Applied, nil
}

// Revoke removes roleID from the member. A member who already left the
// guild counts as a clean skip, not an error; role removal is usually
// part of teardown and the departure already achieved it.
func (g *Guard) Revoke(guildID, userID, roleID string) (Outcome, error) {
	if err := g.checkHierarchy(guildID, roleID); err != nil {
		return Skipped, err
	}

	member, err := g.client.GuildMember(guildID, userID)
	if err != nil {
		mapped := MapRESTError(err)
		if errors.Is(mapped, ErrMemberLeft) {
			return Skipped, nil
		}
		return Skipped, mapped
	}
	if !hasRole(member, roleID) {
		return Skipped, nil
	}

	if err := g.client.GuildMemberRoleRemove(guildID, userID, roleID); err != nil {
		mapped := MapRESTError(err)
		if errors.Is(mapped, ErrMemberLeft) {
			return Skipped, nil
		}
		return Skipped, mapped
	}
	if err := g.verify(guildID, userID, roleID, false); err != nil {
		return Skipped, err
	}
	return Applied, nil
}

// HasRole reports whether the member currently holds the role.
func (g *Guard) HasRole(guildID, userID, roleID string) (bool, error) {
	member, err := g.client.GuildMember(guildID, userID)
	if err != nil {
		return false, MapRESTError(err)
	}
	return hasRole(member, roleID), nil
}

func (g *Guard) checkHierarchy(guildID, roleID string) error {
	guild, err := g.client.Guild(guildID)
	if err != nil {
		return MapRESTError(err)
	}
	bot, err := g.client.GuildMember(guildID, g.botUserID)
	if err != nil {
		return MapRESTError(err)
	}

	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}

	botTop := 0
	for _, id := range bot.Roles {
		if pos, ok := positions[id]; ok && pos > botTop {
			botTop = pos
		}
	}
	if pos, ok := positions[roleID]; !ok || pos >= botTop {
		g.logger.Warn("role above bot, refusing change",
			zap.String("guild_id", guildID),
			zap.String("role_id", roleID))
		return ErrHierarchy
	}
	return nil
}

func (g *Guard) verify(guildID, userID, roleID string, wantHeld bool) error {
	for attempt := 0; attempt <= g.retries; attempt++ {
		g.sleep(g.propagation)
		member, err := g.client.GuildMember(guildID, userID)
		if err != nil {
			mapped := MapRESTError(err)
			if errors.Is(mapped, ErrMemberLeft) && !wantHeld {
				return nil
			}
			return mapped
		}
		if hasRole(member, roleID) == wantHeld {
			return nil
		}
	}
	g.logger.Warn("role change never propagated",
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
		zap.Bool("want_held", wantHeld))
	return ErrVerifyFailed
}

func hasRole(member *discordgo.Member, roleID string) bool {
	if member == nil {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

// MapRESTError translates Discord REST failures into the package's
// sentinel errors. Anything unrecognized passes through unchanged.
func MapRESTError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
				return ErrMemberLeft
			case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
				return ErrForbidden
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
			return ErrForbidden
		}
	}
	return err
}
