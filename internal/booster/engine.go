// Package booster keeps booster tier roles and database perks in sync
// with boost state. Role changes go through the role guard; database
// perks for a tier are only written after the role change is verified.
package booster

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"hearthwarden/internal/config"
	"hearthwarden/internal/roleguard"
	"hearthwarden/internal/settings"
	"hearthwarden/internal/storage"
	"hearthwarden/internal/tiers"
)

const BoosterBadge = "Booster"

// TokensPerPouch is the token value of one daily pouch.
const TokensPerPouch = 50

var (
	ErrNotBooster    = errors.New("member is not boosting")
	ErrTierTooLow    = errors.New("perk requires a higher booster tier")
	ErrUnknownOption = errors.New("no such cosmetic option")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RoleGuard is the slice of roleguard.Guard the engine uses.
type RoleGuard interface {
	Grant(guildID, userID, roleID string) (roleguard.Outcome, error)
	Revoke(guildID, userID, roleID string) (roleguard.Outcome, error)
}

// Member is one boosting member as seen by the gateway.
type Member struct {
	UserID string
	Since  time.Time
}

type Announcer func(ctx context.Context, message string)

type Engine struct {
	store    *storage.Store
	settings *settings.Service
	guard    RoleGuard
	logger   *zap.Logger
	cfg      config.BoosterConfig
	guildID  string

	clock    Clock
	pick     func(n int) int
	announce Announcer

	mu        sync.Mutex
	lastEvent map[string]time.Time
}

func New(store *storage.Store, svc *settings.Service, guard RoleGuard, logger *zap.Logger, guildID string, cfg config.BoosterConfig) *Engine {
	return &Engine{
		store:     store,
		settings:  svc,
		guard:     guard,
		logger:    logger,
		cfg:       cfg,
		guildID:   guildID,
		clock:     realClock{},
		pick:      rand.Intn,
		lastEvent: make(map[string]time.Time),
	}
}

func (e *Engine) WithClock(clock Clock) { e.clock = clock }

// WithPick replaces the spotlight selection roll, for tests.
func (e *Engine) WithPick(pick func(n int) int) { e.pick = pick }

func (e *Engine) SetAnnouncer(announce Announcer) { e.announce = announce }

// tierRoleKeys maps ladder names to the settings key holding the role.
var tierRoleKeys = map[string]string{
	"server":  settings.KeyServerBoosterRole,
	"veteran": settings.KeyVeteranRole,
	"mythic":  settings.KeyMythicRole,
}

// HandleBoostStarted reacts to a member starting a boost. Gateway
// member updates arrive in duplicate bursts, so events inside the
// debounce window are dropped.
func (e *Engine) HandleBoostStarted(ctx context.Context, userID string, since time.Time) error {
	if e.debounced(userID) {
		return nil
	}

	tier := tiers.ForDuration(e.clock.Now().Sub(since))
	if err := e.applyTier(ctx, userID, tier, since); err != nil {
		return err
	}
	if err := e.store.AddBadge(ctx, userID, BoosterBadge); err != nil {
		e.logger.Warn("badge write failed", zap.String("user_id", userID), zap.Error(err))
	}
	e.say(ctx, fmt.Sprintf("<@%s> just boosted the server! Welcome to the %s tier.", userID, tier.Name))
	return nil
}

// HandleBoostEnded strips every booster role and resets database perks.
// Each role is handled independently so one failure never leaves the
// rest attached, and running it twice is harmless.
func (e *Engine) HandleBoostEnded(ctx context.Context, userID string) error {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	roleIDs := make([]string, 0, len(tiers.Ladder)+3)
	for _, tier := range tiers.Ladder {
		roleID, err := e.settings.Get(ctx, tierRoleKeys[tier.Name])
		if err != nil {
			return err
		}
		roleIDs = append(roleIDs, roleID)
	}
	spotlight, err := e.settings.Get(ctx, settings.KeySpotlightRole)
	if err != nil {
		return err
	}
	roleIDs = append(roleIDs, spotlight, user.ColorRoleID, user.EmblemRoleID)

	for _, roleID := range roleIDs {
		if roleID == "" {
			continue
		}
		if _, err := e.guard.Revoke(e.guildID, userID, roleID); err != nil {
			e.logger.Warn("booster role strip failed",
				zap.String("user_id", userID),
				zap.String("role_id", roleID),
				zap.Error(err))
		}
	}

	if err := e.store.ResetBoosterPerks(ctx, userID); err != nil {
		return err
	}
	e.logger.Info("boost ended", zap.String("user_id", userID))
	return nil
}

// DailySweep hands out each booster's daily token pouches and promotes
// anyone whose boost duration has crossed a tier threshold. Multipliers
// only ratchet upward; a member already holding a higher multiplier
// than their computed tier is left alone.
func (e *Engine) DailySweep(ctx context.Context, boosters []Member) {
	now := e.clock.Now()
	for _, member := range boosters {
		tier := tiers.ForDuration(now.Sub(member.Since))
		if err := e.store.AwardCurrency(ctx, member.UserID, 0, tier.DailyPouches*TokensPerPouch, 0); err != nil {
			e.logger.Warn("pouch award failed", zap.String("user_id", member.UserID), zap.Error(err))
		}
		user, err := e.store.GetUser(ctx, member.UserID)
		if err != nil {
			e.logger.Warn("sweep read failed", zap.String("user_id", member.UserID), zap.Error(err))
			continue
		}
		if user.XPMultiplier >= tier.XPMultiplier {
			continue
		}
		if err := e.applyTier(ctx, member.UserID, tier, member.Since); err != nil {
			e.logger.Warn("sweep promotion failed",
				zap.String("user_id", member.UserID),
				zap.String("tier", tier.Name),
				zap.Error(err))
			continue
		}
		e.say(ctx, fmt.Sprintf("<@%s> has been boosting long enough to reach the %s tier!", member.UserID, tier.Name))
	}
}

// RotateSpotlight moves the spotlight role to a random eligible
// booster. The role is stripped from everyone first so at most one
// member holds it at a time.
func (e *Engine) RotateSpotlight(ctx context.Context, boosters []Member) error {
	roleID, err := e.settings.Get(ctx, settings.KeySpotlightRole)
	if err != nil {
		return err
	}
	if roleID == "" {
		return nil
	}

	now := e.clock.Now()
	var eligible []Member
	for _, member := range boosters {
		if _, err := e.guard.Revoke(e.guildID, member.UserID, roleID); err != nil {
			e.logger.Warn("spotlight strip failed", zap.String("user_id", member.UserID), zap.Error(err))
		}
		if tiers.ForDuration(now.Sub(member.Since)).Spotlight {
			eligible = append(eligible, member)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	chosen := eligible[e.pick(len(eligible))]
	if _, err := e.guard.Grant(e.guildID, chosen.UserID, roleID); err != nil {
		return err
	}
	e.say(ctx, fmt.Sprintf("This week's booster spotlight goes to <@%s>!", chosen.UserID))
	return nil
}

// SelectColor swaps the member's color role. The database only records
// the choice after the guard confirms the new role landed.
func (e *Engine) SelectColor(ctx context.Context, userID, name string) error {
	user, err := e.requireBooster(ctx, userID)
	if err != nil {
		return err
	}
	options, err := e.settings.ColorRoles(ctx)
	if err != nil {
		return err
	}
	return e.swapCosmetic(ctx, userID, name, options, user.ColorRoleID, e.store.SetColorRole)
}

// SelectEmblem swaps the member's emblem role. Emblems unlock at the
// veteran tier.
func (e *Engine) SelectEmblem(ctx context.Context, userID, emoji string) error {
	user, err := e.requireBooster(ctx, userID)
	if err != nil {
		return err
	}
	veteran, _ := tiers.ByName("veteran")
	if user.XPMultiplier < veteran.XPMultiplier {
		return ErrTierTooLow
	}
	options, err := e.settings.EmblemRoles(ctx)
	if err != nil {
		return err
	}
	return e.swapCosmetic(ctx, userID, emoji, options, user.EmblemRoleID, e.store.SetEmblemRole)
}

func (e *Engine) swapCosmetic(ctx context.Context, userID, name string, options map[string]string, currentRoleID string, persist func(context.Context, string, string) error) error {
	roleID, ok := options[name]
	if !ok {
		return ErrUnknownOption
	}
	if roleID == currentRoleID {
		return nil
	}
	if currentRoleID != "" {
		if _, err := e.guard.Revoke(e.guildID, userID, currentRoleID); err != nil {
			e.logger.Warn("old cosmetic strip failed",
				zap.String("user_id", userID),
				zap.String("role_id", currentRoleID),
				zap.Error(err))
		}
	}
	if _, err := e.guard.Grant(e.guildID, userID, roleID); err != nil {
		return err
	}
	return persist(ctx, userID, roleID)
}

func (e *Engine) requireBooster(ctx context.Context, userID string) (storage.UserRecord, error) {
	user, err := e.store.GetUser(ctx, userID)
	if err != nil {
		return storage.UserRecord{}, err
	}
	if user.BoostStartDate == nil {
		return storage.UserRecord{}, ErrNotBooster
	}
	return user, nil
}

func (e *Engine) applyTier(ctx context.Context, userID string, tier tiers.Tier, since time.Time) error {
	for _, rung := range tiers.Ladder {
		roleID, err := e.settings.Get(ctx, tierRoleKeys[rung.Name])
		if err != nil {
			return err
		}
		if roleID == "" {
			continue
		}
		if rung.Name == tier.Name {
			if _, err := e.guard.Grant(e.guildID, userID, roleID); err != nil {
				return err
			}
		} else if _, err := e.guard.Revoke(e.guildID, userID, roleID); err != nil {
			e.logger.Warn("stale tier role strip failed",
				zap.String("user_id", userID),
				zap.String("role_id", roleID),
				zap.Error(err))
		}
	}
	return e.store.SetBoosterPerks(ctx, userID,
		tier.XPMultiplier, tier.TokenMultiplier, tier.ShopDiscount,
		tier.RaffleEntries, since)
}

func (e *Engine) debounced(userID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	if last, ok := e.lastEvent[userID]; ok {
		if now.Sub(last) < time.Duration(e.cfg.DebounceSeconds)*time.Second {
			return true
		}
	}
	e.lastEvent[userID] = now
	return false
}

func (e *Engine) say(ctx context.Context, message string) {
	if e.announce != nil {
		e.announce(ctx, message)
	}
}
