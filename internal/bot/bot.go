package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hearthwarden/internal/analytics"
	"hearthwarden/internal/booster"
	"hearthwarden/internal/config"
	"hearthwarden/internal/ledger"
	"hearthwarden/internal/moderation"
	"hearthwarden/internal/modlog"
	"hearthwarden/internal/roleguard"
	"hearthwarden/internal/settings"
	"hearthwarden/internal/storage"
	"hearthwarden/internal/voicerooms"
	"hearthwarden/internal/xp"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	settings  *settings.Service
	ledger    *ledger.Service
	agg       *xp.Aggregator
	cases     *modlog.Logger
	analytics *analytics.Service
	session   *discordgo.Session

	// wired after the gateway handshake, once the bot user is known
	guard   *roleguard.Guard
	engine  *booster.Engine
	actions *moderation.Actions
	rooms   *voicerooms.Manager

	scheduler *cron.Cron
	flushStop chan struct{}
	wiredOnce sync.Once
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, svc *settings.Service, ledgerSvc *ledger.Service, agg *xp.Aggregator, cases *modlog.Logger, analyticsSvc *analytics.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	b := &Bot{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		settings:  svc,
		ledger:    ledgerSvc,
		agg:       agg,
		cases:     cases,
		analytics: analyticsSvc,
		session:   session,
		flushStop: make(chan struct{}),
	}

	cases.SetNotifier(func(ctx context.Context, entry storage.ModLog) {
		b.notifyModLog(ctx, entry)
	})

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageReactionAdd)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	b.wire()

	if err := b.rooms.Load(context.Background()); err != nil {
		return err
	}
	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startFlushLoop()
	return b.startScheduler()
}

// wire builds the services that need the bot's own user ID, which is
// only known after the gateway handshake.
func (b *Bot) wire() {
	b.wiredOnce.Do(func() {
		botUserID := b.session.State.User.ID
		b.guard = roleguard.New(b.session, b.logger, botUserID, b.cfg.Booster)
		b.engine = booster.New(b.store, b.settings, b.guard, b.logger, b.cfg.GuildID, b.cfg.Booster)
		b.engine.SetAnnouncer(func(ctx context.Context, message string) {
			b.announce(ctx, message)
		})
		b.actions = moderation.New(b.session, b.guard, b.store, b.settings, b.cases, b.logger,
			b.cfg.GuildID, botUserID, b.cfg.Moderation, b.cfg.Notifications)
		b.rooms = voicerooms.New(b.session, b.store, b.logger, b.cfg.GuildID)
	})
}

func (b *Bot) Close(ctx context.Context) {
	close(b.flushStop)
	if b.scheduler != nil {
		stopCtx := b.scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	b.flush(ctx)
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) startFlushLoop() {
	interval := time.Duration(b.cfg.XP.FlushSeconds) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx := context.Background()
				enabled, err := b.settings.Bool(ctx, settings.KeyXPEnabled)
				if err != nil {
					b.logger.Warn("xp setting read failed", zap.Error(err))
					continue
				}
				if !enabled {
					b.agg.Reset()
					continue
				}
				b.agg.VoiceTick(b.voiceChannelOccupants())
				b.flush(ctx)
			case <-b.flushStop:
				return
			}
		}
	}()
}

func (b *Bot) flush(ctx context.Context) {
	pending := b.agg.Drain()
	if pending == nil {
		return
	}
	failed := b.ledger.ApplyBatch(ctx, pending)
	if len(failed) > 0 {
		b.agg.Requeue(failed)
		b.logger.Warn("xp flush incomplete",
			zap.Int("applied", len(pending)-len(failed)),
			zap.Int("requeued", len(failed)))
	}
}

func (b *Bot) startScheduler() error {
	b.scheduler = cron.New()
	if _, err := b.scheduler.AddFunc(b.cfg.Booster.SweepSpec, func() {
		b.engine.DailySweep(context.Background(), b.currentBoosters())
	}); err != nil {
		return err
	}
	if _, err := b.scheduler.AddFunc(b.cfg.Booster.SpotlightSpec, func() {
		if err := b.engine.RotateSpotlight(context.Background(), b.currentBoosters()); err != nil {
			b.logger.Warn("spotlight rotation failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	b.scheduler.Start()
	return nil
}

// currentBoosters pages through the guild member list and returns
// everyone with an active boost.
func (b *Bot) currentBoosters() []booster.Member {
	var boosters []booster.Member
	after := ""
	for {
		members, err := b.session.GuildMembers(b.cfg.GuildID, after, 1000)
		if err != nil {
			b.logger.Warn("member page fetch failed", zap.Error(err))
			return boosters
		}
		if len(members) == 0 {
			return boosters
		}
		for _, member := range members {
			if member.PremiumSince != nil && member.User != nil {
				boosters = append(boosters, booster.Member{
					UserID: member.User.ID,
					Since:  *member.PremiumSince,
				})
			}
		}
		after = members[len(members)-1].User.ID
	}
}

// voiceChannelOccupants maps each voice channel to the members
// currently eligible for voice XP, from gateway state.
func (b *Bot) voiceChannelOccupants() map[string][]string {
	guild, err := b.session.State.Guild(b.cfg.GuildID)
	if err != nil {
		return map[string][]string{}
	}
	return eligibleVoiceOccupants(guild, b.session.State.User.ID)
}

// eligibleVoiceOccupants filters voice states down to members who can
// earn voice XP. The AFK channel, bots, and muted, deafened, or
// suppressed members do not count toward a channel.
func eligibleVoiceOccupants(guild *discordgo.Guild, botUserID string) map[string][]string {
	occupants := make(map[string][]string)
	for _, state := range guild.VoiceStates {
		if state.ChannelID == "" || state.UserID == botUserID {
			continue
		}
		if guild.AfkChannelID != "" && state.ChannelID == guild.AfkChannelID {
			continue
		}
		if state.SelfMute || state.SelfDeaf || state.Mute || state.Deaf || state.Suppress {
			continue
		}
		if isBotMember(guild, state.UserID) {
			continue
		}
		occupants[state.ChannelID] = append(occupants[state.ChannelID], state.UserID)
	}
	return occupants
}

func isBotMember(guild *discordgo.Guild, userID string) bool {
	for _, member := range guild.Members {
		if member.User != nil && member.User.ID == userID {
			return member.User.Bot
		}
	}
	return false
}

func (b *Bot) announce(ctx context.Context, message string) {
	channelID, err := b.settings.Get(ctx, settings.KeyBoostAnnounce)
	if err != nil || channelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       b.cfg.Notifications.EmbedColors.Boost,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("announcement send failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (b *Bot) notifyModLog(ctx context.Context, entry storage.ModLog) {
	channelID, err := b.settings.Get(ctx, settings.KeyModLogChannel)
	if err != nil || channelID == "" {
		return
	}
	embed := modLogEmbed(entry, b.cfg.Notifications.EmbedColors.Action)
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Warn("mod log notify failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}
