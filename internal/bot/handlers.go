package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"hearthwarden/internal/booster"
	"hearthwarden/internal/moderation"
	"hearthwarden/internal/roleguard"
	"hearthwarden/internal/settings"
	"hearthwarden/internal/tiers"
)

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.wire()
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	enabled, err := b.settings.Bool(ctx, settings.KeyXPEnabled)
	if err != nil || !enabled {
		return
	}
	// The bot command channel earns no message XP.
	if botChannel, err := b.settings.Get(ctx, settings.KeyBotChannel); err == nil && botChannel != "" && botChannel == msg.ChannelID {
		return
	}
	b.agg.RecordMessage(msg.Author.ID, len([]rune(msg.Content)))
}

func (b *Bot) onMessageReactionAdd(session *discordgo.Session, reaction *discordgo.MessageReactionAdd) {
	if reaction.GuildID == "" || reaction.UserID == session.State.User.ID {
		return
	}
	if reaction.Member != nil && reaction.Member.User != nil && reaction.Member.User.Bot {
		return
	}

	ctx := context.Background()
	enabled, err := b.settings.Bool(ctx, settings.KeyXPEnabled)
	if err != nil || !enabled {
		return
	}
	b.agg.RecordReaction(reaction.UserID, reaction.MessageID)
}

// onGuildMemberUpdate watches for boost edges. The stored boost start
// date serves as the previous state, since gateway events do not
// reliably carry BeforeUpdate.
func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, update *discordgo.GuildMemberUpdate) {
	if b.engine == nil || update.User == nil || update.User.Bot {
		return
	}

	ctx := context.Background()
	user, err := b.store.GetUser(ctx, update.User.ID)
	if err != nil {
		b.logger.Warn("member update read failed", zap.String("user_id", update.User.ID), zap.Error(err))
		return
	}

	switch {
	case update.PremiumSince != nil && user.BoostStartDate == nil:
		if err := b.engine.HandleBoostStarted(ctx, update.User.ID, *update.PremiumSince); err != nil {
			b.logger.Warn("boost start handling failed", zap.String("user_id", update.User.ID), zap.Error(err))
		}
	case update.PremiumSince == nil && user.BoostStartDate != nil:
		if err := b.engine.HandleBoostEnded(ctx, update.User.ID); err != nil {
			b.logger.Warn("boost end handling failed", zap.String("user_id", update.User.ID), zap.Error(err))
		}
	}
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, update *discordgo.VoiceStateUpdate) {
	if b.rooms == nil || update.UserID == session.State.User.ID {
		return
	}

	previous := ""
	if update.BeforeUpdate != nil {
		previous = update.BeforeUpdate.ChannelID
	}

	if update.ChannelID != "" && update.ChannelID != previous {
		username := update.UserID
		if member, err := session.State.Member(update.GuildID, update.UserID); err == nil && member.User != nil {
			username = member.User.Username
		}
		if _, err := b.rooms.HandleJoin(update.UserID, username, update.ChannelID); err != nil {
			b.logger.Warn("voice room join handling failed", zap.String("user_id", update.UserID), zap.Error(err))
		}
	}

	if previous != "" && previous != update.ChannelID && b.rooms.IsRoom(previous) {
		b.rooms.HandleLeave(previous, b.channelOccupancy(previous))
	}
}

func (b *Bot) channelOccupancy(channelID string) int {
	guild, err := b.session.State.Guild(b.cfg.GuildID)
	if err != nil {
		return 0
	}
	count := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID == channelID {
			count++
		}
	}
	return count
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if b.actions == nil || interaction.GuildID == "" {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "rank", "leaderboard", "boostperks", "boosters", "color", "emblem":
		if !b.inBotChannel(ctx, interaction) {
			return
		}
	}

	switch data.Name {
	case "rank":
		b.handleRank(ctx, session, interaction, data.Options)
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction, data.Options)
	case "boostperks":
		b.handleBoostPerks(ctx, session, interaction)
	case "boosters":
		b.handleBoosters(session, interaction)
	case "color":
		b.handleCosmetic(ctx, session, interaction, data.Options, b.engine.SelectColor)
	case "emblem":
		b.handleCosmetic(ctx, session, interaction, data.Options, b.engine.SelectEmblem)
	case "xp":
		b.handleXP(ctx, session, interaction, data.Options)
	case "warn", "mute", "unmute", "kick", "ban", "unban", "restrict", "unrestrict":
		b.handleModAction(ctx, session, interaction, data.Name, data.Options)
	case "history":
		b.handleHistory(ctx, session, interaction, data.Options)
	case "modstats":
		b.handleModStats(ctx, session, interaction, data.Options)
	case "setup":
		b.handleSetup(ctx, session, interaction, data.Options)
	}
}

// inBotChannel enforces the casual-command channel when one is bound.
func (b *Bot) inBotChannel(ctx context.Context, interaction *discordgo.InteractionCreate) bool {
	channelID, err := b.settings.Get(ctx, settings.KeyBotChannel)
	if err != nil || channelID == "" || channelID == interaction.ChannelID {
		return true
	}
	b.respondError(interaction, fmt.Sprintf("Use this command in <#%s>.", channelID))
	return false
}

func (b *Bot) handleRank(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	target := interactionUser(interaction)
	if opts := optionMap(options); opts["user"] != nil {
		target = opts["user"].UserValue(session)
	}
	if target == nil {
		b.respondError(interaction, "Could not resolve that member.")
		return
	}

	rank, xpTotal, err := b.ledger.Rank(ctx, target.ID)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}

	position := "unranked"
	if rank > 0 {
		position = fmt.Sprintf("#%d", rank)
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "XP", Value: fmt.Sprintf("%d", xpTotal), Inline: true},
		{Name: "Rank", Value: position, Inline: true},
	}
	b.respondEmbed(interaction, b.commandEmbed("Rank", fmt.Sprintf("<@%s>", target.ID), b.cfg.Notifications.EmbedColors.Action, fields), false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	count := 10
	if opts := optionMap(options); opts["count"] != nil {
		count = int(opts["count"].IntValue())
	}
	if count < 1 || count > 25 {
		count = 10
	}

	entries, err := b.ledger.Leaderboard(ctx, count)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}
	if len(entries) == 0 {
		b.respondError(interaction, "Nobody has earned XP yet.")
		return
	}

	var lines []string
	for i, entry := range entries {
		lines = append(lines, fmt.Sprintf("%d. <@%s> with %d XP", i+1, entry.UserID, entry.XP))
	}
	b.respondEmbed(interaction, b.commandEmbed("Leaderboard", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, nil), false)
}

func (b *Bot) handleBoostPerks(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	user := interactionUser(interaction)
	if user == nil {
		return
	}
	record, err := b.store.GetUser(ctx, user.ID)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}
	if record.BoostStartDate == nil {
		b.respondError(interaction, "You are not currently boosting the server.")
		return
	}

	elapsed := time.Since(*record.BoostStartDate)
	tier := tiers.ForDuration(elapsed)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Tier", Value: tier.Name, Inline: true},
		{Name: "XP multiplier", Value: fmt.Sprintf("%.2fx", record.XPMultiplier), Inline: true},
		{Name: "Shop discount", Value: fmt.Sprintf("%.0f%%", record.ShopDiscount*100), Inline: true},
		{Name: "Raffle entries", Value: fmt.Sprintf("%d", record.RaffleEntries), Inline: true},
		{Name: "Boosting since", Value: record.BoostStartDate.Format("2006-01-02"), Inline: true},
	}
	if next, ok := tiers.Next(tier); ok {
		remaining := next.MonthsRequired*30 - int(elapsed.Hours()/24)
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Next tier", Value: fmt.Sprintf("%s in %d days", next.Name, remaining), Inline: true,
		})
	}
	b.respondEmbed(interaction, b.commandEmbed("Booster perks", fmt.Sprintf("<@%s>", user.ID), b.cfg.Notifications.EmbedColors.Boost, fields), true)
}

func (b *Bot) handleBoosters(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	boosters := b.currentBoosters()
	if len(boosters) == 0 {
		b.respondError(interaction, "No active boosters right now.")
		return
	}

	now := time.Now()
	var lines []string
	for _, member := range boosters {
		tier := tiers.ForDuration(now.Sub(member.Since))
		lines = append(lines, fmt.Sprintf("<@%s> (%s)", member.UserID, tier.Name))
	}
	b.respondEmbed(interaction, b.commandEmbed("Server boosters", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Boost, nil), false)
}

func (b *Bot) handleCosmetic(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption, selector func(context.Context, string, string) error) {
	user := interactionUser(interaction)
	opts := optionMap(options)
	if user == nil || opts["name"] == nil {
		return
	}
	name := opts["name"].StringValue()

	err := selector(ctx, user.ID, name)
	switch {
	case err == nil:
		b.respondEmbed(interaction, b.commandEmbed("Done", fmt.Sprintf("Your %q perk is active.", name), b.cfg.Notifications.EmbedColors.Boost, nil), true)
	case errors.Is(err, booster.ErrNotBooster):
		b.respondError(interaction, "This perk is for server boosters.")
	case errors.Is(err, booster.ErrTierTooLow):
		b.respondError(interaction, "Keep boosting to unlock this perk at a higher tier.")
	case errors.Is(err, booster.ErrUnknownOption):
		b.respondError(interaction, fmt.Sprintf("No option named %q.", name))
	default:
		b.logger.Warn("cosmetic selection failed", zap.String("user_id", user.ID), zap.Error(err))
		b.respondError(interaction, "The role change did not go through. Try again in a moment.")
	}
}

func (b *Bot) handleXP(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	switch options[0].Name {
	case "start":
		if err := b.settings.SetBool(ctx, settings.KeyXPEnabled, true); err != nil {
			b.respondError(interaction, "Could not update the setting.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("XP system", "XP gain is now enabled.", b.cfg.Notifications.EmbedColors.Action, nil), false)
	case "stop":
		if err := b.settings.SetBool(ctx, settings.KeyXPEnabled, false); err != nil {
			b.respondError(interaction, "Could not update the setting.")
			return
		}
		b.agg.Reset()
		b.respondEmbed(interaction, b.commandEmbed("XP system", "XP gain is now disabled. Pending awards were discarded.", b.cfg.Notifications.EmbedColors.Warning, nil), false)
	case "status":
		enabled, err := b.settings.Bool(ctx, settings.KeyXPEnabled)
		if err != nil {
			b.respondError(interaction, "Could not read the setting.")
			return
		}
		users, total := b.agg.PendingStats()
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "State", Value: state, Inline: true},
			{Name: "Pending users", Value: fmt.Sprintf("%d", users), Inline: true},
			{Name: "Pending XP", Value: fmt.Sprintf("%d", total), Inline: true},
		}
		b.respondEmbed(interaction, b.commandEmbed("XP system", "", b.cfg.Notifications.EmbedColors.Action, fields), true)
	case "reset":
		b.agg.Reset()
		if err := b.ledger.ResetAllXP(ctx); err != nil {
			b.respondError(interaction, "Reset failed.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("XP system", "All XP balances were reset.", b.cfg.Notifications.EmbedColors.Warning, nil), false)
	}
}

func (b *Bot) handleModAction(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, name string, options []*discordgo.ApplicationCommandInteractionDataOption) {
	moderator := interactionUser(interaction)
	if moderator == nil {
		return
	}
	opts := optionMap(options)

	targetID := ""
	if opts["user"] != nil {
		if target := opts["user"].UserValue(session); target != nil {
			targetID = target.ID
		}
	} else if opts["user_id"] != nil {
		targetID = opts["user_id"].StringValue()
	}
	if targetID == "" {
		b.respondError(interaction, "Could not resolve the target.")
		return
	}

	reason := "no reason given"
	if opts["reason"] != nil {
		reason = opts["reason"].StringValue()
	}

	var duration time.Duration
	if opts["duration"] != nil {
		parsed, err := moderation.ParseDuration(opts["duration"].StringValue())
		if err != nil {
			b.respondError(interaction, "Duration must look like 30m, 2h, 7d, 1w, or perm.")
			return
		}
		duration = parsed
	}

	var caseID int64
	var err error
	switch name {
	case "warn":
		caseID, err = b.actions.Warn(ctx, moderator.ID, targetID, reason)
	case "mute":
		caseID, err = b.actions.Mute(ctx, moderator.ID, targetID, reason, duration)
	case "unmute":
		caseID, err = b.actions.Unmute(ctx, moderator.ID, targetID, reason)
	case "kick":
		caseID, err = b.actions.Kick(ctx, moderator.ID, targetID, reason)
	case "ban":
		caseID, err = b.actions.Ban(ctx, moderator.ID, targetID, reason, duration)
	case "unban":
		caseID, err = b.actions.Unban(ctx, moderator.ID, targetID, reason)
	case "restrict":
		caseID, err = b.actions.Restrict(ctx, moderator.ID, targetID, reason)
	case "unrestrict":
		caseID, err = b.actions.Unrestrict(ctx, moderator.ID, targetID, reason)
	}

	switch {
	case err == nil:
		description := fmt.Sprintf("Case #%d: %s <@%s> (%s)", caseID, name, targetID, reason)
		b.respondEmbed(interaction, b.commandEmbed("Moderation", description, b.cfg.Notifications.EmbedColors.Action, nil), false)
	case errors.Is(err, moderation.ErrSelfTarget):
		b.respondError(interaction, "You cannot moderate yourself.")
	case errors.Is(err, moderation.ErrHierarchy):
		b.respondError(interaction, "That member outranks you or the bot.")
	case errors.Is(err, moderation.ErrAlreadyApplied):
		b.respondError(interaction, "That action is already in effect.")
	case errors.Is(err, moderation.ErrRoleNotSet):
		b.respondError(interaction, "The required role is not configured. Use /setup role first.")
	case errors.Is(err, roleguard.ErrHierarchy):
		b.respondError(interaction, "The configured role sits above the bot's top role.")
	default:
		b.logger.Warn("mod action failed",
			zap.String("action", name),
			zap.String("target_id", targetID),
			zap.Error(err))
		b.respondError(interaction, "The action failed. Check the logs.")
	}
}

func (b *Bot) handleHistory(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	if opts["moderator"] != nil {
		b.handleModeratorHistory(ctx, session, interaction, opts["moderator"])
		return
	}
	if opts["user"] == nil {
		b.respondError(interaction, "Pick a user or a moderator to look up.")
		return
	}
	target := opts["user"].UserValue(session)
	if target == nil {
		b.respondError(interaction, "Could not resolve that member.")
		return
	}

	history, err := b.cases.History(ctx, target.ID, 10)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}
	if len(history) == 0 {
		b.respondEmbed(interaction, b.commandEmbed("History", fmt.Sprintf("<@%s> has a clean record.", target.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}
	warns, err := b.cases.WarnCount(ctx, target.ID)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}

	var lines []string
	for _, entry := range history {
		lines = append(lines, fmt.Sprintf("#%d %s by <@%s> on %s: %s",
			entry.ID, entry.ActionType, entry.ModeratorID, entry.CreatedAt.Format("2006-01-02"), entry.Reason))
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Warnings", Value: fmt.Sprintf("%d", warns), Inline: true},
	}
	b.respondEmbed(interaction, b.commandEmbed("History", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, fields), true)
}

func (b *Bot) handleModeratorHistory(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, option *discordgo.ApplicationCommandInteractionDataOption) {
	moderator := option.UserValue(session)
	if moderator == nil {
		b.respondError(interaction, "Could not resolve that member.")
		return
	}

	history, err := b.cases.ModeratorHistory(ctx, moderator.ID, 10)
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}
	if len(history) == 0 {
		b.respondEmbed(interaction, b.commandEmbed("History", fmt.Sprintf("<@%s> has taken no recorded actions.", moderator.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
		return
	}

	var lines []string
	for _, entry := range history {
		lines = append(lines, fmt.Sprintf("#%d %s on <@%s> on %s: %s",
			entry.ID, entry.ActionType, entry.TargetID, entry.CreatedAt.Format("2006-01-02"), entry.Reason))
	}
	b.respondEmbed(interaction, b.commandEmbed("History", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, nil), true)
}

func (b *Bot) handleModStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	days := 7
	if opts := optionMap(options); opts["days"] != nil {
		days = int(opts["days"].IntValue())
	}
	if days < 1 || days > 90 {
		days = 7
	}

	report, err := b.analytics.Report(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		b.respondError(interaction, "Lookup failed.")
		return
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Total actions", Value: fmt.Sprintf("%d", report.Total), Inline: true},
	}
	for action, count := range report.ByAction {
		fields = append(fields, &discordgo.MessageEmbedField{Name: action, Value: fmt.Sprintf("%d", count), Inline: true})
	}
	if len(report.ByModerator) > 0 {
		var lines []string
		for moderatorID, count := range report.ByModerator {
			lines = append(lines, fmt.Sprintf("<@%s>: %d", moderatorID, count))
		}
		sort.Strings(lines)
		fields = append(fields, &discordgo.MessageEmbedField{Name: "By moderator", Value: strings.Join(lines, "\n")})
	}
	title := fmt.Sprintf("Moderation, last %d days", days)
	b.respondEmbed(interaction, b.commandEmbed(title, "", b.cfg.Notifications.EmbedColors.Action, fields), true)
}

var channelSettingKeys = map[string]string{
	"bot":            settings.KeyBotChannel,
	"boost-announce": settings.KeyBoostAnnounce,
	"booster-chat":   settings.KeyBoosterChat,
	"booster-lounge": settings.KeyBoosterLoungeVC,
	"mod-log":        settings.KeyModLogChannel,
}

var roleSettingKeys = map[string]string{
	"booster-server":  settings.KeyServerBoosterRole,
	"booster-veteran": settings.KeyVeteranRole,
	"booster-mythic":  settings.KeyMythicRole,
	"spotlight":       settings.KeySpotlightRole,
	"muted":           settings.KeyMutedRole,
	"restricted":      settings.KeyRestrictedRole,
}

func (b *Bot) handleSetup(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	opts := optionMap(sub.Options)

	switch sub.Name {
	case "show":
		all, err := b.settings.All(ctx)
		if err != nil {
			b.respondError(interaction, "Could not read the settings.")
			return
		}
		keys := make([]string, 0, len(all))
		for key := range all {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var lines []string
		for _, key := range keys {
			value := all[key]
			if value == "" {
				value = "unset"
			}
			lines = append(lines, fmt.Sprintf("%s: %s", key, value))
		}
		b.respondEmbed(interaction, b.commandEmbed("Settings", strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "channel":
		channel := opts["channel"].ChannelValue(session)
		key, ok := channelSettingKeys[opts["kind"].StringValue()]
		if channel == nil || !ok {
			b.respondError(interaction, "Unknown channel kind.")
			return
		}
		if err := b.settings.Set(ctx, key, channel.ID); err != nil {
			b.respondError(interaction, "Could not save the setting.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("Setup", fmt.Sprintf("Bound %s to <#%s>.", opts["kind"].StringValue(), channel.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "role":
		role := opts["role"].RoleValue(session, interaction.GuildID)
		key, ok := roleSettingKeys[opts["kind"].StringValue()]
		if role == nil || !ok {
			b.respondError(interaction, "Unknown role kind.")
			return
		}
		if err := b.settings.Set(ctx, key, role.ID); err != nil {
			b.respondError(interaction, "Could not save the setting.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("Setup", fmt.Sprintf("Bound %s to <@&%s>.", opts["kind"].StringValue(), role.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "color", "emblem":
		name := opts["name"].StringValue()
		update := b.settings.SetColorRole
		remove := b.settings.RemoveColorRole
		if sub.Name == "emblem" {
			update = b.settings.SetEmblemRole
			remove = b.settings.RemoveEmblemRole
		}
		var err error
		verb := "Removed"
		if opts["role"] != nil {
			role := opts["role"].RoleValue(session, interaction.GuildID)
			if role == nil {
				b.respondError(interaction, "Could not resolve that role.")
				return
			}
			err = update(ctx, name, role.ID)
			verb = "Saved"
		} else {
			err = remove(ctx, name)
		}
		if err != nil {
			b.respondError(interaction, "Could not save the setting.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("Setup", fmt.Sprintf("%s %s option %q.", verb, sub.Name, name), b.cfg.Notifications.EmbedColors.Action, nil), true)
	case "vc":
		channel := opts["channel"].ChannelValue(session)
		if channel == nil {
			b.respondError(interaction, "Could not resolve that channel.")
			return
		}
		if opts["remove"] != nil && opts["remove"].BoolValue() {
			if !b.rooms.IsMaster(channel.ID) {
				b.respondError(interaction, "That channel is not registered as join-to-create.")
				return
			}
			if err := b.rooms.UnregisterMaster(ctx, channel.ID); err != nil {
				b.respondError(interaction, "Could not remove the registration.")
				return
			}
			b.respondEmbed(interaction, b.commandEmbed("Setup", fmt.Sprintf("<#%s> is no longer a join-to-create channel.", channel.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
			return
		}
		if err := b.rooms.RegisterMaster(ctx, channel.ID, channel.ParentID); err != nil {
			b.respondError(interaction, "Could not save the registration.")
			return
		}
		b.respondEmbed(interaction, b.commandEmbed("Setup", fmt.Sprintf("<#%s> now spawns personal voice rooms.", channel.ID), b.cfg.Notifications.EmbedColors.Action, nil), true)
	}
}

func interactionUser(interaction *discordgo.InteractionCreate) *discordgo.User {
	if interaction.Member != nil {
		return interaction.Member.User
	}
	return interaction.User
}

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}
