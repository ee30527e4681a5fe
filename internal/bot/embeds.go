package bot

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"

	"hearthwarden/internal/storage"
)

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func modLogEmbed(entry storage.ModLog, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Case #%d: %s", entry.ID, entry.ActionType),
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Target", Value: fmt.Sprintf("<@%s>", entry.TargetID), Inline: true},
			{Name: "Moderator", Value: fmt.Sprintf("<@%s>", entry.ModeratorID), Inline: true},
			{Name: "Reason", Value: entry.Reason, Inline: false},
		},
		Timestamp: entry.CreatedAt.Format(time.RFC3339),
	}
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) respondError(interaction *discordgo.InteractionCreate, message string) {
	b.respondEmbed(interaction, b.commandEmbed("", message, b.cfg.Notifications.EmbedColors.Error, nil), true)
}
