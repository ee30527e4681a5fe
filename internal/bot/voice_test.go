package bot

import (
	"sort"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func voiceState(userID, channelID string) *discordgo.VoiceState {
	return &discordgo.VoiceState{UserID: userID, ChannelID: channelID}
}

func TestEligibleVoiceOccupantsFilters(t *testing.T) {
	suppressed := voiceState("stage-listener", "vc-1")
	suppressed.Suppress = true
	deafened := voiceState("sleeper", "vc-1")
	deafened.SelfDeaf = true

	guild := &discordgo.Guild{
		AfkChannelID: "vc-afk",
		Members: []*discordgo.Member{
			{User: &discordgo.User{ID: "human-1"}},
			{User: &discordgo.User{ID: "human-2"}},
			{User: &discordgo.User{ID: "music-bot", Bot: true}},
		},
		VoiceStates: []*discordgo.VoiceState{
			voiceState("human-1", "vc-1"),
			voiceState("human-2", "vc-1"),
			voiceState("music-bot", "vc-1"),
			suppressed,
			deafened,
			voiceState("bot-user", "vc-1"),
			voiceState("idler", "vc-afk"),
		},
	}

	occupants := eligibleVoiceOccupants(guild, "bot-user")

	got := occupants["vc-1"]
	sort.Strings(got)
	if len(got) != 2 || got[0] != "human-1" || got[1] != "human-2" {
		t.Fatalf("vc-1 occupants = %v, want the two unmuted humans", got)
	}
	if _, ok := occupants["vc-afk"]; ok {
		t.Fatal("AFK channel counted toward voice XP")
	}
}
