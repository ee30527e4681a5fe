// Package tiers maps continuous boost duration to the perk ladder.
package tiers

import "time"

type Tier struct {
	Name            string
	MonthsRequired  int
	XPMultiplier    float64
	TokenMultiplier float64
	ShopDiscount    float64 // fraction of the price, 0 <= d < 1
	RaffleEntries   int
	DailyPouches    int
	Spotlight       bool
}

// Ladder is ordered by MonthsRequired ascending. Perks are cumulative
// in value but not stacked; a member holds exactly one tier at a time.
var Ladder = []Tier{
	{
		Name:            "server",
		MonthsRequired:  0,
		XPMultiplier:    1.5,
		TokenMultiplier: 1.5,
		ShopDiscount:    0.10,
		RaffleEntries:   1,
		DailyPouches:    1,
	},
	{
		Name:            "veteran",
		MonthsRequired:  3,
		XPMultiplier:    1.75,
		TokenMultiplier: 1.75,
		ShopDiscount:    0.15,
		RaffleEntries:   2,
		DailyPouches:    2,
	},
	{
		Name:            "mythic",
		MonthsRequired:  5,
		XPMultiplier:    2.0,
		TokenMultiplier: 2.0,
		ShopDiscount:    0.20,
		RaffleEntries:   3,
		DailyPouches:    3,
		Spotlight:       true,
	},
}

// Months converts a boost duration to whole months, thirty days each.
func Months(d time.Duration) int {
	days := int(d.Hours() / 24)
	if days < 0 {
		return 0
	}
	return days / 30
}

// ForDuration returns the highest tier whose threshold the duration
// meets. A zero or positive duration always qualifies for the first
// rung.
func ForDuration(d time.Duration) Tier {
	months := Months(d)
	tier := Ladder[0]
	for _, candidate := range Ladder[1:] {
		if months >= candidate.MonthsRequired {
			tier = candidate
		}
	}
	return tier
}

// ByName looks a tier up by its ladder name.
func ByName(name string) (Tier, bool) {
	for _, tier := range Ladder {
		if tier.Name == name {
			return tier, true
		}
	}
	return Tier{}, false
}

// Next returns the rung above the given tier, or false at the top.
func Next(current Tier) (Tier, bool) {
	for i, tier := range Ladder {
		if tier.Name == current.Name && i+1 < len(Ladder) {
			return Ladder[i+1], true
		}
	}
	return Tier{}, false
}
