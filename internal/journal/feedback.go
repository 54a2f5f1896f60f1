package journal

import (
	"math/rand/v2"

	"github.com/kalambet/nutriwheel/internal/menu"
	"github.com/kalambet/nutriwheel/internal/profile"
	"github.com/kalambet/nutriwheel/internal/storage"
)

// MessageKind identifies which pool a feedback line came from.
type MessageKind string

const (
	KindLowSugar     MessageKind = "low_sugar_reward"
	KindHighCaffeine MessageKind = "high_caffeine_warning"
	KindDailySuccess MessageKind = "daily_success"
)

// DailySuccessScore is the average health score that earns praise.
const DailySuccessScore = 7

type Message struct {
	Kind MessageKind `json:"kind" yaml:"kind"`
	Text string      `json:"text" yaml:"text"`
}

// Feedback returns the messages earned by meal for profile p, warnings
// first. pick chooses an index into a pool; nil picks at random.
func Feedback(meal menu.Meal, p profile.Profile, s menu.UIStrings, pick func(n int) int) []Message {
	if pick == nil {
		pick = rand.IntN
	}
	var out []Message
	add := func(kind MessageKind, pool []string) {
		if len(pool) == 0 {
			return
		}
		out = append(out, Message{Kind: kind, Text: pool[pick(len(pool))]})
	}

	caffeine := meal.Drink.CaffeineLevel
	if caffeine == menu.CaffeineHigh || (p.SensitiveToCaffeine && caffeine != menu.CaffeineNone && caffeine != "") {
		add(KindHighCaffeine, s.Messages.HighCaffeineWarning)
	}
	if meal.TotalSugar() <= storage.LowSugarThresholdG {
		add(KindLowSugar, s.Messages.LowSugarReward)
	}
	if meal.AverageScore() >= DailySuccessScore {
		add(KindDailySuccess, s.Messages.DailySuccess)
	}
	return out
}
