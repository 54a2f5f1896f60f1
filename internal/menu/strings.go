package menu

// Buttons holds the action labels shown by views.
type Buttons struct {
	SpinNow  string `json:"spin_now"`
	SpinAll  string `json:"spin_all"`
	SaveMeal string `json:"save_meal"`
	SeeStats string `json:"see_stats"`
}

// Messages holds the pools of feedback lines shown after a meal is saved.
type Messages struct {
	DailySuccess        []string `json:"daily_success"`
	LowSugarReward      []string `json:"low_sugar_reward"`
	HighCaffeineWarning []string `json:"high_caffeine_warning"`
}

// UIStrings is the complete set of copy strings a view may render.
type UIStrings struct {
	Buttons  Buttons  `json:"buttons"`
	Messages Messages `json:"messages"`
}

// DefaultUIStrings returns the compiled-in Thai copy.
func DefaultUIStrings() UIStrings {
	return UIStrings{
		Buttons: Buttons{
			SpinNow:  "สุ่มเลย!",
			SpinAll:  "สุ่มทั้งหมด",
			SaveMeal: "บันทึกมื้อนี้",
			SeeStats: "ดูสถิติ",
		},
		Messages: Messages{
			DailySuccess:        []string{"สุดยอด! วันนี้ทำได้ดีมาก"},
			LowSugarReward:      []string{"เก่งมาก ลดหวานได้ดีเลย!"},
			HighCaffeineWarning: []string{"ระวังใจสั่นนะ พักคาเฟอีนบ้าง"},
		},
	}
}
