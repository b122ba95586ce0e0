package dayview

import (
	"strconv"
	"strings"

	"github.com/claude/gymio/internal/models"
)

// ResolveInitialIndex picks the day shown first: the day dated today if there
// is one, otherwise the first day. A deep link overrides both when it is an
// integer index into days.
func ResolveInitialIndex(days []models.WorkoutDay, today, deepLink string) int {
	idx := 0
	for i, d := range days {
		if d.Date == today {
			idx = i
			break
		}
	}
	if deepLink = strings.TrimSpace(deepLink); deepLink != "" {
		if n, err := strconv.Atoi(deepLink); err == nil && n >= 0 && n < len(days) {
			idx = n
		}
	}
	return idx
}

// DefaultBreak returns the rest duration a day starts with.
func DefaultBreak(day models.WorkoutDay) int {
	if len(day.Exercises) == 0 {
		return DefaultBreakSeconds
	}
	return day.Exercises[0].BreakSeconds
}

func clamp(i, n int) int {
	if i < 0 || n == 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}
