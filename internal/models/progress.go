package models

import "math"

// NextExercise is a short preview of the exercise to do next.
type NextExercise struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ImageURL     string `json:"imageUrl,omitempty"`
	Sets         int    `json:"sets"`
	BreakSeconds int    `json:"breakSeconds"`
	BreakLabel   string `json:"breakLabel"`
}

// Progress summarizes a week's plan against what was completed.
type Progress struct {
	WeekStartDate    string        `json:"weekStartDate"`
	PlannedSets      int           `json:"plannedSets"`
	PlannedVolumeKg  float64       `json:"plannedVolumeKg"`
	CompletedSets    int           `json:"completedSets"`
	AdherencePercent float64       `json:"adherencePercent"`
	TodayIndex       *int          `json:"todayIndex,omitempty"`
	Next             *NextExercise `json:"next,omitempty"`
}

// Summarize computes plan aggregates for week. today selects the day used for
// the next-exercise preview; when no day matches, the first day is used.
func Summarize(week *WorkoutWeek, today string, completedSets int) Progress {
	p := Progress{WeekStartDate: week.WeekStartDate, CompletedSets: completedSets}
	for _, d := range week.Days {
		for _, ex := range d.Exercises {
			p.PlannedSets += len(ex.Sets)
			for _, s := range ex.Sets {
				p.PlannedVolumeKg += float64(s.Reps) * s.WeightKg
			}
		}
	}
	p.PlannedVolumeKg = math.Round(p.PlannedVolumeKg)
	if p.PlannedSets > 0 {
		ratio := float64(completedSets) / float64(p.PlannedSets)
		p.AdherencePercent = math.Round(math.Min(ratio, 1)*1000) / 10
	}

	dayIdx := week.DayByDate(today)
	if dayIdx >= 0 {
		p.TodayIndex = &dayIdx
	} else {
		dayIdx = 0
	}
	if dayIdx < len(week.Days) && len(week.Days[dayIdx].Exercises) > 0 {
		ex := week.Days[dayIdx].Exercises[0]
		p.Next = &NextExercise{
			ID:           ex.ID,
			Name:         ex.Name,
			ImageURL:     ex.Media.ImageURL,
			Sets:         len(ex.Sets),
			BreakSeconds: ex.BreakSeconds,
			BreakLabel:   FormatBreak(ex.BreakSeconds),
		}
	}
	return p
}
