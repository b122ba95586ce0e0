package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidUpdate is returned by SetUpdate.Validate when a required field is missing.
var ErrInvalidUpdate = errors.New("invalid set update")

// Session is a per-user, per-date record of performed work.
type Session struct {
	ID        uuid.UUID `json:"sessionId"`
	UserID    int       `json:"-"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// SetPerformance is what the user actually did for one planned set.
type SetPerformance struct {
	Completed bool    `json:"completed"`
	Reps      int     `json:"reps"`
	WeightKg  float64 `json:"weightKg"`
}

// PerformanceMap indexes performances by exercise slug, then set number.
type PerformanceMap map[string]map[int]SetPerformance

// Set stores p under slug and setNumber, allocating the inner map if needed.
func (m PerformanceMap) Set(slug string, setNumber int, p SetPerformance) {
	inner, ok := m[slug]
	if !ok {
		inner = make(map[int]SetPerformance)
		m[slug] = inner
	}
	inner[setNumber] = p
}

// CompletedCount returns how many stored performances are marked completed.
func (m PerformanceMap) CompletedCount() int {
	n := 0
	for _, sets := range m {
		for _, p := range sets {
			if p.Completed {
				n++
			}
		}
	}
	return n
}

// SetUpdate is the payload of an update-set-performance call.
// Nil optional fields leave the stored value untouched.
type SetUpdate struct {
	Date         string   `json:"date"`
	ExerciseSlug string   `json:"exerciseSlug"`
	SetNumber    int      `json:"setNumber"`
	Reps         *int     `json:"reps,omitempty"`
	WeightKg     *float64 `json:"weightKg,omitempty"`
	Completed    *bool    `json:"completed,omitempty"`
}

// Validate reports ErrInvalidUpdate when date, slug or set number is missing or malformed.
func (u SetUpdate) Validate() error {
	if u.Date == "" || u.ExerciseSlug == "" || u.SetNumber <= 0 {
		return ErrInvalidUpdate
	}
	if _, err := ParseDate(u.Date); err != nil {
		return ErrInvalidUpdate
	}
	if u.Reps != nil && *u.Reps < 0 {
		return ErrInvalidUpdate
	}
	if u.WeightKg != nil && *u.WeightKg < 0 {
		return ErrInvalidUpdate
	}
	return nil
}

// SetPerformanceRecord is a stored performance with the keys it was saved under.
type SetPerformanceRecord struct {
	SessionID    uuid.UUID `json:"sessionId"`
	Date         string    `json:"date"`
	ExerciseSlug string    `json:"exerciseSlug"`
	SetNumber    int       `json:"setNumber"`
	SetPerformance
	UpdatedAt time.Time `json:"updatedAt"`
}
