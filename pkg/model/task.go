package model

import (
	"golang.org/x/text/cases"
)

// Frequency is the recurrence category of a task ("daily", "monthly", ...).
type Frequency string

const (
	DAILY   Frequency = "daily"
	WEEKLY  Frequency = "weekly"
	MONTHLY Frequency = "monthly"
)

// Normalize returns the case-folded form used for category comparison.
// A Caser is stateful, so each call gets its own.
func (f Frequency) Normalize() Frequency {
	return Frequency(cases.Fold().String(string(f)))
}

// Matches reports whether raw names the same category as f, ignoring case.
func (f Frequency) Matches(raw string) bool {
	return f.Normalize() == Frequency(raw).Normalize()
}

// Task is one recurring task as served by the remote API.
// DueDate and DueTime are kept verbatim in the server's format.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	DueDate     string `json:"due_date"`
	DueTime     string `json:"due_time"`
}

// Category returns the folded category the task currently belongs to.
func (t Task) Category() Frequency {
	return Frequency(t.Frequency).Normalize()
}

// Patch holds a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Frequency   *string
	DueDate     *string
	DueTime     *string
}

// Apply returns a copy of t with the non-nil fields of p merged in.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Frequency != nil {
		t.Frequency = *p.Frequency
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.DueTime != nil {
		t.DueTime = *p.DueTime
	}
	return t
}

// PatchFrom builds a patch replacing every mutable field with the values of t.
func PatchFrom(t Task) Patch {
	return Patch{
		Title:       &t.Title,
		Description: &t.Description,
		Frequency:   &t.Frequency,
		DueDate:     &t.DueDate,
		DueTime:     &t.DueTime,
	}
}
