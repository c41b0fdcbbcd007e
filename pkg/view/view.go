// Package view renders one category of the task store. Every recurrence
// category goes through the same projection.
package view

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/harrisonrobin/cadence/pkg/model"
)

// Source is the store a view reads from.
type Source interface {
	List(freq model.Frequency) []model.Task
}

// Pending reports whether a task's delete control should be disabled.
type Pending interface {
	IsDeleting(id int64) bool
}

// Title returns the view header, "All Tasks" for the unfiltered view.
func Title(freq model.Frequency) string {
	if freq == "" {
		return "All Tasks"
	}
	return cases.Title(language.English).String(string(freq.Normalize())) + " Tasks"
}

// EmptyText is shown when the category has no tasks.
func EmptyText(freq model.Frequency) string {
	if freq == "" {
		return "No tasks yet."
	}
	return fmt.Sprintf("No %s tasks yet.", freq.Normalize())
}

// Render writes the tasks of freq from src. pending may be nil.
func Render(w io.Writer, src Source, pending Pending, freq model.Frequency) error {
	var b strings.Builder
	b.WriteString(Title(freq))
	b.WriteString("\n\n")

	tasks := src.List(freq)
	if len(tasks) == 0 {
		b.WriteString(EmptyText(freq))
		b.WriteString("\n")
	}

	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n", t.ID, t.Title)
		if t.Description != "" {
			fmt.Fprintf(&b, "    %s\n", t.Description)
		}
		fmt.Fprintf(&b, "    due %s %s\n", t.DueDate, t.DueTime)
		if freq == "" {
			fmt.Fprintf(&b, "    %s\n", t.Category())
		}

		deleteControl := "[Delete]"
		if pending != nil && pending.IsDeleting(t.ID) {
			deleteControl = "[Deleting...]"
		}
		fmt.Fprintf(&b, "    %s [Edit]\n", deleteControl)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
