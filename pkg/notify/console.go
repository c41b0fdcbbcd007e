package notify

import (
	"context"
	"fmt"
	"io"
)

// Console prints events as one line each, the terminal stand-in for a toast.
type Console struct {
	Out io.Writer
}

func (c Console) HandleEvent(_ context.Context, ev Event) error {
	var prefix string
	switch ev.Level {
	case LevelSuccess:
		prefix = "✓"
	case LevelWarning:
		prefix = "!"
	default:
		prefix = "✗"
	}
	_, err := fmt.Fprintf(c.Out, "%s %s\n", prefix, ev.Message)
	return err
}
