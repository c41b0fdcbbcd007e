package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/cadence/pkg/model"
	"github.com/harrisonrobin/cadence/pkg/mutation"
	"github.com/harrisonrobin/cadence/pkg/view"
)

// taskFields are the editable task flags shared by add and edit.
type taskFields struct {
	title       string
	description string
	frequency   string
	dueDate     string
	dueTime     string
}

func (f *taskFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&f.frequency, "frequency", "f", "", "daily, weekly or monthly")
	cmd.Flags().StringVar(&f.dueDate, "due-date", "", "due date, e.g. 2024-05-01")
	cmd.Flags().StringVar(&f.dueTime, "due-time", "", "due time, e.g. 09:30:00")
}

// patch holds only the flags that were given on the command line.
func (f *taskFields) patch(cmd *cobra.Command) model.Patch {
	var p model.Patch
	set := func(name string, v *string) *string {
		if cmd.Flags().Changed(name) {
			return v
		}
		return nil
	}
	p.Title = set("title", &f.title)
	p.Description = set("description", &f.description)
	p.Frequency = set("frequency", &f.frequency)
	p.DueDate = set("due-date", &f.dueDate)
	p.DueTime = set("due-time", &f.dueTime)
	return p
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

// NewTasksCommand creates the tasks command.
func NewTasksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks [category]",
		Short: "List tasks, optionally for one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			var freq model.Frequency
			if len(args) == 1 {
				freq = model.Frequency(args[0])
			}
			return view.Render(cmd.OutOrStdout(), a.store, a.tasks, freq)
		},
	}
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &taskFields{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			a.attachMirror(cmd.Context())
			return a.tasks.Create(cmd.Context(), fields.patch(cmd).Apply(model.Task{}))
		},
	}

	fields.register(cmd)
	return cmd
}

// flagEditor edits a task by merging the command-line flags into it.
type flagEditor struct {
	cmd    *cobra.Command
	fields *taskFields
	tasks  *mutation.Controller
}

func (e flagEditor) Edit(ctx context.Context, t model.Task) error {
	return e.tasks.Update(ctx, e.fields.patch(e.cmd).Apply(t))
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	fields := &taskFields{}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			if _, ok := a.store.Get(id); !ok {
				return fmt.Errorf("no task with id %d", id)
			}
			a.attachMirror(cmd.Context())
			a.tasks.SetEditor(flagEditor{cmd: cmd, fields: fields, tasks: a.tasks})
			return a.tasks.Edit(cmd.Context(), id)
		},
	}

	fields.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.tasks.Refresh(cmd.Context()); err != nil {
				return err
			}
			if _, ok := a.store.Get(id); !ok {
				return fmt.Errorf("no task with id %d", id)
			}
			a.attachMirror(cmd.Context())
			return a.tasks.Delete(cmd.Context(), id)
		},
	}
}
