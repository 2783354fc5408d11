package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/models"
)

var editableFlags = []string{"title", "description", "due", "priority", "category"}

type editFlags struct {
	title       string
	description string
	due         string
	priority    string
	category    string
}

func (a *app) newEditCommand() *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title, description, due date, priority or category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}

			changed := map[string]bool{}
			for _, name := range editableFlags {
				changed[name] = cmd.Flags().Changed(name)
			}
			if !anyChanged(changed) {
				if a.settings.NoInput {
					return errors.New("nothing to change: pass at least one field flag with --no-input")
				}
				if err = a.editInForm(cmd, c, args[0], &f); err != nil {
					return err
				}
				for _, name := range editableFlags {
					changed[name] = true
				}
			}

			patch, err := f.patch(changed)
			if err != nil {
				return err
			}
			updated, err := c.UpdateTask(cmd.Context(), args[0], patch)
			if err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("task %s not found", args[0])
				}
				return a.apiError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %q (%s)\n", updated.Title, updated.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "new description")
	cmd.Flags().StringVar(&f.due, "due", "", "due date, YYYY-MM-DD; empty clears it")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "High, Medium or Low")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "new category")
	return cmd
}

func anyChanged(changed map[string]bool) bool {
	for _, ok := range changed {
		if ok {
			return true
		}
	}
	return false
}

// editInForm opens the task form filled with the current values.
func (a *app) editInForm(cmd *cobra.Command, c *client.Client, id string, f *editFlags) error {
	tasks, err := c.ListTasks(cmd.Context(), models.TaskFilter{})
	if err != nil {
		return a.apiError(err)
	}
	var task *models.Task
	for i := range tasks {
		if tasks[i].ID == id {
			task = &tasks[i]
			break
		}
	}
	if task == nil {
		return fmt.Errorf("task %s not found", id)
	}

	f.title = task.Title
	f.description = task.Description
	f.priority = string(task.Priority)
	f.category = task.Category
	if task.DueDate != nil {
		f.due = task.DueDate.Format(time.DateOnly)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&f.title).
				Validate(validateTitle),
			huh.NewText().
				Title("Description").
				Value(&f.description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("High", string(models.PriorityHigh)),
					huh.NewOption("Medium", string(models.PriorityMedium)),
					huh.NewOption("Low", string(models.PriorityLow)),
				).
				Value(&f.priority),
			huh.NewInput().
				Title("Category").
				Value(&f.category),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (empty for none)").
				Value(&f.due).
				Validate(validateOptionalDate),
		),
	)
	if err = form.Run(); err != nil {
		return fmt.Errorf("reading task: %w", err)
	}
	return nil
}

// patch builds a partial update from the fields marked changed.
func (f editFlags) patch(changed map[string]bool) (models.TaskPatch, error) {
	var patch models.TaskPatch

	if changed["title"] {
		if err := validateTitle(f.title); err != nil {
			return patch, err
		}
		title := strings.TrimSpace(f.title)
		patch.Title = &title
	}
	if changed["description"] {
		description := f.description
		patch.Description = &description
	}
	if changed["category"] {
		category := f.category
		patch.Category = &category
	}
	if changed["priority"] {
		p, ok := models.ParsePriority(f.priority)
		if !ok {
			return patch, fmt.Errorf("unknown priority %q", f.priority)
		}
		patch.Priority = &p
	}
	if changed["due"] {
		due := strings.TrimSpace(f.due)
		if due == "" {
			patch.ClearDueDate = true
		} else {
			t, err := time.Parse(time.DateOnly, due)
			if err != nil {
				return patch, fmt.Errorf("invalid due date %q: use YYYY-MM-DD", f.due)
			}
			patch.DueDate = &t
		}
	}
	return patch, nil
}
