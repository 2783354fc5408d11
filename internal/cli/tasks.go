package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/adanyl0v/taskboard/internal/board"
	"github.com/adanyl0v/taskboard/internal/client"
	"github.com/adanyl0v/taskboard/internal/models"
)

func (a *app) newListCommand() *cobra.Command {
	var status, priority, query string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in board order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter models.TaskFilter
			if status != "" {
				s, ok := models.ParseStatus(status)
				if !ok {
					return fmt.Errorf("unknown status %q", status)
				}
				filter.Status = s
			}
			if priority != "" {
				p, ok := models.ParsePriority(priority)
				if !ok {
					return fmt.Errorf("unknown priority %q", priority)
				}
				filter.Priority = p
			}
			filter.Query = query

			c, err := a.client()
			if err != nil {
				return err
			}
			tasks, err := c.ListTasks(cmd.Context(), filter)
			if err != nil {
				return a.apiError(err)
			}
			printTasks(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "only tasks with this priority")
	cmd.Flags().StringVarP(&query, "query", "q", "", "search title and description")
	return cmd
}

func printTasks(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks")
		return
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		rows = append(rows, []string{t.ID, t.Title, string(t.Status), string(t.Priority), due})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "STATUS", "PRIORITY", "DUE").
		Rows(rows...)
	fmt.Fprintln(w, tbl.Render())
}

type addFlags struct {
	title       string
	description string
	due         string
	priority    string
	status      string
	category    string
}

func (a *app) newAddCommand() *cobra.Command {
	var f addFlags
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.title = args[0]
			}
			if err := a.resolveTask(&f); err != nil {
				return err
			}
			task, err := f.newTask()
			if err != nil {
				return err
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			created, err := c.CreateTask(cmd.Context(), task)
			if err != nil {
				return a.apiError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s)\n", created.Title, created.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "task description")
	cmd.Flags().StringVar(&f.due, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "High, Medium or Low")
	cmd.Flags().StringVarP(&f.status, "status", "s", "", "Pending, In Progress or Completed")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "task category")
	return cmd
}

// resolveTask opens a form when no title was given.
func (a *app) resolveTask(f *addFlags) error {
	if f.title != "" {
		return nil
	}
	if a.settings.NoInput {
		return errors.New("a title is required with --no-input")
	}

	if f.priority == "" {
		f.priority = string(models.PriorityMedium)
	}
	if f.status == "" {
		f.status = string(models.StatusPending)
	}

	statusOptions := make([]huh.Option[string], 0, len(models.Statuses))
	for _, s := range models.Statuses {
		statusOptions = append(statusOptions, huh.NewOption(string(s), string(s)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&f.title).
				Validate(validateTitle),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&f.description),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("High", string(models.PriorityHigh)),
					huh.NewOption("Medium", string(models.PriorityMedium)),
					huh.NewOption("Low", string(models.PriorityLow)),
				).
				Value(&f.priority),
			huh.NewSelect[string]().
				Title("Status").
				Options(statusOptions...).
				Value(&f.status),
			huh.NewInput().
				Title("Category").
				Value(&f.category),
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&f.due).
				Validate(validateOptionalDate),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("reading task: %w", err)
	}
	return nil
}

func validateTitle(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("title is required")
	}
	if len(s) > 255 {
		return errors.New("title must be at most 255 characters")
	}
	return nil
}

func validateOptionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func (f addFlags) newTask() (client.NewTask, error) {
	if err := validateTitle(f.title); err != nil {
		return client.NewTask{}, err
	}
	task := client.NewTask{
		Title:       strings.TrimSpace(f.title),
		Description: f.description,
		Category:    f.category,
	}

	if f.priority != "" {
		p, ok := models.ParsePriority(f.priority)
		if !ok {
			return client.NewTask{}, fmt.Errorf("unknown priority %q", f.priority)
		}
		task.Priority = p
	}
	if f.status != "" {
		s, ok := models.ParseStatus(f.status)
		if !ok {
			return client.NewTask{}, fmt.Errorf("unknown status %q", f.status)
		}
		task.Status = s
	}
	if due := strings.TrimSpace(f.due); due != "" {
		t, err := time.Parse(time.DateOnly, due)
		if err != nil {
			return client.NewTask{}, fmt.Errorf("invalid due date %q: use YYYY-MM-DD", f.due)
		}
		task.DueDate = &t
	}
	return task, nil
}

// loadBoard fetches the caller's tasks into a fresh projector.
func (a *app) loadBoard(cmd *cobra.Command) (*board.Projector, error) {
	c, err := a.client()
	if err != nil {
		return nil, err
	}
	p := board.NewProjector(c, a.logger)
	if err = p.Load(cmd.Context()); err != nil {
		return nil, a.apiError(err)
	}
	return p, nil
}

func (a *app) newMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status> [index]",
		Short: "Move a task to a column, at the end or at index",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, ok := models.ParseStatus(args[1])
			if !ok {
				return fmt.Errorf("unknown status %q", args[1])
			}

			p, err := a.loadBoard(cmd)
			if err != nil {
				return err
			}
			view := p.View()
			src, srcIdx, ok := view.Find(args[0])
			if !ok {
				return fmt.Errorf("task %s not found", args[0])
			}

			// Past the end is clamped to the last slot.
			dstIdx := len(view.Column(dst))
			if len(args) == 3 {
				dstIdx, err = strconv.Atoi(args[2])
				if err != nil || dstIdx < 0 {
					return fmt.Errorf("invalid index %q", args[2])
				}
			}

			if err = p.MoveCard(cmd.Context(), src, srcIdx, &dst, dstIdx); err != nil {
				return a.apiError(err)
			}

			_, idx, _ := p.View().Find(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s at %d\n", args[0], dst, idx)
			return nil
		},
	}
}

func (a *app) newToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a task completed, or pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.loadBoard(cmd)
			if err != nil {
				return err
			}
			if err = p.ToggleComplete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, board.ErrTaskNotOnBoard) {
					return fmt.Errorf("task %s not found", args[0])
				}
				return a.apiError(err)
			}

			status, _, _ := p.View().Find(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", args[0], status)
			return nil
		},
	}
}

func (a *app) newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if err = c.DeleteTask(cmd.Context(), args[0]); err != nil {
				if client.IsNotFound(err) {
					return fmt.Errorf("task %s not found", args[0])
				}
				return a.apiError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
