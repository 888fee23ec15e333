package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"TodoManager/internal/config"
	dom "TodoManager/internal/domain"
	"TodoManager/internal/logging"
	"TodoManager/internal/repo"
	"TodoManager/internal/service"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	file    string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Inspect and edit the Todo Manager tasks file",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "tasks file (default: $TASKS_FILE or data/tasks.json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store activity")

	root.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newCompleteCmd(opts, "done", "Mark a task as completed", true),
		newCompleteCmd(opts, "undo", "Mark a task as not completed", false),
		newRemoveCmd(opts),
	)
	return root
}

func (o *rootOptions) service(cmd *cobra.Command) (*service.TaskService, error) {
	path := o.file
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.Store.Path
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), level, "dev")
	return service.NewTaskService(repo.NewFileTaskStore(path, logger)), nil
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		query     string
		completed string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			filter := dom.TaskFilter{Query: query}
			if completed != "" {
				v, err := strconv.ParseBool(completed)
				if err != nil {
					return fmt.Errorf("--completed: %w", err)
				}
				filter.Completed = &v
			}
			tasks, err := svc.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "case-insensitive search in title and description")
	cmd.Flags().StringVar(&completed, "completed", "", "filter by completion (true/false)")
	return cmd
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		description string
		done        bool
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.Create(cmd.Context(), dom.NewTask{
				Title:       args[0],
				Description: description,
				Completed:   done,
			})
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), []dom.Task{t})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().BoolVar(&done, "done", false, "create already completed")
	return cmd
}

func newCompleteCmd(opts *rootOptions, use, short string, completed bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			t, err := svc.Update(cmd.Context(), id, dom.TaskPatch{Completed: &completed})
			if err != nil {
				return err
			}
			return printTasks(cmd.OutOrStdout(), []dom.Task{t})
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			svc, err := opts.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d\n", id)
			return nil
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func printTasks(w io.Writer, tasks []dom.Task) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDONE\tTITLE\tCREATED\tCOMPLETED")
	for _, t := range tasks {
		done := " "
		completedAt := "-"
		if t.Completed {
			done = "x"
		}
		if t.CompletedAt != nil {
			completedAt = t.CompletedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t[%s]\t%s\t%s\t%s\n", t.ID, done, t.Title, t.CreatedAt.Format(time.RFC3339), completedAt)
	}
	return tw.Flush()
}
