package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"lc-go/internal/app"
	"lc-go/internal/config"
	"lc-go/internal/journal"
	"lc-go/internal/lc"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp reads the config and creates an LCApp working on dir, or the current
// directory when dir is empty. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "init", "commit add").
func newApp(operation, dir string) (*app.LCApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := defaults.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewLCApp(cfg, operation, app.Options{Dir: dir, Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// closeApp closes a and reports a close failure unless the command already failed.
func closeApp(a *app.LCApp, err *error) {
	if cerr := a.Close(); cerr != nil && *err == nil {
		*err = cerr
	}
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid commit id %q", s)
	}
	return id, nil
}

var rootCmd = &cobra.Command{
	Use:           "lc",
	Short:         "Minimal local version control",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var initCmd = &cobra.Command{
	Use:   "init NAME",
	Short: "Create a repository in the current directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("init", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.Init(args[0]); err != nil {
			if errors.Is(err, lc.ErrAlreadyExists) {
				return fmt.Errorf("a repository already exists in %s", a.Root())
			}
			return fmt.Errorf("creating repository: %w", err)
		}

		printInfo("Initialized repository %s in %s", args[0], a.Root())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list [DIR]",
	Short: "Describe a repository",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		dir := ""
		if len(args) > 0 {
			dir = args[0]
		}
		a, err := newApp("list", dir)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		s, err := a.Describe()
		if err != nil {
			if errors.Is(err, lc.ErrNotFound) {
				return fmt.Errorf("not an lc repository: %s", a.Root())
			}
			return err
		}

		fmt.Printf("Repository: %s\n", s.Name)
		fmt.Println("Branches:")
		for _, b := range s.Branches {
			marker := ""
			if b.Current {
				marker = " (current)"
			}
			updated := b.LastUpdated
			if updated == "" {
				updated = "Never"
			}
			fmt.Printf("  %s%s  commits: %d  last updated: %s\n", b.Name, marker, b.Commits, updated)
		}
		if len(s.Staged) == 0 {
			fmt.Println("No staged files.")
			return nil
		}
		fmt.Println("Staged files:")
		for _, f := range s.Staged {
			fmt.Printf("  %s\n", f)
		}
		return nil
	},
}

// stage command
var stageCmd = &cobra.Command{
	Use:   "stage",
	Short: "Manage staged files",
}

var stageAddCmd = &cobra.Command{
	Use:   "add PATH...",
	Short: "Stage files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("stage add", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.Stage(args)
		if err != nil {
			return fmt.Errorf("staging: %w", err)
		}
		printInfo("Staged %d file(s)", n)
		return nil
	},
}

var stageRemoveCmd = &cobra.Command{
	Use:   "remove PATH...",
	Short: "Unstage files and directories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("stage remove", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.Unstage(args)
		if err != nil {
			return fmt.Errorf("unstaging: %w", err)
		}
		printInfo("Unstaged %d file(s)", n)
		return nil
	},
}

var stageClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Unstage everything",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("stage clear", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		n, err := a.UnstageAll()
		if err != nil {
			return fmt.Errorf("clearing staged files: %w", err)
		}
		printInfo("Unstaged %d file(s)", n)
		return nil
	},
}

// commit command
var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Manage commits on the current branch",
}

var commitAddCmd = &cobra.Command{
	Use:   "add MESSAGE...",
	Short: "Commit the staged files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp("commit add", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		c, err := a.Commit(strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, lc.ErrNoStagedFiles) {
				return errors.New("nothing to commit, stage files first")
			}
			return fmt.Errorf("committing: %w", err)
		}
		printInfo("Created commit %d", c.ID)
		fmt.Print(c.String())
		return nil
	},
}

var commitRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete a commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := newApp("commit remove", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if err := a.RemoveCommit(id); err != nil {
			return fmt.Errorf("removing commit %d: %w", id, err)
		}
		printInfo("Removed commit %d", id)
		return nil
	},
}

var commitRestoreCmd = &cobra.Command{
	Use:   "restore [ID]",
	Short: "Copy a commit's files back into the working directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id := 0
		if len(args) > 0 {
			if id, err = parseID(args[0]); err != nil {
				return err
			}
		}
		a, err := newApp("commit restore", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		restored, n, err := a.RestoreCommit(id)
		if err != nil {
			return fmt.Errorf("restoring: %w", err)
		}
		printInfo("Restored %d file(s) from commit %d", n, restored)
		return nil
	},
}

var commitListCmd = &cobra.Command{
	Use:   "list [ID]",
	Short: "Show commits on the current branch",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		id := 0
		if len(args) > 0 {
			if id, err = parseID(args[0]); err != nil {
				return err
			}
		}
		a, err := newApp("commit list", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		branch, commits, err := a.ListCommits(id)
		if err != nil {
			return err
		}
		if len(commits) == 0 {
			fmt.Printf("Branch %s contains no commits\n", branch)
			return nil
		}

		line := divider()
		for i, c := range commits {
			if i > 0 {
				fmt.Println(line)
			}
			fmt.Print(c.String())
		}
		return nil
	},
}

var branchCmd = &cobra.Command{
	Use:                "branch",
	Short:              "Manage branches (not implemented)",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return errors.New("branch management is not implemented")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [ID]",
	Short: "View recorded operations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history", "")
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		if len(args) > 0 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid operation id %q", args[0])
			}
			op, err := a.Operation(id)
			if err != nil {
				return err
			}
			printOperation(op)
			return nil
		}

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			fmt.Printf("#%d  %-15s  %s  %-8s  %-8s  %s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format(lc.DisplayTimeFormat),
				op.Status,
				duration(op),
				op.RepoRoot,
				op.Parameters,
			)
		}
		return nil
	},
}

func duration(op *journal.Operation) string {
	if !op.FinishedAt.Valid {
		return ""
	}
	return op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
}

func printOperation(op *journal.Operation) {
	finished := "-"
	if op.FinishedAt.Valid {
		finished = op.FinishedAt.Time.Local().Format(lc.DisplayTimeFormat)
	}
	fmt.Printf("ID:         %d\n", op.ID)
	fmt.Printf("Run:        %s\n", op.RunID)
	fmt.Printf("Operation:  %s\n", op.Operation)
	fmt.Printf("Parameters: %s\n", op.Parameters)
	fmt.Printf("Repository: %s\n", op.RepoRoot)
	fmt.Printf("Started:    %s\n", op.StartedAt.Local().Format(lc.DisplayTimeFormat))
	fmt.Printf("Finished:   %s\n", finished)
	fmt.Printf("Status:     %s\n", op.Status)
	if d := duration(op); d != "" {
		fmt.Printf("Duration:   %s\n", d)
	}
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := defaults.NewConfig()
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		printInfo("Configuration initialized at %s", defaults.ConfigPath)
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := defaults.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Log Level:    %s\n", cfg.LogLevel)
		fmt.Printf("Journal:      %s %s\n", cfg.Journal.Type, cfg.Journal.DataDir)
		fmt.Printf("Ignore:       %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Also write log lines to stderr")

	// stage subcommands
	stageCmd.AddCommand(stageAddCmd)
	stageCmd.AddCommand(stageRemoveCmd)
	stageCmd.AddCommand(stageClearCmd)

	// commit subcommands
	commitCmd.AddCommand(commitAddCmd)
	commitCmd.AddCommand(commitRemoveCmd)
	commitCmd.AddCommand(commitRestoreCmd)
	commitCmd.AddCommand(commitListCmd)

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// root commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(configCmd)
}
