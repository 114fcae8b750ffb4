package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dfm/src"
	"dfm/src/app"
	"dfm/src/config"
	"dfm/src/editor"
	"dfm/src/fsys"
	"dfm/src/logging"
	"dfm/src/panel"
	"dfm/src/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var version = "dev"

type options struct {
	configPath string
	logPath    string
	debug      bool
	noWatch    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "dfm [left-dir] [right-dir]",
		Short:        "A dual-panel terminal file manager",
		Long:         "dfm shows two directories side by side and copies, moves, renames and deletes\nbetween them. Files open in a built-in modal editor.",
		Args:         cobra.MaximumNArgs(2),
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	cmd.Flags().StringVar(&opts.logPath, "log-file", "", "log file (default "+logging.DefaultPath()+")")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log at debug level")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not refresh panels on filesystem changes")
	cmd.AddCommand(newConfigCmd(&opts))
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	path := func() string {
		if opts.configPath != "" {
			return opts.configPath
		}
		return config.DefaultPath()
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := path()
			if err := config.WriteDefault(p, force); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", p)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), path())
		},
	}

	cmd.AddCommand(initCmd, pathCmd)
	return cmd
}

func run(opts options, args []string) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log, closer, err := logging.Open(opts.logPath, opts.debug)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(log)

	left, right, err := startDirs(cfg, args)
	if err != nil {
		return err
	}
	policy, err := cfg.SortPolicy()
	if err != nil {
		return err
	}

	gw := fsys.Local{}
	panelOpts := []panel.Option{panel.WithLogger(log), panel.WithHidden(cfg.Panels.ShowHidden)}
	l, err := panel.New(gw, left, policy, panelOpts...)
	if err != nil {
		return fmt.Errorf("open %s: %w", left, err)
	}
	r, err := panel.New(gw, right, policy, panelOpts...)
	if err != nil {
		return fmt.Errorf("open %s: %w", right, err)
	}
	a := app.New(gw, panel.NewController(l, r),
		app.WithLogger(log),
		app.WithEditorOptions(
			editor.WithLogger(log),
			editor.WithPageSize(cfg.Editor.PageSize),
			editor.WithMaxSize(cfg.Editor.MaxFileSize),
		),
	)

	var w *watch.Watcher
	if cfg.UI.Watch && !opts.noWatch {
		if w, err = watch.New(cfg.UI.WatchDebounce, log); err != nil {
			log.Warn("file watching disabled", "err", err)
			w = nil
		} else {
			defer w.Stop()
		}
	}

	src.Version = version
	log.Info("starting", "version", version, "left", left, "right", right)
	if _, err := tea.NewProgram(src.InitialModel(a, cfg, w, log), tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// startDirs picks the panel directories: arguments first, then the
// configuration, then the working directory. The right panel defaults to
// the left one.
func startDirs(cfg config.Config, args []string) (string, string, error) {
	left, right := cfg.Panels.Left, cfg.Panels.Right
	if len(args) > 0 {
		left = args[0]
	}
	if len(args) > 1 {
		right = args[1]
	}
	if left == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", "", err
		}
		left = wd
	}
	if right == "" {
		right = left
	}
	var err error
	if left, err = filepath.Abs(left); err != nil {
		return "", "", err
	}
	if right, err = filepath.Abs(right); err != nil {
		return "", "", err
	}
	return left, right, nil
}
