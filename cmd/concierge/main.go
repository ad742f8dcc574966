package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/felixgeelhaar/concierge/internal/app"
	"github.com/felixgeelhaar/concierge/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "conciergd.pid"

var (
	okMark   = color.GreenString("✓")
	failMark = color.RedString("✗")
	warnText = color.New(color.FgYellow).SprintFunc()
	dimText  = color.New(color.Faint).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

// globalFlags are shared by every command
type globalFlags struct {
	verbose bool
	noColor bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "concierge",
		Short: "Concierge - configurable AI assistants",
		Long: color.CyanString("concierge") + ` talks to several configurable AI assistants.

Every assistant inherits the global LLM configuration unless it has its own
override. Fields left out of an override fall back to the global value.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor {
				color.NoColor = true
			}
		},
	}
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newAssistantsCmd(flags),
		newConfigCmd(flags),
		newProvidersCmd(flags),
		newSendCmd(flags),
		newHistoryCmd(flags),
		newMCPCmd(flags),
		newDaemonCmd(flags),
		newEventsCmd(flags),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "concierge %s\n", Version)
		},
	}
}

// cliLogger keeps stdout clean: only warnings reach stderr unless --verbose
func cliLogger(w io.Writer, flags *globalFlags) *slog.Logger {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads the configuration and opens the configured store
func openApp(cmd *cobra.Command, flags *globalFlags, withEvents bool) (*app.App, error) {
	dir, err := config.EnsureConciergeDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.Open(contextOf(cmd), app.Options{
		Config: cfg,
		Dir:    dir,
		Logger: cliLogger(cmd.ErrOrStderr(), flags),
		Events: withEvents,
	})
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
