// Package commands implements the critiqo command tree.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/utafrali/critiqo/internal/app"
	"github.com/utafrali/critiqo/internal/cli"
	"github.com/utafrali/critiqo/internal/config"
	"github.com/utafrali/critiqo/internal/notify"
	"github.com/utafrali/critiqo/pkg/logger"
)

// Runtime holds the process surroundings a command runs in.
type Runtime struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Environ replaces the process environment when set.
	Environ    map[string]string
	AppOptions []app.Option
}

// DefaultRuntime uses the standard streams and the process environment.
func DefaultRuntime() *Runtime {
	return &Runtime{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type globalFlags struct {
	output   string
	logLevel string
	verbose  bool
}

type session struct {
	rt    *Runtime
	flags *globalFlags
}

// env is everything a command needs once configuration is loaded.
type env struct {
	ctx context.Context
	cfg *config.Config
	app *app.App
	out *cli.Printer
}

// NewRootCommand creates the critiqo root command.
func NewRootCommand(rt *Runtime) *cobra.Command {
	g := &globalFlags{}
	s := &session{rt: rt, flags: g}

	root := &cobra.Command{
		Use:   "critiqo",
		Short: "Moderate reviews and users of the Critiqo portal",
		Long: `critiqo is the admin console of the Critiqo review portal. It lists,
searches and pages through reviews and users, changes review status,
toggles premium and deletes users.

Configuration is read from CRITIQO_* environment variables; at least
CRITIQO_API_BASE_URL must be set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(rt.In)
	root.SetOut(rt.Out)
	root.SetErr(rt.Err)

	root.PersistentFlags().StringVarP(&g.output, "output", "o", string(cli.FormatText), "Output format: text, json or yaml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level, overrides LOG_LEVEL")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Include error details in failure messages")

	root.AddCommand(
		newReviewsCommand(s),
		newUsersCommand(s),
		newStatsCommand(s),
		newWatchCommand(s),
		newVersionCommand(rt),
	)
	return root
}

func (s *session) loadConfig() (*config.Config, error) {
	if s.rt.Environ != nil {
		return config.LoadFrom(s.rt.Environ)
	}
	return config.Load()
}

// open loads configuration, applies tweaks and builds the app. The returned
// close func must be called when the command is done.
func (s *session) open(cmd *cobra.Command, tweaks ...func(*config.Config)) (*env, func(), error) {
	format, err := cli.ParseFormat(s.flags.output)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := s.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if s.flags.logLevel != "" {
		cfg.LogLevel = s.flags.logLevel
	}
	for _, tweak := range tweaks {
		tweak(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.NewText("critiqo", cfg.LogLevel, s.rt.Err)
	opts := append([]app.Option{app.WithNotifier(notify.NewTerminal(s.rt.Err, s.flags.verbose))}, s.rt.AppOptions...)

	a, err := app.NewApp(cmd.Context(), cfg, log, opts...)
	if err != nil {
		return nil, nil, err
	}

	e := &env{
		ctx: a.Context(cmd.Context()),
		cfg: cfg,
		app: a,
		out: cli.NewPrinter(s.rt.Out, format),
	}
	return e, func() { _ = a.Shutdown() }, nil
}

func newVersionCommand(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the critiqo version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(rt.Out, "critiqo version %s\n", app.Version)
		},
	}
}
