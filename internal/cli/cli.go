// Package cli implements the template-tag command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bennypowers.dev/templatetag/internal/batch"
	"bennypowers.dev/templatetag/internal/config"
	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/internal/version"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	root       string
	configFile string
	tag        string
	implicit   bool
	workers    int
	logLevel   string
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		log.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree reading from stdin and writing
// reports to stdout and logs to stderr
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "template-tag",
		Short: "Compile <template> tags in .gjs and .gts files to template() calls",
		Long: `template-tag rewrites the embedded templates of JavaScript and TypeScript
modules into calls to the template compiler function, capturing the
template's free variables in an explicit scope closure.

Settings come from the "templateTag" field of package.json, a
.template-tag.yaml file, TEMPLATE_TAG_* environment variables (also read
from .env) and flags, each overriding the last.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			log.SetOutput(stderr)
			return nil
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.root, "root", ".", "project root to search and resolve paths against")
	pf.StringVarP(&flags.configFile, "config", "c", "", "YAML config file (default .template-tag.yaml in the root)")
	pf.StringVar(&flags.tag, "tag", "", "element name of block templates (default \"template\")")
	pf.BoolVar(&flags.implicit, "implicit", false, "emit an eval method instead of an explicit scope closure")
	pf.IntVarP(&flags.workers, "workers", "j", 0, "files processed at once (default number of CPUs)")
	pf.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		transformCmd(flags),
		lintCmd(flags),
		matchesCmd(flags),
		versionCmd(),
	)
	return root
}

// loadConfig layers the flags the user set over the loaded configuration
func loadConfig(cmd *cobra.Command, flags *globalFlags, globs []string) (config.Config, error) {
	cfg, err := config.Load(flags.root, flags.configFile)
	if err != nil {
		return cfg, err
	}

	pf := cmd.Flags()
	if pf.Changed("tag") {
		cfg.TemplateTag = flags.tag
	}
	if pf.Changed("implicit") {
		cfg.Explicit = !flags.implicit
	}
	if pf.Changed("workers") {
		cfg.Workers = flags.workers
	}
	if pf.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if len(globs) > 0 {
		cfg.Include = globs
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	log.SetLevel(level)

	return cfg, cfg.Validate()
}

// run discovers the configured files and processes them in mode
func run(cmd *cobra.Command, cfg config.Config, root string, mode batch.Mode) (*batch.Runner, []batch.Task[string, batch.FileResult], error) {
	runner, err := batch.NewRunner(root, cfg)
	if err != nil {
		return nil, nil, err
	}
	files, err := runner.Discover()
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		log.Warn("No files matched %v under %s", cfg.Include, root)
	}
	return runner, runner.Run(cmd.Context(), mode, files), nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version: %s\n", info.Version)
			if info.Commit != "" {
				fmt.Fprintf(out, "commit: %s\n", info.Commit)
			}
			if info.BuildTime != "" {
				fmt.Fprintf(out, "built: %s\n", info.BuildTime)
			}
			if info.Dirty {
				fmt.Fprintln(out, "dirty: true")
			}
			return nil
		},
	}
}
