package cli

import (
	"fmt"
	"io"

	"bennypowers.dev/templatetag/internal/batch"
	"bennypowers.dev/templatetag/internal/config"
	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/transform"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/spf13/cobra"
)

// stdinFlag names the file whose content arrives on stdin; its value
// selects the grammar and becomes the moduleName
const stdinFlag = "stdin-filename"

func transformCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir        string
		sourceMaps    string
		stdinFilename string
	)

	cmd := &cobra.Command{
		Use:   "transform [globs...]",
		Short: "Rewrite templates and write .js/.ts outputs",
		Long: `Rewrites every template in the matching files. Outputs go beside their
inputs with .gjs and .gts replaced by .js and .ts, or under --out-dir.
With --stdin-filename the source is read from stdin and the output
printed to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out-dir") {
				cfg.OutDir = outDir
			}
			if cmd.Flags().Changed("source-maps") {
				cfg.SourceMaps = types.SourceMapMode(sourceMaps)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			if stdinFilename != "" {
				input, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				result, err := transform.Transform(cfg.TransformOptions(string(input), stdinFilename))
				if err != nil {
					return err
				}
				logDiagnostics(result.Diagnostics)
				_, err = io.WriteString(cmd.OutOrStdout(), result.Output)
				return err
			}

			runner, tasks, err := run(cmd, cfg, flags.root, batch.ModeTransform)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				logDiagnostics(task.Result.Diagnostics)
			}
			if err := runner.WriteOutputs(tasks); err != nil {
				return err
			}
			return batch.Errors(tasks)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory receiving outputs, mirroring the input layout")
	cmd.Flags().StringVar(&sourceMaps, "source-maps", "", "none, inline or both")
	cmd.Flags().StringVar(&stdinFilename, stdinFlag, "", "read one file from stdin under this name")
	return cmd
}

func lintCmd(flags *globalFlags) *cobra.Command {
	var stdinFilename string

	cmd := &cobra.Command{
		Use:   "lint [globs...]",
		Short: "Patch templates in place and print a JSON report of each patch",
		Long: `Replaces each template with its compiler call while leaving every other
byte in place, and prints, per file, the patched source and where each
patch landed. Linters use the report to map positions back to the input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}

			var tasks []batch.Task[string, batch.FileResult]
			if stdinFilename != "" {
				tasks, err = stdinTask(cmd, cfg, stdinFilename, batch.ModeLint)
			} else {
				_, tasks, err = run(cmd, cfg, flags.root, batch.ModeLint)
			}
			if err != nil {
				return err
			}
			if err := batch.WriteReport(cmd.OutOrStdout(), tasks); err != nil {
				return err
			}
			return batch.Errors(tasks)
		},
	}

	cmd.Flags().StringVar(&stdinFilename, stdinFlag, "", "read one file from stdin under this name")
	return cmd
}

func matchesCmd(flags *globalFlags) *cobra.Command {
	var stdinFilename string

	cmd := &cobra.Command{
		Use:   "matches [globs...]",
		Short: "Print the templates found in each file as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags, args)
			if err != nil {
				return err
			}

			var tasks []batch.Task[string, batch.FileResult]
			if stdinFilename != "" {
				tasks, err = stdinTask(cmd, cfg, stdinFilename, batch.ModeMatches)
			} else {
				_, tasks, err = run(cmd, cfg, flags.root, batch.ModeMatches)
			}
			if err != nil {
				return err
			}
			if err := batch.WriteReport(cmd.OutOrStdout(), tasks); err != nil {
				return err
			}
			return batch.Errors(tasks)
		},
	}

	cmd.Flags().StringVar(&stdinFilename, stdinFlag, "", "read one file from stdin under this name")
	return cmd
}

// stdinTask processes stdin as a single file, reporting a failure in the
// task rather than returning it so the report still covers the file
func stdinTask(cmd *cobra.Command, cfg config.Config, name string, mode batch.Mode) ([]batch.Task[string, batch.FileResult], error) {
	input, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	opts := cfg.TransformOptions(string(input), name)

	task := batch.Task[string, batch.FileResult]{Input: name}
	switch mode {
	case batch.ModeMatches:
		matches, err := transform.ParseTemplates(opts.Input, name, opts)
		task.Result, task.Err = batch.FileResult{Path: name, Matches: matches}, err
	default:
		lint, err := transform.TransformForLint(opts)
		if err == nil {
			task.Result = batch.FileResult{Path: name, Output: lint.Output, Lint: lint, Diagnostics: lint.Diagnostics}
		}
		task.Err = err
	}
	return []batch.Task[string, batch.FileResult]{task}, nil
}

func logDiagnostics(diags []*types.HostParseError) {
	for _, d := range diags {
		log.Warn("%v", d)
	}
}
