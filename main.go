// jimbo watches code being inserted into a project, explains each insertion
// in one sentence and has a mascot react to it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phobologic/jimbo/internal/config"
	"github.com/phobologic/jimbo/internal/lang"
	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/snippet"
	"github.com/phobologic/jimbo/internal/toon"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by all subcommands.
type app struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	_ = a.logger.Sync()
	return err
}

// skipConfig marks commands that must run even when the config file is broken.
const skipConfig = "jimbo/skip-config"

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jimbo",
		Short:         "Explain inserted code and react to it",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cmd.Annotations[skipConfig] == "" {
				var err error
				if cfg, err = config.Load(a.configPath); err != nil {
					return err
				}
			}
			a.cfg = cfg
			logger, err := newLogger(cfg.Logging, a.verbose, a.stderr)
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			a.logger = logger
			return nil
		},
	}
	root.SetVersionTemplate("jimbo {{.Version}}\n")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.classifyCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.initCmd(),
	)
	return root
}

func newLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	var enc zapcore.Encoder
	if cfg.Development {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level)), nil
}

// classifier builds the snippet classifier with any configured extra rules.
func (a *app) classifier() (*snippet.Classifier, error) {
	extra, err := a.cfg.ActionRules()
	if err != nil {
		return nil, err
	}
	return snippet.New(extra...), nil
}

const (
	formatText = "text"
	formatJSON = "json"
	formatTOON = "toon"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatTOON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or toon)", format)
}

func (a *app) classifyCmd() *cobra.Command {
	var (
		format   string
		language string
	)
	cmd := &cobra.Command{
		Use:   "classify [file|-]",
		Short: "Describe a code snippet in one sentence",
		Long: `Classify reads a snippet from a file, or from stdin when the argument is
omitted or "-", and prints its gist, construct, actions and complexity.

When the language is known, from --lang or the file extension, the symbols
the snippet defines are listed too.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			file := "-"
			if len(args) > 0 {
				file = args[0]
			}
			var (
				data []byte
				err  error
			)
			if file == "-" {
				data, err = io.ReadAll(a.stdin)
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("reading snippet: %w", err)
			}

			if language == "" && file != "-" {
				language = lang.ForPath(file)
			}
			report, err := a.classify(cmd.Context(), string(data), language)
			if err != nil {
				return err
			}
			if file != "-" {
				report.File = file
			}
			return a.writeReport(report, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or toon")
	cmd.Flags().StringVarP(&language, "lang", "l", "",
		"snippet language for the symbol outline ("+strings.Join(lang.Names(), ", ")+")")
	return cmd
}

func (a *app) classify(ctx context.Context, text, language string) (*model.Report, error) {
	c, err := a.classifier()
	if err != nil {
		return nil, err
	}
	res, err := snippet.Safe(c, text)
	if err != nil {
		a.logger.Error("classification failed", zap.Error(err))
	}
	report := &model.Report{Result: res}
	if language == "" {
		return report, nil
	}

	cache, err := outline.NewCache(1)
	if err != nil {
		return nil, err
	}
	o, err := cache.Outline(ctx, strings.ToLower(language), text)
	if err != nil {
		return nil, err
	}
	report.Outline = &o
	return report, nil
}

func (a *app) writeReport(r *model.Report, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(a.stdout, r)
	case formatTOON:
		_, err := fmt.Fprintln(a.stdout, toon.EncodeReport(r))
		return err
	}

	var b strings.Builder
	fmt.Fprintln(&b, r.Result.Gist)
	if r.File != "" {
		fmt.Fprintf(&b, "  file:       %s\n", r.File)
	}
	fmt.Fprintf(&b, "  lines:      %d\n", r.Result.LineCount)
	fmt.Fprintf(&b, "  complexity: %s (score %d)\n", r.Result.Complexity, r.Result.Score)
	if r.Outline != nil {
		for _, s := range r.Outline.Symbols {
			fmt.Fprintf(&b, "  %-10s  %s (line %d)\n", string(s.Kind)+":", s.Name, s.Line)
		}
		if r.Outline.SyntaxErrors {
			fmt.Fprintln(&b, "  (snippet has syntax errors)")
		}
	}
	_, err := io.WriteString(a.stdout, b.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
