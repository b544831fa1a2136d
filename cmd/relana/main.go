package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"relana/adapters/yamlmodel"
	"relana/domain/core"
	"relana/domain/project"
	"relana/internal/config"
	"relana/internal/container"
	apperrors "relana/internal/errors"
	"relana/internal/report"
	"relana/ports"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

type rootOptions struct {
	envFile string
}

func (o *rootOptions) container() (*container.Container, error) {
	var files []string
	if o.envFile != "" {
		files = append(files, o.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "relana",
		Short:         "Exact reliability analysis of component models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Environment file to load (default .env)")

	rootCmd.AddCommand(
		newAnalyzeCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var outputs []string
	var format string
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "analyze MODEL",
		Short: "Compute the exact probability of each output effect",
		Long: `Compute the exact probability that each output effect of a model exhibits
a deficiency.

Example: relana analyze plant.yaml --output cooling --format markdown --xlsx plant.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container()
			if err != nil {
				return err
			}
			proj, err := loadProject(cmd.Context(), args[0], outputs)
			if err != nil {
				return err
			}
			var writers []ports.ReportWriter
			if xlsxPath != "" {
				writers = append(writers, c.WorkbookWriter(xlsxPath))
			}
			rep, err := c.AnalysisService(writers...).Analyze(cmd.Context(), proj)
			if err != nil {
				return err
			}
			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			f, err := report.ParseFormat(format)
			if err != nil {
				return apperrors.InvalidInput(err.Error())
			}
			return report.Render(cmd.OutOrStdout(), rep, f, c.Config.Report.Decimals)
		},
	}

	cmd.Flags().StringSliceVarP(&outputs, "output", "o", nil, "Output effect to evaluate (repeatable, default all declared outputs)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Rendering: text, markdown, html or json")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Also export the report to this xlsx file")

	return cmd
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate MODEL",
		Short: "Check a model without evaluating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container()
			if err != nil {
				return err
			}
			proj, err := loadProject(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			res, err := c.AnalysisService().Validate(cmd.Context(), proj)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model %s is valid: %d effects, %d outputs\n", res.Project, len(res.Effects), len(res.Outputs))
			fmt.Fprintf(out, "outputs: %s\n", strings.Join(res.Outputs, ", "))
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.HTTPServer().ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default RELANA_HTTP_ADDR or :8080)")

	return cmd
}

// loadProject reads the model at path; outputs, when given, replace the declared ones.
func loadProject(ctx context.Context, path string, outputs []string) (*project.Project, error) {
	proj, err := yamlmodel.FileSource{Path: path}.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return proj, nil
	}
	paths := make([]core.Path, 0, len(outputs))
	for _, o := range outputs {
		p, err := core.ParsePath(o)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.InvalidInput(err.Error()), "bad --output %q", o)
		}
		paths = append(paths, p)
	}
	return project.New(proj.Name, proj.Base, paths)
}

// exitCode is 2 for bad input or configuration, 3 for an unusable model and 1 otherwise.
func exitCode(err error) int {
	switch apperrors.GetCode(apperrors.FromDomain(err)) {
	case apperrors.CodeInvalidInput, apperrors.CodeConfigInvalid:
		return 2
	case apperrors.CodeModelInvalid, apperrors.CodeNotFound:
		return 3
	}
	return 1
}
