// Package cli implements the subtrack command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/piwi3910/SubTrack/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the root has run.
type app struct {
	cfgFile  string
	noColor  bool
	logLevel string

	cfg config.Config
	log *logrus.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "subtrack",
		Short:         "SubTrack tracks sub-fabrication shipments",
		Long:          `SubTrack matches SubOut parts against raw stock, plans cuts and assigns items to truck loads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.noColor {
				color.NoColor = true
			}
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			if a.logLevel != "" {
				cfg.LogLevel = a.logLevel
			}
			a.cfg = cfg
			a.log = config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "path to config file (default ~/.subtrack/config.yaml)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable ANSI color output")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newPlanCmd(a),
		newImportCmd(a),
		newTagsCmd(a),
		newInventoryCmd(a),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		color.New(color.FgHiRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// printer writes colored report lines.
type printer struct {
	out io.Writer
}

func (p printer) head(format string, args ...any) {
	color.New(color.FgCyan, color.Bold).Fprintf(p.out, format+"\n", args...)
}

func (p printer) ok(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(p.out, format+"\n", args...)
}

func (p printer) warn(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(p.out, format+"\n", args...)
}

func (p printer) bad(format string, args ...any) {
	color.New(color.FgHiRed).Fprintf(p.out, format+"\n", args...)
}

func (p printer) line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}
