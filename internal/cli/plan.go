package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/piwi3910/SubTrack/internal/engine"
	"github.com/piwi3910/SubTrack/internal/export"
	"github.com/piwi3910/SubTrack/internal/importer"
	"github.com/piwi3910/SubTrack/internal/inventory"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/spf13/cobra"
)

type planOptions struct {
	parts     string
	inventory string
	shape     string
	pdf       string
}

func newPlanCmd(a *app) *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Match a part list against the stock inventory and report stick yields",
		Long: `Plan reads a part list (CSV or xlsx), matches every shape and grade against
the stock inventory and prints the greedy yield of each candidate stick.
With --pdf the report is also written as a cut plan.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.plan(cmd.Context(), printer{out: cmd.OutOrStdout()}, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.parts, "parts", "p", "", "part list file (.csv or .xlsx)")
	cmd.Flags().StringVarP(&opts.inventory, "inventory", "i", "", "inventory snapshot (JSON); default from config")
	cmd.Flags().StringVar(&opts.shape, "shape", "", "only show stock whose shape contains this text")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "write the cut plan PDF to this path")
	_ = cmd.MarkFlagRequired("parts")
	return cmd
}

// reportImport prints row problems and returns an error when nothing imported.
func reportImport(p printer, res importer.ImportResult) error {
	for _, w := range res.Warnings {
		p.warn("warning: %s", w)
	}
	for _, e := range res.Errors {
		p.bad("error: %s", e)
	}
	if len(res.Items) == 0 {
		return fmt.Errorf("no parts imported")
	}
	return nil
}

func (a *app) plan(ctx context.Context, p printer, opts planOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res := importer.ImportFile(opts.parts)
	if err := reportImport(p, res); err != nil {
		return err
	}

	src, err := inventorySource(a.cfg.Inventory)
	if err != nil {
		return err
	}
	if opts.inventory != "" {
		src = inventory.FileSource{Path: opts.inventory}
	}
	inv, err := inventory.NewCache(src, a.cfg.Inventory.TTL, a.log).Get(ctx)
	if err != nil {
		p.bad("inventory unavailable: %v", err)
	}
	inv = inventory.Filter(inv, opts.shape)

	matches := engine.Plan(res.Items, inv)
	printMatches(p, matches)

	if opts.pdf != "" {
		title := strings.TrimSuffix(filepath.Base(opts.parts), filepath.Ext(opts.parts))
		if err := export.ExportCutPlan(opts.pdf, export.CutPlan{Title: title, Matches: matches}); err != nil {
			return fmt.Errorf("failed to write cut plan: %w", err)
		}
		p.ok("cut plan written to %s", opts.pdf)
	}
	return nil
}

func printMatches(p printer, matches []engine.Match) {
	for i, m := range matches {
		p.head("[%d] %s %s  %d pcs, %s", i+1, m.Group.Shape, m.Group.Grade, m.Group.TotalPieces, model.FormatLength(m.Group.TotalLengthInches))
		for _, pc := range m.Group.Pieces {
			p.line("      %-10s %-10s x%d", pc.Mark, pc.LengthDisplay, pc.Quantity)
		}
		if !m.HasInventory {
			p.bad("    no matching inventory")
			continue
		}
		p.line("    stock: %s %s %s", m.StockShape, m.StockDimension, m.StockGrade)
		for j, c := range engine.CompareSticks(m) {
			text := fmt.Sprintf("    %-9s x%-3d cuts %-3d waste %-9s (%d%%)  sticks %d  weight %s",
				c.Stick.LengthDisplay, c.Stick.Count, c.Plan.TotalFits, model.FormatLength(c.Plan.Waste),
				c.Plan.WastePct, c.Estimate.SticksNeeded, model.FormatWeight(c.Estimate.TotalWeight))
			switch {
			case c.Estimate.Shortfall > 0:
				p.warn("%s  short %d", text, c.Estimate.Shortfall)
			case j == 0 && c.Estimate.Covered:
				p.ok("%s  best", text)
			default:
				p.line("%s", text)
			}
		}
	}

	s := engine.Summarize(matches)
	p.line("")
	p.head("%d groups, %d with stock, %d pieces, %d candidate sticks", s.Groups, s.GroupsMatched, s.PiecesRequired, s.CandidateSticks)
}
