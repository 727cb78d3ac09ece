package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/piwi3910/SubTrack/internal/export"
	"github.com/piwi3910/SubTrack/internal/importer"
	"github.com/piwi3910/SubTrack/internal/inventory"
	"github.com/piwi3910/SubTrack/internal/model"
	"github.com/piwi3910/SubTrack/internal/store"
	"github.com/spf13/cobra"
)

// findSubOut resolves a SubOut by number, or by ID when ref is numeric and
// no SubOut carries it as a number.
func findSubOut(ctx context.Context, st *store.Store, ref string) (*store.SubOut, error) {
	ref = strings.TrimSpace(ref)
	so, err := st.FindSubOutByNumber(ctx, ref)
	if err == nil || !errors.Is(err, store.ErrSubOutNotFound) {
		return so, err
	}
	if id, perr := strconv.ParseUint(ref, 10, 64); perr == nil && id > 0 {
		return st.GetSubOut(ctx, uint(id))
	}
	return nil, err
}

func newImportCmd(a *app) *cobra.Command {
	var (
		suborder string
		parts    string
		create   bool
		vendor   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a part list into a SubOut",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			p := printer{out: cmd.OutOrStdout()}

			res := importer.ImportFile(parts)
			if err := reportImport(p, res); err != nil {
				return err
			}

			st, err := store.Open(a.cfg.DB, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			so, err := findSubOut(ctx, st, suborder)
			if errors.Is(err, store.ErrSubOutNotFound) && create {
				so = &store.SubOut{Number: suborder, Vendor: vendor}
				err = st.CreateSubOut(ctx, so)
				if err == nil {
					p.ok("created suborder %s", so.Number)
				}
			}
			if err != nil {
				return fmt.Errorf("suborder %s: %w", suborder, err)
			}

			bulk, err := st.AddItems(ctx, so.ID, res.Items)
			if err != nil {
				return err
			}
			for _, e := range bulk.Errors {
				p.bad("row %d: %s", e.Index+1, e.Error)
			}
			p.ok("%d of %d items added to %s", bulk.Inserted, len(res.Items), so.Number)
			return nil
		},
	}
	cmd.Flags().StringVarP(&suborder, "suborder", "s", "", "SubOut number or ID")
	cmd.Flags().StringVarP(&parts, "parts", "p", "", "part list file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&create, "create", false, "create the SubOut when it does not exist")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor of a SubOut created with --create")
	_ = cmd.MarkFlagRequired("suborder")
	_ = cmd.MarkFlagRequired("parts")
	return cmd
}

func newTagsCmd(a *app) *cobra.Command {
	var (
		suborder string
		out      string
		sendType string
	)
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Print QR item tags for a SubOut",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := store.Open(a.cfg.DB, a.log)
			if err != nil {
				return err
			}
			defer st.Close()

			so, err := findSubOut(ctx, st, suborder)
			if err != nil {
				return fmt.Errorf("suborder %s: %w", suborder, err)
			}
			items, err := st.ListSubOutItems(ctx, so.ID)
			if err != nil {
				return err
			}
			if sendType != "" {
				want, ok := importer.ParseSendType(sendType)
				if !ok {
					return fmt.Errorf("unknown send type %q", sendType)
				}
				filtered := items[:0]
				for _, it := range items {
					if it.SendType == want {
						filtered = append(filtered, it)
					}
				}
				items = filtered
			}
			if out == "" {
				out = "tags-" + so.Number + ".pdf"
			}
			if err := export.ExportTags(out, export.TagsFromItems(items)); err != nil {
				return err
			}
			printer{out: cmd.OutOrStdout()}.ok("tags written to %s", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&suborder, "suborder", "s", "", "SubOut number or ID")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output PDF (default tags-<number>.pdf)")
	cmd.Flags().StringVar(&sendType, "send-type", "", "only items of this send type ("+strings.Join([]string{string(model.SendTypeRaw), string(model.SendTypeCutToLength), string(model.SendTypeParts)}, ", ")+")")
	_ = cmd.MarkFlagRequired("suborder")
	return cmd
}

func newInventoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect or snapshot the stock inventory",
	}

	var out string
	pull := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the inventory from its URL and save a local snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Inventory.URL == "" {
				return fmt.Errorf("inventory url not configured")
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			records, err := inventory.NewHTTPSource(a.cfg.Inventory.URL, a.cfg.Inventory.FetchTimeout).Fetch(ctx)
			if err != nil {
				return err
			}
			if out == "" {
				out = a.cfg.Inventory.Snapshot
			}
			if out == "" {
				if out, err = inventory.DefaultSnapshotPath(); err != nil {
					return err
				}
			}
			if err := inventory.SaveSnapshot(out, records); err != nil {
				return err
			}
			printer{out: cmd.OutOrStdout()}.ok("%d records saved to %s", len(records), out)
			return nil
		},
	}
	pull.Flags().StringVarP(&out, "out", "o", "", "snapshot path (default from config or ~/.subtrack/inventory.json)")

	var shape string
	show := &cobra.Command{
		Use:   "show",
		Short: "List stock groups and stick lengths",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			src, err := inventorySource(a.cfg.Inventory)
			if err != nil {
				return err
			}
			inv, err := inventory.NewCache(src, a.cfg.Inventory.TTL, a.log).Get(ctx)
			if err != nil {
				return err
			}
			p := printer{out: cmd.OutOrStdout()}
			for _, g := range inventory.Filter(inv, shape).Groups {
				p.head("%s %s %s  (%d sticks)", g.Shape, g.Dimension, g.Grade, g.TotalCount())
				for _, s := range g.Sticks {
					p.line("    %-9s x%-3d %s", s.LengthDisplay, s.Count, model.FormatWeight(s.WeightLbs))
				}
			}
			return nil
		},
	}
	show.Flags().StringVar(&shape, "shape", "", "only groups whose shape contains this text")

	cmd.AddCommand(pull, show)
	return cmd
}
