package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/meltforce/liftlog/internal/analytics"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/settings"
)

var (
	analyzeTemplates []int64
	analyzeHistory   bool
	analyzeDays      int
	analyzeWarmups   bool
	analyzeDrops     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the per-muscle volume report for templates or logged history",
	Long: `Print the per-muscle volume report.

By default every template is analyzed as one program; --template selects
a subset. --history reports the sets logged in the last --days days
instead.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int64SliceVar(&analyzeTemplates, "template", nil, "template IDs to analyze (default all)")
	analyzeCmd.Flags().BoolVar(&analyzeHistory, "history", false, "analyze logged sets instead of templates")
	analyzeCmd.Flags().IntVar(&analyzeDays, "days", 7, "history window in days")
	analyzeCmd.Flags().BoolVar(&analyzeWarmups, "count-warmups", false, "count warmup sets as effective")
	analyzeCmd.Flags().BoolVar(&analyzeDrops, "count-drops", false, "count drop sets as effective")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	lib, err := library.Load(cfg.Library.Path)
	if err != nil {
		return err
	}

	prefs, err := settings.Open(cfg.Settings.Path, cfg.Training.Analytics())
	if err != nil {
		return err
	}
	defer prefs.Close()
	s, err := prefs.Get(ctx)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("count-warmups") {
		s.CountWarmupAsEffective = analyzeWarmups
	}
	if cmd.Flags().Changed("count-drops") {
		s.CountDropSetAsEffective = analyzeDrops
	}

	var program *analytics.Program
	if analyzeHistory {
		if analyzeDays <= 0 {
			return errors.New("--days must be positive")
		}
		end := time.Now()
		sets, err := db.CompletedSetsBetween(ctx, end.AddDate(0, 0, -analyzeDays), end)
		if err != nil {
			return err
		}
		program = analytics.AnalyzeHistory(sets, lib)
	} else {
		var templates []models.Template
		if len(analyzeTemplates) == 0 {
			if templates, err = db.ListTemplates(ctx); err != nil {
				return err
			}
		} else {
			for _, id := range analyzeTemplates {
				t, err := db.GetTemplate(ctx, id)
				if err != nil {
					return fmt.Errorf("template %d: %w", id, err)
				}
				templates = append(templates, *t)
			}
		}
		program = analytics.Analyze(templates, lib, cfg.Training.DefaultRestSeconds)
	}

	renderReport(cmd.OutOrStdout(), program.Report(s))
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
}

// renderReport writes the muscle table, the duration table when the
// report has one, and the totals.
func renderReport(w io.Writer, r analytics.Report) {
	muscles := newTable("MUSCLE", "PRIMARY", "AUXILIARY", "EFFECTIVE")
	for _, m := range r.Muscles {
		muscles.Row(m.Muscle,
			strconv.Itoa(m.Primary.Total()),
			strconv.Itoa(m.Auxiliary.Total()),
			formatSets(m.EffectiveSets))
	}
	fmt.Fprintln(w, muscles.Render())

	if len(r.Durations) > 0 {
		durations := newTable("TEMPLATE", "EXERCISES", "SETS", "DURATION")
		for _, d := range r.Durations {
			durations.Row(d.Name,
				strconv.Itoa(d.Exercises),
				strconv.Itoa(d.Sets),
				formatSeconds(d.TotalSeconds))
		}
		fmt.Fprintln(w, durations.Render())
	}

	fmt.Fprintf(w, "effective sets: %s", formatSets(r.EffectiveSets))
	if len(r.Durations) > 0 {
		fmt.Fprintf(w, "  total time: %s", formatSeconds(r.TotalSeconds))
	}
	fmt.Fprintln(w)
}

func formatSets(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatSeconds(s int) string {
	return (time.Duration(s) * time.Second).String()
}
