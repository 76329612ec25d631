package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/benvon/day-timeline/internal/database"
	"github.com/benvon/day-timeline/internal/metrics"
	"github.com/benvon/day-timeline/internal/models"
	"github.com/benvon/day-timeline/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewMetricsCmd prints a metrics report for a stored day or a DayState file
func NewMetricsCmd() *cobra.Command {
	var (
		userID, date, file, nowFlag string
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print the metrics of a day",
		Long:  "Compute planned versus actual minutes, per-category totals and bedtime projections for a stored day (--user, --date) or a DayState JSON file (--file).",
		Example: "  day-timeline-configure metrics --user 6f1c... --date 2024-01-01\n" +
			"  day-timeline-configure metrics --file day.json --now 2024-01-01T18:00:00Z",
		RunE: func(cmd *cobra.Command, _ []string) error {
			compute := metrics.ComputeDayMetricsNow
			if nowFlag != "" {
				parsed, err := time.Parse(time.RFC3339, nowFlag)
				if err != nil {
					return fmt.Errorf("--now must be RFC3339: %w", err)
				}
				compute = func(state models.DayState) models.DayMetrics {
					return metrics.ComputeDayMetrics(state, parsed.UTC())
				}
			}

			if file != "" {
				state, err := readDayState(file)
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), state, compute(*state))
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return errors.New("--user must be a user id (or use --file)")
			}
			if !validation.IsDateKey(date) {
				return errors.New("--date must be YYYY-MM-DD")
			}

			ctx := cmd.Context()
			return withDB(ctx, cmd, func(db *database.DB) error {
				state, err := database.NewDayStateRepository(db).Get(ctx, id, date)
				if errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("no day stored for user %s on %s", id, date)
				}
				if err != nil {
					return err
				}
				return writeReport(cmd.OutOrStdout(), state, compute(*state))
			})
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id of the stored day")
	cmd.Flags().StringVar(&date, "date", "", "Day key, YYYY-MM-DD")
	cmd.Flags().StringVar(&file, "file", "", "Read a DayState JSON document instead of the database")
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this RFC3339 instant instead of the current time")
	cmd.MarkFlagsMutuallyExclusive("file", "user")
	return cmd
}

func readDayState(path string) (*models.DayState, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var state models.DayState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := validation.ValidateDayState(&state); err != nil {
		return nil, fmt.Errorf("invalid day state in %s: %w", path, err)
	}
	return &state, nil
}

func clock(t *time.Time) string {
	if t == nil {
		return "not started"
	}
	return t.UTC().Format("2006-01-02 15:04 MST")
}

// writeReport renders m as an aligned plain-text table
func writeReport(w io.Writer, state *models.DayState, m models.DayMetrics) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Day\t%s\n", state.Date)
	fmt.Fprintf(tw, "Planned\t%s\n", metrics.FormatDuration(m.TotalPlannedMinutes))
	fmt.Fprintf(tw, "Actual\t%s\n", metrics.FormatDuration(m.TotalActualMinutes))
	fmt.Fprintf(tw, "Delta\t%s\n", metrics.FormatDelta(m.TotalDeltaMinutes))
	current := "none"
	if m.CurrentBlockID != nil {
		current = *m.CurrentBlockID
		if b := state.FindBlock(current); b != nil {
			current = b.Label
		}
	}
	fmt.Fprintf(tw, "Current block\t%s\n", current)
	fmt.Fprintf(tw, "Planned bedtime\t%s\n", clock(m.PlannedBedtime))
	fmt.Fprintf(tw, "Forecast bedtime\t%s\n", clock(m.ForecastBedtime))

	if len(m.Categories) > 0 {
		names := make([]string, 0, len(m.Categories))
		for name := range m.Categories {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "CATEGORY\tPLANNED\tACTUAL\tDELTA")
		for _, name := range names {
			totals := m.Categories[name]
			label := name
			if label == "" {
				label = "(none)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label,
				metrics.FormatDuration(totals.Planned),
				metrics.FormatDuration(totals.Actual),
				metrics.FormatDelta(totals.Actual-totals.Planned),
			)
		}
	}
	return tw.Flush()
}
