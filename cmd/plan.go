package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"dmis/internal/models"
	"dmis/internal/services"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run replenishment planning for an event and print the drafted needs lists",
	RunE: func(cmd *cobra.Command, _ []string) error {
		eventID, err := uuidFlag(cmd, "event")
		if err != nil {
			return err
		}
		actorID, err := uuidFlag(cmd, "actor")
		if err != nil {
			return err
		}
		rawWarehouses, _ := cmd.Flags().GetStringSlice("warehouse")
		warehouseIDs := make([]uuid.UUID, 0, len(rawWarehouses))
		for _, raw := range rawWarehouses {
			id, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("invalid --warehouse %q: %w", raw, err)
			}
			warehouseIDs = append(warehouseIDs, id)
		}

		a, err := appFromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.planning.Run(cmd.Context(), services.PlanningRequest{
			EventID:      eventID,
			WarehouseIDs: warehouseIDs,
			ActorID:      actorID,
			Trigger:      services.TriggerManual,
		})
		if err != nil {
			return err
		}
		printPlanningResult(cmd.Context(), cmd.OutOrStdout(), a.warehouses, result)
		return nil
	},
}

var FreshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Recompute and print warehouse data freshness",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := appFromCommand(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		summary, err := a.freshness.Recompute(cmd.Context())
		if err != nil {
			return err
		}
		printFreshness(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	PlanCmd.Flags().String("event", "", "Event to plan for")
	PlanCmd.Flags().String("actor", "", "User the drafts are created for")
	PlanCmd.Flags().StringSlice("warehouse", nil, "Limit planning to these warehouses (repeatable)")
	_ = PlanCmd.MarkFlagRequired("event")
	_ = PlanCmd.MarkFlagRequired("actor")
}

func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	raw, _ := cmd.Flags().GetString(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, raw, err)
	}
	return id, nil
}

func severityColor(s models.Severity) *color.Color {
	switch s {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityWarning:
		return color.New(color.FgYellow)
	case models.SeverityWatch:
		return color.New(color.FgHiBlue)
	default:
		return color.New(color.FgHiGreen)
	}
}

func tierColor(t models.FreshnessTier) *color.Color {
	switch t {
	case models.FreshnessHigh:
		return color.New(color.FgHiGreen)
	case models.FreshnessMedium:
		return color.New(color.FgHiBlue)
	case models.FreshnessLow:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printPlanningResult(ctx context.Context, w io.Writer, warehouses services.WarehouseService, result *services.PlanningResult) {
	fmt.Fprintf(w, "Run %s for event %s (%s) at %s\n",
		result.RunID, result.EventID, result.Phase, result.CalculatedAt.Format("2006-01-02 15:04 MST"))
	if result.Cancelled {
		color.New(color.FgYellow).Fprintln(w, "Run was cancelled; lists below were saved before it stopped.")
	}

	for _, list := range result.NeedsLists {
		name := list.WarehouseID.String()
		if wh, err := warehouses.GetByID(ctx, list.WarehouseID); err == nil {
			name = wh.Name
		}
		fmt.Fprintf(w, "\n%s  v%d  %s  freshness %s\n", color.New(color.Bold).Sprint(name), list.Version, list.Status,
			tierColor(list.FreshnessTier).Sprint(list.FreshnessTier))

		for _, item := range list.Items {
			stockout := "n/a"
			if item.TimeToStockoutHours != nil {
				stockout = fmt.Sprintf("%.1fh", *item.TimeToStockoutHours)
			}
			fmt.Fprintf(w, "  %-8s %s  gap %s  stockout %s  A %s  B %s  C %s\n",
				severityColor(item.Severity).Sprint(item.Severity),
				item.ItemID.String()[:8],
				item.GapQty.StringFixed(2),
				stockout,
				item.HorizonAQty.StringFixed(2),
				item.HorizonBQty.StringFixed(2),
				item.HorizonCQty.StringFixed(2),
			)
		}
	}

	fmt.Fprintf(w, "\n%d lists, %d lines planned, %d skipped, %d burn rate fallbacks\n",
		len(result.NeedsLists), result.LinesPlanned, result.LinesSkipped, result.Fallbacks)
}

func printFreshness(w io.Writer, summary *models.FreshnessSummary) {
	overall := color.New(color.FgHiGreen)
	switch summary.OverallState {
	case models.FreshnessSomeStale:
		overall = color.New(color.FgYellow)
	case models.FreshnessCriticalStale:
		overall = color.New(color.FgRed, color.Bold)
	}
	fmt.Fprintf(w, "Overall: %s\n", overall.Sprint(summary.OverallState))

	for _, wh := range summary.Warehouses {
		age := "never synced"
		if wh.AgeHours != nil {
			age = fmt.Sprintf("%.1fh ago", *wh.AgeHours)
		}
		fmt.Fprintf(w, "  %-7s %s (%s)\n", tierColor(wh.Tier).Sprint(wh.Tier), wh.WarehouseName, age)
	}
	if len(summary.NonFreshWarehouses) > 0 {
		fmt.Fprintf(w, "Not fresh: %s\n", strings.Join(summary.NonFreshWarehouses, ", "))
	}
}
