package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/jrsteele09/qeem-client/internal/utils"
	"github.com/jrsteele09/qeem-client/market"
	"github.com/spf13/cobra"
)

var (
	marketCategory string
	statsQuery     market.StatisticsQuery
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Browse market rates and trends",
}

var marketInsightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Show the market overview for a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := market.ParseCategory(marketCategory)
		if err != nil {
			return err
		}
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		view, err := current.market.Insights(cmd.Context(), category)
		if err != nil {
			return err
		}
		printInsights(view)
		return nil
	},
}

var marketStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "List raw market statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		resp, err := current.market.Statistics(cmd.Context(), statsQuery)
		if err != nil {
			return err
		}
		records := resp.Records()
		average := averageOf(records)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PERIOD\tPROJECT\tLOCATION\tAVERAGE\tRANGE\tDEMAND\tTREND")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s - %s\t%s\t%s\n",
				r.PeriodStart.Format(time.DateOnly),
				r.ProjectType,
				r.Location,
				formatAmount(r.AverageRate, market.DefaultCurrency),
				formatAmount(r.MinRate, market.DefaultCurrency),
				formatAmount(r.MaxRate, market.DefaultCurrency),
				demandString(market.DemandLevel(r.AverageRate, average)),
				directionString(market.TrendDirection(utils.Value(r.TrendLabel))))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nShowing %d of %d\n", len(records), resp.Total)
		return nil
	},
}

func init() {
	marketInsightsCmd.Flags().StringVar(&marketCategory, "category", string(market.CategoryAll), "Category: tech, design, marketing or all")

	f := marketStatsCmd.Flags()
	f.StringVar(&statsQuery.ProjectType, "project-type", "", "Filter by project type")
	f.StringVar(&statsQuery.Location, "location", "", "Filter by location")
	f.StringVar(&statsQuery.PeriodType, "period", market.PeriodWeekly, "Period type: daily, weekly or monthly")
	f.IntVar(&statsQuery.Limit, "limit", 20, "Maximum records to list")
	f.IntVar(&statsQuery.Offset, "offset", 0, "Records to skip")

	marketCmd.AddCommand(marketInsightsCmd, marketStatsCmd)
	rootCmd.AddCommand(marketCmd)
}

func printInsights(view *market.CategoryView) {
	bold := color.New(color.Bold).SprintFunc()
	in := view.Insights

	fmt.Printf("%s %s\n\n", bold("Market:"), view.Category)
	fmt.Printf("%-22s %d\n", "Observations", in.TotalJobs)
	fmt.Printf("%-22s %s\n", "Average rate", formatAmount(float64(in.AverageRate), market.DefaultCurrency))
	fmt.Printf("%-22s %s\n", "Growth", growthString(in.GrowthRate))
	fmt.Printf("%-22s %d of %d\n", "High demand types", in.HighDemandSkillCount, in.TotalSkillCount)
	fmt.Printf("%-22s %d\n", "Growing types", in.GrowingSkillCount)

	printBars("By project type", market.SortedPoints(view.ByType), float64(in.AverageRate))
	printBars("By location", market.SortedPoints(view.ByLocation), float64(in.AverageRate))

	if len(view.Trends) > 0 {
		fmt.Printf("\n%s\n", bold("Trend"))
		for _, p := range market.TimeSeries(view.Trends, time.Local) {
			fmt.Printf("  %s  %s\n", p.Label, formatAmount(float64(p.Value), market.DefaultCurrency))
		}
	}
}

func printBars(title string, points []market.ChartPoint, average float64) {
	if len(points) == 0 {
		return
	}
	fmt.Printf("\n%s\n", color.New(color.Bold).Sprint(title))
	top := points[0].Value
	for _, p := range points {
		width := 0
		if top > 0 {
			width = p.Value * 30 / top
		}
		fmt.Printf("  %-20s %-30s %s %s\n",
			p.Label,
			strings.Repeat("█", width),
			formatAmount(float64(p.Value), market.DefaultCurrency),
			demandString(market.DemandLevel(float64(p.Value), average)))
	}
}

func averageOf(records []market.StatisticsRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.AverageRate
	}
	return sum / float64(len(records))
}

func demandString(d market.Demand) string {
	switch d {
	case market.DemandHigh:
		return color.GreenString(string(d))
	case market.DemandMedium:
		return color.YellowString(string(d))
	default:
		return color.HiBlackString(string(d))
	}
}

func directionString(d market.Direction) string {
	switch d {
	case market.TrendUp:
		return color.GreenString("▲ up")
	case market.TrendDown:
		return color.RedString("▼ down")
	default:
		return color.HiBlackString("● stable")
	}
}

func growthString(pct int) string {
	if pct > 0 {
		return color.GreenString("+%d%%", pct)
	}
	return fmt.Sprintf("%d%%", pct)
}
