package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/jrsteele09/qeem-client/market"
	"github.com/jrsteele09/qeem-client/rates"
	"github.com/spf13/cobra"
)

var rateRequest = rates.Request{
	ProjectType:       rates.WebDevelopment,
	ProjectComplexity: rates.Moderate,
	EstimatedHours:    40,
	Location:          "cairo",
	ClientRegion:      rates.RegionEgypt,
	Urgency:           rates.UrgencyNormal,
}

var rateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Calculate project rates",
}

var rateCalcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate minimum, competitive and premium rates for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := rateRequest
		if err := req.Validate(); err != nil {
			return err
		}
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		resp, err := current.rates.Calculate(cmd.Context(), req)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\n", color.HiBlackString("Minimum"), formatAmount(resp.MinimumRate, resp.Currency))
		fmt.Fprintf(w, "%s\t%s\n", color.GreenString("Competitive"), formatAmount(resp.CompetitiveRate, resp.Currency))
		fmt.Fprintf(w, "%s\t%s\n", color.CyanString("Premium"), formatAmount(resp.PremiumRate, resp.Currency))
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nMethod: %s\n", resp.Method)
		if resp.Rationale != "" {
			fmt.Println(resp.Rationale)
		}
		return nil
	},
}

var rateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List your past calculations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		history, err := current.rates.History(cmd.Context())
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("No calculations yet")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tPROJECT\tCOMPLEXITY\tHOURS\tCOMPETITIVE")
		for _, h := range history {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				h.CreatedAt.Local().Format("2006-01-02"),
				h.Request.ProjectType,
				h.Request.ProjectComplexity,
				h.Request.EstimatedHours,
				formatAmount(h.Response.CompetitiveRate, h.Response.Currency))
		}
		return w.Flush()
	},
}

func init() {
	f := rateCalcCmd.Flags()
	f.StringVar((*string)(&rateRequest.ProjectType), "project-type", string(rateRequest.ProjectType), fmt.Sprintf("Project type %v", rates.ProjectTypes))
	f.StringVar((*string)(&rateRequest.ProjectComplexity), "complexity", string(rateRequest.ProjectComplexity), fmt.Sprintf("Complexity %v", rates.Complexities))
	f.IntVar(&rateRequest.EstimatedHours, "hours", rateRequest.EstimatedHours, "Estimated hours")
	f.IntVar(&rateRequest.ExperienceYears, "experience-years", 0, "Years of experience")
	f.IntVar(&rateRequest.SkillsCount, "skills", 0, "Number of relevant skills")
	f.StringVar(&rateRequest.Location, "location", rateRequest.Location, "Your location")
	f.StringVar((*string)(&rateRequest.ClientRegion), "client-region", string(rateRequest.ClientRegion), fmt.Sprintf("Client region %v", rates.ClientRegions))
	f.StringVar((*string)(&rateRequest.Urgency), "urgency", string(rateRequest.Urgency), fmt.Sprintf("Urgency %v", rates.Urgencies))

	rateCmd.AddCommand(rateCalcCmd, rateHistoryCmd)
	rootCmd.AddCommand(rateCmd)
}

// formatAmount renders an amount in the given currency, falling back to the
// plain number when the code is not a known currency.
func formatAmount(amount float64, code string) string {
	if code == "" {
		code = market.DefaultCurrency
	}
	s, err := market.FormatCurrency(amount, code)
	if err != nil {
		return fmt.Sprintf("%.0f %s", amount, code)
	}
	return s
}
