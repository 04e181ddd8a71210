package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/jrsteele09/qeem-client/internal/utils"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your freelancer profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		p, err := current.users.Profile(cmd.Context())
		if err != nil {
			return err
		}
		printProfile(p)
		return nil
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the profile fields given as flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		update := profileUpdateFromFlags(cmd)
		if err := update.Validate(); err != nil {
			return err
		}
		if _, err := current.restore(cmd.Context()); err != nil {
			return err
		}
		p, err := current.users.UpdateProfile(cmd.Context(), update)
		if err != nil {
			return err
		}
		fmt.Printf("%s Profile updated\n", color.GreenString("✓"))
		printProfile(p)
		return nil
	},
}

var profileStringFlags = []struct {
	name  string
	usage string
	field func(*users.ProfileUpdate) **string
}{
	{"first-name", "First name", func(u *users.ProfileUpdate) **string { return &u.FirstName }},
	{"last-name", "Last name", func(u *users.ProfileUpdate) **string { return &u.LastName }},
	{"phone", "Phone number", func(u *users.ProfileUpdate) **string { return &u.Phone }},
	{"bio", "Short bio", func(u *users.ProfileUpdate) **string { return &u.Bio }},
	{"profession", "Profession", func(u *users.ProfileUpdate) **string { return &u.Profession }},
	{"skills", "Comma separated skills", func(u *users.ProfileUpdate) **string { return &u.Skills }},
	{"portfolio-url", "Portfolio URL", func(u *users.ProfileUpdate) **string { return &u.PortfolioURL }},
	{"linkedin-url", "LinkedIn URL", func(u *users.ProfileUpdate) **string { return &u.LinkedInURL }},
	{"city", "City", func(u *users.ProfileUpdate) **string { return &u.City }},
	{"country", "Country", func(u *users.ProfileUpdate) **string { return &u.Country }},
	{"currency", "Preferred currency (EGP, USD, EUR)", func(u *users.ProfileUpdate) **string { return &u.PreferredCurrency }},
}

func init() {
	for _, f := range profileStringFlags {
		profileUpdateCmd.Flags().String(f.name, "", f.usage)
	}
	profileUpdateCmd.Flags().Int("experience-years", 0, "Years of experience")
	profileUpdateCmd.Flags().Float64("hourly-rate", 0, "Preferred hourly rate")

	profileCmd.AddCommand(profileShowCmd, profileUpdateCmd)
	rootCmd.AddCommand(profileCmd)
}

// profileUpdateFromFlags sets only the fields whose flags were given.
func profileUpdateFromFlags(cmd *cobra.Command) users.ProfileUpdate {
	var u users.ProfileUpdate
	flags := cmd.Flags()
	for _, f := range profileStringFlags {
		if flags.Changed(f.name) {
			v, _ := flags.GetString(f.name)
			*f.field(&u) = utils.Ptr(v)
		}
	}
	if flags.Changed("experience-years") {
		v, _ := flags.GetInt("experience-years")
		u.ExperienceYears = utils.Ptr(v)
	}
	if flags.Changed("hourly-rate") {
		v, _ := flags.GetFloat64("hourly-rate")
		u.HourlyRatePreference = utils.Ptr(v)
	}
	return u
}

func printProfile(p *users.Profile) {
	bold := color.New(color.Bold).SprintFunc()
	row := func(label, value string) {
		if value == "" {
			value = color.HiBlackString("-")
		}
		fmt.Printf("%-16s %s\n", bold(label), value)
	}
	row("Name", p.DisplayName())
	row("Profession", p.Profession)
	row("Phone", p.Phone)
	row("Location", strings.Trim(p.City+", "+p.Country, ", "))
	if p.ExperienceYears != nil {
		row("Experience", fmt.Sprintf("%d years", *p.ExperienceYears))
	}
	row("Skills", strings.Join(p.SkillList(), ", "))
	row("Portfolio", p.PortfolioURL)
	row("LinkedIn", p.LinkedInURL)
	row("Currency", p.PreferredCurrency)
	if p.HourlyRatePreference != nil {
		row("Hourly rate", formatAmount(*p.HourlyRatePreference, p.PreferredCurrency))
	}
	if p.Bio != "" {
		fmt.Println()
		fmt.Println(p.Bio)
	}
}
