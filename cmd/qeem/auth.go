package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail    string
	loginPassword string

	registerFirstName string
	registerLastName  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		password, err := passwordIfEmpty(loginPassword, "Password: ")
		if err != nil {
			return err
		}

		user, err := current.client.Login(cmd.Context(), email, password)
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			return errors.New("invalid email or password")
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s Logged in as %s\n", color.GreenString("✓"), user.Email)
		if !user.IsVerified {
			fmt.Println(color.YellowString("Your email address is not verified yet."))
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logout without a restored session still clears whatever is stored.
		_, _ = current.client.Restore(cmd.Context())
		current.client.Logout(cmd.Context())
		fmt.Println("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := current.restore(cmd.Context())
		if err != nil {
			return err
		}
		printUser(user)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, err := promptIfEmpty(loginEmail, "Email: ")
		if err != nil {
			return err
		}
		first, err := promptIfEmpty(registerFirstName, "First name: ")
		if err != nil {
			return err
		}
		last, err := promptIfEmpty(registerLastName, "Last name: ")
		if err != nil {
			return err
		}
		password, err := passwordIfEmpty(loginPassword, "Password: ")
		if err != nil {
			return err
		}

		user, err := current.client.Register(cmd.Context(), users.Registration{
			Email:     email,
			Password:  password,
			FirstName: first,
			LastName:  last,
		})
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("an account for %s already exists", email)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%s Registered %s. Check your inbox for a verification link.\n", color.GreenString("✓"), user.Email)
		return nil
	},
}

var verifyEmailCmd = &cobra.Command{
	Use:   "verify-email <token>",
	Short: "Verify an email address with the emailed token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.client.VerifyEmail(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Email verified\n", color.GreenString("✓"))
		return nil
	},
}

var resendVerificationCmd = &cobra.Command{
	Use:   "resend-verification <email>",
	Short: "Send the verification email again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.client.ResendVerification(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Verification email sent")
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := current.client.Health(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("%s %s at %s\n", color.GreenString("●"), h.Status, h.Timestamp.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, registerCmd} {
		cmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
		cmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVar(&registerFirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerLastName, "last-name", "", "Last name")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, verifyEmailCmd, resendVerificationCmd, healthCmd)
}

func printUser(u *users.User) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", bold("Email:"), u.Email)
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		fmt.Printf("%s %s\n", bold("Name:"), name)
	}
	verified := color.GreenString("yes")
	if !u.IsVerified {
		verified = color.YellowString("no")
	}
	fmt.Printf("%s %s\n", bold("Verified:"), verified)
	fmt.Printf("%s %s\n", bold("Member since:"), u.CreatedAt.Local().Format("2006-01-02"))
}

var stdin = bufio.NewReader(os.Stdin)

func promptIfEmpty(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Print(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func passwordIfEmpty(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptIfEmpty("", prompt)
	}
	fmt.Print(prompt)
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
