package users

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// API paths served for users
const (
	ProfilePath = "/api/v1/users/profile"
)

// User is the identity returned by /api/v1/auth/me and /api/v1/auth/register
type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdentityID is the key derived caches are scoped by.
func (u *User) IdentityID() string {
	if u == nil || u.ID == 0 {
		return ""
	}
	return fmt.Sprintf("%d", u.ID)
}

// Registration is the body of /api/v1/auth/register
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Currencies accepted as a profile preference
const (
	CurrencyEGP = "EGP"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// Profile is the freelancer profile behind /api/v1/users/profile
type Profile struct {
	ID                   int64    `json:"id,omitempty"`
	UserID               int64    `json:"user_id,omitempty"`
	FirstName            string   `json:"first_name,omitempty"`
	LastName             string   `json:"last_name,omitempty"`
	Phone                string   `json:"phone,omitempty"`
	Bio                  string   `json:"bio,omitempty"`
	Profession           string   `json:"profession,omitempty"`
	ExperienceYears      *int     `json:"experience_years,omitempty"`
	Skills               string   `json:"skills,omitempty"` // Comma separated, as entered
	PortfolioURL         string   `json:"portfolio_url,omitempty"`
	LinkedInURL          string   `json:"linkedin_url,omitempty"`
	City                 string   `json:"city,omitempty"`
	Country              string   `json:"country,omitempty"`
	PreferredCurrency    string   `json:"preferred_currency,omitempty"`
	HourlyRatePreference *float64 `json:"hourly_rate_preference,omitempty"`
}

// DisplayName joins first and last name.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name == "" {
		return "Not provided"
	}
	return name
}

// SkillList splits the comma separated skills field.
func (p *Profile) SkillList() []string {
	out := make([]string, 0)
	for _, s := range strings.Split(p.Skills, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ProfileUpdate is a partial update: nil fields are left unchanged by the API.
type ProfileUpdate struct {
	FirstName            *string  `json:"first_name,omitempty"`
	LastName             *string  `json:"last_name,omitempty"`
	Phone                *string  `json:"phone,omitempty"`
	Bio                  *string  `json:"bio,omitempty"`
	Profession           *string  `json:"profession,omitempty"`
	ExperienceYears      *int     `json:"experience_years,omitempty"`
	Skills               *string  `json:"skills,omitempty"`
	PortfolioURL         *string  `json:"portfolio_url,omitempty"`
	LinkedInURL          *string  `json:"linkedin_url,omitempty"`
	City                 *string  `json:"city,omitempty"`
	Country              *string  `json:"country,omitempty"`
	PreferredCurrency    *string  `json:"preferred_currency,omitempty"`
	HourlyRatePreference *float64 `json:"hourly_rate_preference,omitempty"`
}

// Validate checks the fields that are set.
func (u ProfileUpdate) Validate() error {
	if u.ExperienceYears != nil && (*u.ExperienceYears < 0 || *u.ExperienceYears > 60) {
		return apperrors.NewValidationError("experience_years", "must be between 0 and 60")
	}
	if u.HourlyRatePreference != nil && *u.HourlyRatePreference < 0 {
		return apperrors.NewValidationError("hourly_rate_preference", "must not be negative")
	}
	if u.PreferredCurrency != nil {
		switch *u.PreferredCurrency {
		case CurrencyEGP, CurrencyUSD, CurrencyEUR:
		default:
			return apperrors.NewValidationError("preferred_currency", "must be one of EGP, USD, EUR")
		}
	}
	for field, v := range map[string]*string{"portfolio_url": u.PortfolioURL, "linkedin_url": u.LinkedInURL} {
		if v == nil || *v == "" {
			continue
		}
		if parsed, err := url.ParseRequestURI(*v); err != nil || parsed.Host == "" {
			return apperrors.NewValidationError(field, "must be a valid URL")
		}
	}
	return nil
}

// Apply returns p with the set fields of u applied.
func (u ProfileUpdate) Apply(p Profile) Profile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.FirstName, u.FirstName)
	set(&p.LastName, u.LastName)
	set(&p.Phone, u.Phone)
	set(&p.Bio, u.Bio)
	set(&p.Profession, u.Profession)
	set(&p.Skills, u.Skills)
	set(&p.PortfolioURL, u.PortfolioURL)
	set(&p.LinkedInURL, u.LinkedInURL)
	set(&p.City, u.City)
	set(&p.Country, u.Country)
	set(&p.PreferredCurrency, u.PreferredCurrency)
	if u.ExperienceYears != nil {
		p.ExperienceYears = u.ExperienceYears
	}
	if u.HourlyRatePreference != nil {
		p.HourlyRatePreference = u.HourlyRatePreference
	}
	return p
}

// ValidateRegistration checks a registration before it is sent.
func ValidateRegistration(r Registration) error {
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return apperrors.NewValidationError("email", "must be a valid address")
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return apperrors.NewValidationError("first_name", "is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return apperrors.NewValidationError("last_name", "is required")
	}
	if err := ValidatePasswordStrength(r.Password); err != nil {
		return apperrors.NewValidationError("password", err.Error())
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
