package users_test

import (
	"testing"

	apperrors "github.com/jrsteele09/qeem-client/internal/errors"
	"github.com/jrsteele09/qeem-client/internal/utils"
	"github.com/jrsteele09/qeem-client/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Password123", wantErr: false},
		{name: "too short", password: "Pa1", wantErr: true},
		{name: "no upper", password: "password123", wantErr: true},
		{name: "no lower", password: "PASSWORD123", wantErr: true},
		{name: "no digit", password: "Passwordxyz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := users.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRegistration(t *testing.T) {
	valid := users.Registration{Email: "dina@example.com", Password: "Password123", FirstName: "Dina", LastName: "Farouk"}
	require.NoError(t, users.ValidateRegistration(valid))

	tests := []struct {
		name  string
		edit  func(r *users.Registration)
		field string
	}{
		{name: "missing email", edit: func(r *users.Registration) { r.Email = "" }, field: "email"},
		{name: "bad email", edit: func(r *users.Registration) { r.Email = "not-an-email" }, field: "email"},
		{name: "missing first name", edit: func(r *users.Registration) { r.FirstName = " " }, field: "first_name"},
		{name: "missing last name", edit: func(r *users.Registration) { r.LastName = "" }, field: "last_name"},
		{name: "weak password", edit: func(r *users.Registration) { r.Password = "weak" }, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.edit(&r)
			err := users.ValidateRegistration(r)

			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := users.HashPassword("Password123")
	require.NoError(t, err)
	assert.True(t, users.CheckPasswordHash("Password123", hash))
	assert.False(t, users.CheckPasswordHash("Password124", hash))
}

func TestUser_IdentityID(t *testing.T) {
	var nilUser *users.User
	assert.Empty(t, nilUser.IdentityID())
	assert.Empty(t, (&users.User{}).IdentityID())
	assert.Equal(t, "17", (&users.User{ID: 17}).IdentityID())
}

func TestProfileUpdate_Validate(t *testing.T) {
	require.NoError(t, users.ProfileUpdate{}.Validate())
	require.NoError(t, users.ProfileUpdate{
		PreferredCurrency: utils.Ptr("USD"),
		PortfolioURL:      utils.Ptr("https://dina.dev"),
		ExperienceYears:   utils.Ptr(4),
	}.Validate())

	tests := []struct {
		name   string
		update users.ProfileUpdate
		field  string
	}{
		{name: "currency", update: users.ProfileUpdate{PreferredCurrency: utils.Ptr("GBP")}, field: "preferred_currency"},
		{name: "experience", update: users.ProfileUpdate{ExperienceYears: utils.Ptr(-1)}, field: "experience_years"},
		{name: "hourly", update: users.ProfileUpdate{HourlyRatePreference: utils.Ptr(-5.0)}, field: "hourly_rate_preference"},
		{name: "linkedin", update: users.ProfileUpdate{LinkedInURL: utils.Ptr("linkedin")}, field: "linkedin_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *apperrors.ValidationError
			require.ErrorAs(t, tt.update.Validate(), &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestProfileUpdate_Apply(t *testing.T) {
	p := users.Profile{FirstName: "Dina", City: "Cairo", Skills: "go, react ,, sql"}
	got := users.ProfileUpdate{City: utils.Ptr("Giza"), ExperienceYears: utils.Ptr(3)}.Apply(p)

	assert.Equal(t, "Dina", got.FirstName)
	assert.Equal(t, "Giza", got.City)
	assert.Equal(t, 3, *got.ExperienceYears)
	assert.Equal(t, []string{"go", "react", "sql"}, got.SkillList())
	assert.Equal(t, "Dina", got.DisplayName())
	assert.Equal(t, "Not provided", (&users.Profile{}).DisplayName())
}
