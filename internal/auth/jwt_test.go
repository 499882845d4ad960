package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cwbutler6/greekdash/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 1)
	user := &models.User{ID: uuid.New(), Email: "tre@example.com", FullName: "Tre Jones"}
	memberships := []models.MembershipSummary{
		{MembershipID: uuid.New(), ChapterID: uuid.New(), ChapterSlug: "sigma", Role: models.RoleAdmin},
	}

	token, err := svc.Generate(user, memberships)
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Len(t, claims.Memberships, 1)
	require.Equal(t, "sigma", claims.Memberships[0].ChapterSlug)
	require.Equal(t, models.RoleAdmin, claims.Memberships[0].Role)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", 1).Generate(&models.User{ID: uuid.New()}, nil)
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", 1).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("secret", 1).Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
