package services

import (
	"context"
	"testing"

	"renteasy/internal/adapters/persistence/models"
	"renteasy/internal/core/domain"
	"renteasy/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenFixture struct {
	svc    *TokenService
	users  *fakeUserRepo
	agents *fakeAgentRepo
}

func newTokenFixture() *tokenFixture {
	users := newFakeUserRepo()
	agents := newFakeAgentRepo()
	return &tokenFixture{
		svc:    NewTokenService(users, agents, testConfig()),
		users:  users,
		agents: agents,
	}
}

func (f *tokenFixture) seedAgent(t *testing.T, status string, profileActive bool) *models.User {
	t.Helper()
	agent := &models.User{
		Email:         "agent@example.com",
		FullName:      "Agent Smith",
		Role:          models.RoleAgent,
		AccountStatus: status,
		EmailVerified: true,
	}
	require.NoError(t, f.users.Create(context.Background(), agent))
	require.NoError(t, f.agents.Create(context.Background(), &models.AgentProfile{
		UserID:   agent.ID,
		IsActive: profileActive,
	}))
	return agent
}

func TestRefreshAccessMintsNewAccessToken(t *testing.T) {
	f := newTokenFixture()
	agent := f.seedAgent(t, models.StatusActive, true)

	pair, err := f.svc.IssuePair(agent)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	accessToken, expiresIn, err := f.svc.RefreshAccess(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.Equal(t, 15*60, expiresIn)

	// The minted token is a valid access token for the same user
	claims, err := jwt.ValidateAccessToken(accessToken, testConfig().JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, claims.UserID)
}

func TestRefreshAccessRejectsAccessToken(t *testing.T) {
	f := newTokenFixture()
	agent := f.seedAgent(t, models.StatusActive, true)

	pair, err := f.svc.IssuePair(agent)
	require.NoError(t, err)

	// An access token is signed with a different secret and must not pass as
	// a refresh token
	_, _, err = f.svc.RefreshAccess(context.Background(), pair.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshAccessGarbageToken(t *testing.T) {
	f := newTokenFixture()
	_, _, err := f.svc.RefreshAccess(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshAccessUnknownUser(t *testing.T) {
	f := newTokenFixture()

	token, err := jwt.GenerateRefreshToken(999, testConfig().JWT.RefreshSecret, 7)
	require.NoError(t, err)

	_, _, err = f.svc.RefreshAccess(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshAccessSuspendedAccount(t *testing.T) {
	f := newTokenFixture()
	agent := f.seedAgent(t, models.StatusActive, true)

	pair, err := f.svc.IssuePair(agent)
	require.NoError(t, err)

	require.NoError(t, f.users.UpdateFields(context.Background(), agent.ID, map[string]interface{}{
		"account_status": models.StatusSuspended,
	}))

	_, _, err = f.svc.RefreshAccess(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
}

func TestRefreshAccessInactiveAccount(t *testing.T) {
	f := newTokenFixture()
	agent := f.seedAgent(t, models.StatusActive, true)

	pair, err := f.svc.IssuePair(agent)
	require.NoError(t, err)

	require.NoError(t, f.users.UpdateFields(context.Background(), agent.ID, map[string]interface{}{
		"account_status": models.StatusInactive,
	}))

	_, _, err = f.svc.RefreshAccess(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestRefreshAccessDeactivatedAgentProfile(t *testing.T) {
	f := newTokenFixture()
	agent := f.seedAgent(t, models.StatusActive, true)

	pair, err := f.svc.IssuePair(agent)
	require.NoError(t, err)

	// The agent was deactivated after the pair was issued; the refresh token
	// is still cryptographically valid but must stop working
	profile, err := f.agents.GetByUserID(context.Background(), agent.ID)
	require.NoError(t, err)
	profile.IsActive = false
	require.NoError(t, f.agents.Update(context.Background(), profile))

	_, _, err = f.svc.RefreshAccess(context.Background(), pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAccountInactive)
}

func TestRefreshAccessRenterSkipsProfileCheck(t *testing.T) {
	f := newTokenFixture()
	renter := &models.User{
		Email:         "renter@example.com",
		FullName:      "Rita Renter",
		Role:          models.RoleRenter,
		AccountStatus: models.StatusActive,
		EmailVerified: true,
	}
	require.NoError(t, f.users.Create(context.Background(), renter))

	pair, err := f.svc.IssuePair(renter)
	require.NoError(t, err)

	accessToken, _, err := f.svc.RefreshAccess(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
}
