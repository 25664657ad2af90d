package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/config"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
)

func newAuthService(fx *fixture) *AuthService {
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 60,
			BcryptCost:            4,
		},
		Membership: config.MembershipConfig{Prefix: "FSH"},
	}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo:   &fakeUserRepo{fx: fx},
		TicketRepo: &fakeTicketRepo{fx: fx},
		Sequence:   &fakeSequence{fx: fx},
		Dispatcher: &recordingDispatcher{fx: fx},
		Logger:     zap.NewNop(),
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an unverified pending account", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)

		user, token, exp, err := svc.Register(ctx, "Jane Doe", "Jane@Example.com", "s3cret-pw", "+2511234567", domain.RoleModel)
		require.NoError(t, err)

		assert.Equal(t, "jane@example.com", user.Email)
		assert.Equal(t, domain.RoleModel, user.Role)
		assert.Equal(t, domain.ApplicationStatusPending, user.ApplicationStatus)
		assert.False(t, user.Verified)
		assert.Nil(t, user.MemberID)
		assert.NotEmpty(t, token)
		assert.True(t, exp.After(time.Now()))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)

		_, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "s3cret-pw", "", domain.RoleUser)
		require.NoError(t, err)
		_, _, _, err = svc.Register(ctx, "Other", "JANE@example.com", "another-pw", "", domain.RoleUser)
		requireDomainCode(t, err, "CONFLICT")
	})

	t.Run("admin cannot self-register", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)

		_, _, _, err := svc.Register(ctx, "Mallory", "mallory@example.com", "s3cret-pw", "", domain.RoleAdmin)
		requireDomainCode(t, err, "FORBIDDEN")
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	fx := newFixture()
	svc := newAuthService(fx)

	_, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "s3cret-pw", "", domain.RoleUser)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		user, token, _, err := svc.Login(ctx, "jane@example.com", "s3cret-pw")
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", user.Email)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "jane@example.com", "wrong")
		requireDomainCode(t, err, "UNAUTHORIZED")
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, _, err := svc.Login(ctx, "nobody@example.com", "s3cret-pw")
		requireDomainCode(t, err, "UNAUTHORIZED")
	})

	t.Run("deactivated account", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)
		user, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "s3cret-pw", "", domain.RoleUser)
		require.NoError(t, err)
		fx.users[user.ID].Active = false

		_, _, _, err = svc.Login(ctx, "jane@example.com", "s3cret-pw")
		requireDomainCode(t, err, "UNAUTHORIZED")
	})
}

func TestVerifyAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("mints member id and membership ticket", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)
		registered, _, _, err := svc.Register(ctx, "Jane Doe", "jane@example.com", "s3cret-pw", "+2511234567", domain.RoleModel)
		require.NoError(t, err)

		user, ticket, err := svc.VerifyAccount(ctx, registered.ID)
		require.NoError(t, err)

		year := time.Now().Year()
		assert.True(t, user.Verified)
		require.NotNil(t, user.MemberID)
		assert.Regexp(t, regexp.MustCompile(fmt.Sprintf(`^FSH-%d-\d{5}$`, year)), *user.MemberID)

		assert.Equal(t, fmt.Sprintf("FSH-%d-00001", year), ticket.TicketNumber)
		assert.Nil(t, ticket.EventID)
		assert.True(t, ticket.IsMembership())
		assert.Zero(t, ticket.Price)
		assert.Equal(t, domain.ApplicationStatusPending, ticket.ApplicationStatus)
		// phase 1 fields seeded from the account
		assert.Equal(t, "Jane Doe", ticket.RegistrationData.Name)
		assert.Equal(t, "jane@example.com", ticket.RegistrationData.Email)
		assert.Equal(t, []events.EventType{events.EventMembershipCreated}, fx.publishedTypes())
	})

	t.Run("second verification conflicts", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)
		registered, _, _, err := svc.Register(ctx, "Jane", "jane@example.com", "s3cret-pw", "", domain.RoleUser)
		require.NoError(t, err)

		_, _, err = svc.VerifyAccount(ctx, registered.ID)
		require.NoError(t, err)
		_, _, err = svc.VerifyAccount(ctx, registered.ID)
		requireDomainCode(t, err, "CONFLICT")
	})

	t.Run("membership numbers are sequential", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)
		year := time.Now().Year()

		for i := 1; i <= 3; i++ {
			registered, _, _, err := svc.Register(ctx, "User", fmt.Sprintf("user%d@example.com", i), "s3cret-pw", "", domain.RoleUser)
			require.NoError(t, err)
			_, ticket, err := svc.VerifyAccount(ctx, registered.ID)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("FSH-%d-%05d", year, i), ticket.TicketNumber)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		fx := newFixture()
		svc := newAuthService(fx)

		_, _, err := svc.VerifyAccount(ctx, "missing")
		requireDomainCode(t, err, "NOT_FOUND")
	})
}
