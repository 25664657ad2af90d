package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/registration-service/internal/auth"
	"github.com/spec-kit/registration-service/internal/config"
	"github.com/spec-kit/registration-service/internal/domain"
	"github.com/spec-kit/registration-service/internal/events"
	"github.com/spec-kit/registration-service/internal/repository"
	apperrors "github.com/spec-kit/registration-service/pkg/util"
)

const memberIDAttempts = 3

// AuthService coordinates registration, login and account verification.
// Verification is where a member id is minted and the one-off membership
// ticket is created.
type AuthService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	sequence   repository.MembershipSequence
	dispatcher events.Dispatcher
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	prefix     string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	Sequence   repository.MembershipSequence
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tickets:    deps.TicketRepo,
		sequence:   deps.Sequence,
		dispatcher: deps.Dispatcher,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		prefix:     cfg.Membership.Prefix,
	}
}

// Register creates a new unverified account.
func (s *AuthService) Register(ctx context.Context, name, email, password, phone string, role domain.Role) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if role == "" {
		role = domain.RoleUser
	}
	if role == domain.RoleAdmin {
		return nil, "", time.Time{}, apperrors.NewForbidden("admin accounts cannot self-register")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	user := &domain.User{
		Name:              strings.TrimSpace(name),
		Email:             email,
		PasswordHash:      hash,
		Phone:             strings.TrimSpace(phone),
		Role:              role,
		ApplicationStatus: domain.ApplicationStatusPending,
		Active:            true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates an account.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if !user.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// VerifyAccount marks the account verified, mints its immutable member id
// and creates the zero-price membership ticket. Both are one-shot: a
// second call fails with a conflict.
func (s *AuthService) VerifyAccount(ctx context.Context, userID string) (*domain.User, *domain.Ticket, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("user", nil)
		}
		return nil, nil, err
	}
	if user.Verified {
		return nil, nil, apperrors.NewConflict("account already verified", nil)
	}

	year := time.Now().Year()
	seq, err := s.sequence.Next(ctx, year)
	if err != nil {
		return nil, nil, err
	}

	ticket := &domain.Ticket{
		TicketNumber:      fmt.Sprintf("%s-%d-%05d", s.prefix, year, seq),
		UserID:            user.ID,
		QRCode:            uuid.NewString(),
		Status:            domain.TicketStatusConfirmed,
		ApplicationStatus: domain.ApplicationStatusPending,
		RegistrationData: domain.RegistrationData{
			Name:  user.Name,
			Email: user.Email,
			Phone: user.Phone,
		},
	}
	if err := s.tickets.CreateMembership(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrMembershipExists) {
			return nil, nil, apperrors.NewConflict("membership ticket already exists", nil)
		}
		return nil, nil, err
	}

	if err := s.assignMemberID(ctx, user, year); err != nil {
		// ticket exists but the user record is stale; surfaced for
		// out-of-band reconciliation
		s.logger.Error("member id assignment failed after membership ticket creation",
			zap.String("user_id", user.ID), zap.Error(err))
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMembershipCreated,
		TicketID: ticket.ID,
		ActorID:  user.ID,
		Payload: events.MembershipCreatedPayload{
			UserID:       user.ID,
			MemberID:     *user.MemberID,
			TicketNumber: ticket.TicketNumber,
		},
	})
	return user, ticket, nil
}

// assignMemberID writes the member id with a bounded retry; the unique
// index turns the documented collision risk into a retryable error.
func (s *AuthService) assignMemberID(ctx context.Context, user *domain.User, year int) error {
	var lastErr error
	for attempt := 0; attempt < memberIDAttempts; attempt++ {
		memberID := fmt.Sprintf("%s-%d-%05d", s.prefix, year, rand.Intn(90000)+10000)
		user.MemberID = &memberID
		user.Verified = true
		if err := s.users.Update(ctx, user); err != nil {
			if repository.IsUniqueViolation(err) {
				lastErr = err
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("member id collisions exhausted retries: %w", lastErr)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
