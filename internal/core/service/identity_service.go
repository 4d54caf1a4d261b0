package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/99minutos/template-backend/internal/core/domain"
	"github.com/99minutos/template-backend/internal/core/ports"
	"github.com/99minutos/template-backend/internal/metrics"
)

var tracer = otel.Tracer("identity")

const (
	defaultHashTimeout    = 5 * time.Second
	defaultPersistTimeout = 5 * time.Second
)

// IdentityOptions tunes the identity service.
type IdentityOptions struct {
	HashTimeout    time.Duration
	PersistTimeout time.Duration
	// DummyDigest is verified when the username is unknown so that both paths
	// cost one bcrypt comparison.
	DummyDigest string
}

// IdentityService creates and authenticates users. It holds no mutable state.
type IdentityService struct {
	repo    ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.AttemptLimiter
	opts    IdentityOptions
	log     zerolog.Logger
}

func NewIdentityService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	limiter ports.AttemptLimiter,
	opts IdentityOptions,
	log zerolog.Logger,
) *IdentityService {
	if opts.HashTimeout <= 0 {
		opts.HashTimeout = defaultHashTimeout
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = defaultPersistTimeout
	}
	return &IdentityService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		opts:    opts,
		log:     log,
	}
}

// CreateUser hashes the candidate's plaintext password and persists the user.
// Nothing is persisted when hashing fails. The caller's candidate is not modified.
func (s *IdentityService) CreateUser(ctx context.Context, candidate *domain.User) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "IdentityService.CreateUser")
	defer span.End()

	if candidate == nil || strings.TrimSpace(candidate.Username) == "" || candidate.Password == "" ||
		len(candidate.Password) > domain.MaxPasswordBytes {
		return nil, fail(span, domain.ErrInvalidUser)
	}
	span.SetAttributes(attribute.String("user.username", candidate.Username))

	user := candidate.Clone()
	if user.Status == "" {
		user.Status = domain.StatusActive
	}
	if user.Source == "" {
		user.Source = domain.SourceInternal
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	hashCtx, cancel := context.WithTimeout(ctx, s.opts.HashTimeout)
	digest, err := s.hasher.Hash(hashCtx, user.Password)
	cancel()
	if err != nil {
		if !errors.Is(err, domain.ErrHashing) {
			err = fmt.Errorf("%w: %w", domain.ErrHashing, err)
		}
		return nil, fail(span, err)
	}
	user.Password = digest

	persistCtx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	defer cancel()

	created, err := s.repo.Create(persistCtx, user)
	if err != nil {
		if !errors.Is(err, domain.ErrPersistence) {
			err = fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		return nil, fail(span, err)
	}

	metrics.UsersCreatedTotal.Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(created.ID)))
	s.log.Info().Uint64("user_id", created.ID).Str("username", created.Username).Msg("user created")
	return created, nil
}

// Authenticate checks creds and mints a bearer token. Unknown users, wrong
// passwords and users that may not log in all yield domain.ErrInvalidCredentials.
func (s *IdentityService) Authenticate(ctx context.Context, creds domain.Credentials) (*domain.AuthenticationResult, error) {
	ctx, span := tracer.Start(ctx, "IdentityService.Authenticate")
	defer span.End()

	if creds.Username == "" || creds.Password == "" {
		metrics.AuthenticationsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, fail(span, domain.ErrInvalidCredentials)
	}
	span.SetAttributes(attribute.String("user.username", creds.Username))

	if s.blocked(ctx, creds.Username) {
		metrics.AuthenticationsTotal.WithLabelValues("blocked").Inc()
		return nil, fail(span, domain.ErrTooManyAttempts)
	}

	persistCtx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	user, err := s.repo.FindByUsername(persistCtx, creds.Username)
	cancel()
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		s.verify(ctx, creds.Password, s.opts.DummyDigest)
		return nil, s.rejected(ctx, span, creds.Username)
	case err != nil:
		metrics.AuthenticationsTotal.WithLabelValues("error").Inc()
		return nil, fail(span, fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}

	if !user.CanAuthenticate() {
		s.verify(ctx, creds.Password, s.opts.DummyDigest)
		return nil, s.rejected(ctx, span, creds.Username)
	}

	ok, err := s.verify(ctx, creds.Password, user.Password)
	switch {
	case errors.Is(err, domain.ErrMalformedDigest):
		s.log.Error().Err(err).Uint64("user_id", user.ID).Msg("stored password digest is malformed")
		return nil, s.rejected(ctx, span, creds.Username)
	case err != nil:
		metrics.AuthenticationsTotal.WithLabelValues("error").Inc()
		return nil, fail(span, err)
	case !ok:
		return nil, s.rejected(ctx, span, creds.Username)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, creds.Username); err != nil {
			s.log.Warn().Err(err).Msg("reset login attempts")
		}
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		metrics.AuthenticationsTotal.WithLabelValues("error").Inc()
		return nil, fail(span, fmt.Errorf("issue token: %w", err))
	}

	metrics.AuthenticationsTotal.WithLabelValues("success").Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	return &domain.AuthenticationResult{Token: token}, nil
}

func (s *IdentityService) verify(ctx context.Context, plaintext, digest string) (bool, error) {
	if digest == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.HashTimeout)
	defer cancel()
	return s.hasher.Verify(ctx, plaintext, digest)
}

func (s *IdentityService) blocked(ctx context.Context, username string) bool {
	if s.limiter == nil {
		return false
	}
	blocked, err := s.limiter.Blocked(ctx, username)
	if err != nil {
		s.log.Warn().Err(err).Msg("check login attempts")
		return false
	}
	return blocked
}

func (s *IdentityService) rejected(ctx context.Context, span trace.Span, username string) error {
	metrics.AuthenticationsTotal.WithLabelValues("invalid_credentials").Inc()
	if s.limiter != nil {
		if err := s.limiter.RecordFailure(ctx, username); err != nil {
			s.log.Warn().Err(err).Msg("record login failure")
		}
	}
	return fail(span, domain.ErrInvalidCredentials)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
