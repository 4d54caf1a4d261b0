package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/99minutos/template-backend/internal/core/domain"
)

// ── stubs ─────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	nextID    uint64
	createErr error
	findErr   error
	creates   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.nextID++
	stored := user.Clone()
	stored.ID = r.nextID
	r.users[stored.Username] = stored
	return stored.Clone(), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uint64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u.Clone(), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (r *stubUserRepo) SoftDelete(context.Context, uint64) error             { return nil }
func (r *stubUserRepo) UpdatePassword(context.Context, uint64, string) error { return nil }
func (r *stubUserRepo) Ping(context.Context) error                           { return nil }

// stubHasher produces "hashed:<plaintext>" digests.
type stubHasher struct {
	hashErr   error
	verifyErr error
	verified  []string
}

func (h *stubHasher) Hash(_ context.Context, plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (h *stubHasher) Verify(_ context.Context, plaintext, digest string) (bool, error) {
	h.verified = append(h.verified, digest)
	if h.verifyErr != nil {
		return false, h.verifyErr
	}
	if !strings.HasPrefix(digest, "hashed:") {
		return false, domain.ErrMalformedDigest
	}
	return digest == "hashed:"+plaintext, nil
}

type stubIssuer struct{ err error }

func (i stubIssuer) Issue(u *domain.User) (string, error) {
	if i.err != nil {
		return "", i.err
	}
	return "token-for-" + u.Username, nil
}

type stubLimiter struct {
	blocked  bool
	failures map[string]int
	resets   int
}

func newStubLimiter() *stubLimiter { return &stubLimiter{failures: map[string]int{}} }

func (l *stubLimiter) Blocked(context.Context, string) (bool, error) { return l.blocked, nil }
func (l *stubLimiter) RecordFailure(_ context.Context, username string) error {
	l.failures[username]++
	return nil
}
func (l *stubLimiter) Reset(context.Context, string) error { l.resets++; return nil }

type fixture struct {
	repo    *stubUserRepo
	hasher  *stubHasher
	limiter *stubLimiter
	svc     *IdentityService
}

func newFixture() *fixture {
	f := &fixture{repo: newStubUserRepo(), hasher: &stubHasher{}, limiter: newStubLimiter()}
	f.svc = NewIdentityService(f.repo, f.hasher, stubIssuer{}, f.limiter,
		IdentityOptions{DummyDigest: "hashed:dummy"}, zerolog.Nop())
	return f
}

func (f *fixture) seed(t *testing.T, u *domain.User) {
	t.Helper()
	if _, err := f.svc.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// ── CreateUser ────────────────────────────────────────────────────────────────

func TestIdentityService_CreateUser_Success(t *testing.T) {
	f := newFixture()
	candidate := &domain.User{Username: "alice", Password: "s3cret-pass", Email: "a@x.io"}

	user, err := f.svc.CreateUser(context.Background(), candidate)
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected an assigned id")
	}
	if user.Password != "hashed:s3cret-pass" {
		t.Fatalf("expected hashed password, got %q", user.Password)
	}
	if user.Status != domain.StatusActive || user.Source != domain.SourceInternal {
		t.Fatalf("unexpected defaults: %s %s", user.Status, user.Source)
	}
	if user.CreatedAt.IsZero() || !user.CreatedAt.Equal(user.UpdatedAt) {
		t.Fatalf("timestamps not set")
	}
	if candidate.Password != "s3cret-pass" {
		t.Fatalf("candidate was mutated")
	}
}

func TestIdentityService_CreateUser_Invalid(t *testing.T) {
	f := newFixture()

	tooLong := strings.Repeat("é", 37) // 37 runes, 74 bytes
	for _, u := range []*domain.User{nil, {Password: "x"}, {Username: "  ", Password: "x"}, {Username: "bob"}, {Username: "bob", Password: tooLong}} {
		if _, err := f.svc.CreateUser(context.Background(), u); !errors.Is(err, domain.ErrInvalidUser) {
			t.Fatalf("expected ErrInvalidUser for %+v, got %v", u, err)
		}
	}
	if f.repo.creates != 0 {
		t.Fatalf("repository must not be called")
	}
}

func TestIdentityService_CreateUser_HashFailureSkipsPersistence(t *testing.T) {
	f := newFixture()
	f.hasher.hashErr = errors.New("pool closed")

	_, err := f.svc.CreateUser(context.Background(), &domain.User{Username: "alice", Password: "pw"})
	if !errors.Is(err, domain.ErrHashing) {
		t.Fatalf("expected ErrHashing, got %v", err)
	}
	if f.repo.creates != 0 {
		t.Fatalf("persistence attempted after hashing failure")
	}
}

func TestIdentityService_CreateUser_Conflict(t *testing.T) {
	f := newFixture()
	f.seed(t, &domain.User{Username: "alice", Password: "pw"})

	_, err := f.svc.CreateUser(context.Background(), &domain.User{Username: "alice", Password: "pw2"})
	if !errors.Is(err, domain.ErrPersistence) || !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrPersistence and ErrUserExists, got %v", err)
	}
}

func TestIdentityService_CreateUser_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.createErr = errors.New("connection refused")

	_, err := f.svc.CreateUser(context.Background(), &domain.User{Username: "alice", Password: "pw"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("generic failure must not look like a conflict")
	}
}

// ── Authenticate ──────────────────────────────────────────────────────────────

func TestIdentityService_Authenticate_Success(t *testing.T) {
	f := newFixture()
	f.seed(t, &domain.User{Username: "alice", Password: "s3cret-pass"})

	res, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if res.Token != "token-for-alice" {
		t.Fatalf("unexpected token %q", res.Token)
	}
	if f.limiter.resets != 1 {
		t.Fatalf("expected limiter reset on success")
	}
}

func TestIdentityService_Authenticate_WrongPassword(t *testing.T) {
	f := newFixture()
	f.seed(t, &domain.User{Username: "alice", Password: "s3cret-pass"})

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "nope"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.limiter.failures["alice"] != 1 {
		t.Fatalf("expected failure to be recorded")
	}
}

func TestIdentityService_Authenticate_UnknownUserRunsDummyVerify(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "ghost", Password: "pw"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(f.hasher.verified) != 1 || f.hasher.verified[0] != "hashed:dummy" {
		t.Fatalf("expected one dummy verification, got %v", f.hasher.verified)
	}
}

func TestIdentityService_Authenticate_InactiveUser(t *testing.T) {
	f := newFixture()
	f.seed(t, &domain.User{Username: "gone", Password: "pw", Status: domain.StatusDeleted})
	f.seed(t, &domain.User{Username: "ext", Password: "pw", Source: "LDAP"})

	for _, name := range []string{"gone", "ext"} {
		_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: name, Password: "pw"})
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
}

func TestIdentityService_Authenticate_MalformedDigest(t *testing.T) {
	f := newFixture()
	f.repo.users["legacy"] = &domain.User{
		ID: 9, Username: "legacy", Password: "md5:abc",
		Status: domain.StatusActive, Source: domain.SourceInternal,
	}

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "legacy", Password: "pw"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIdentityService_Authenticate_Blocked(t *testing.T) {
	f := newFixture()
	f.seed(t, &domain.User{Username: "alice", Password: "pw"})
	f.limiter.blocked = true

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "pw"})
	if !errors.Is(err, domain.ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestIdentityService_Authenticate_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.findErr = errors.New("timeout")

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "pw"})
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestIdentityService_Authenticate_EmptyCredentials(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Authenticate(context.Background(), domain.Credentials{Username: "alice"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIdentityService_Authenticate_NilLimiter(t *testing.T) {
	repo := newStubUserRepo()
	svc := NewIdentityService(repo, &stubHasher{}, stubIssuer{}, nil, IdentityOptions{}, zerolog.Nop())
	if _, err := svc.CreateUser(context.Background(), &domain.User{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "bad"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), domain.Credentials{Username: "alice", Password: "pw"}); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}
