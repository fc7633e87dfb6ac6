package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"authgate/internal/models"
	"authgate/internal/repository"
)

// The fakes below are plain in-memory stores satisfying the consumer
// interfaces in deps.go. They run every statement in autocommit mode;
// fakeTx provides the transaction boundary as a straight passthrough.

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	mu         sync.Mutex
	fail       bool
	otpSends   []int64
	alertSends []int64
	lastCode   string
}

func (n *fakeNotifier) SendOTP(_ context.Context, chatID int64, code string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.otpSends = append(n.otpSends, chatID)
	n.lastCode = code
	return true
}

func (n *fakeNotifier) SendLoginAlert(_ context.Context, chatID int64, _, _ string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return false
	}
	n.alertSends = append(n.alertSends, chatID)
	return true
}

type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]models.User)}
}

func (s *fakeUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == user.PhoneNumber {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = time.Now()
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByPhone(_ context.Context, phone string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.PhoneNumber == phone {
			return u, nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (s *fakeUserStore) LinkTelegram(_ context.Context, id string, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if u.TelegramID == nil {
		u.TelegramID = &chatID
		s.users[id] = u
	}
	return nil
}

func (s *fakeUserStore) TouchLastLogin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) Update(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserStore) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	s.users[id] = u
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeUserStore) List(_ context.Context, params repository.ListUsersParams) ([]models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		if params.Search != "" && !strings.Contains(u.PhoneNumber, params.Search) {
			continue
		}
		if params.IsActive != nil && u.IsActive != *params.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if params.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[params.Offset:]
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, total, nil
}

type fakeOTPStore struct {
	mu    sync.Mutex
	seq   int
	codes map[string]models.OTPCode
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{codes: make(map[string]models.OTPCode)}
}

func (s *fakeOTPStore) Create(_ context.Context, otp models.OTPCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	otp.CreatedAt = time.Now().Add(time.Duration(s.seq) * time.Millisecond)
	s.codes[otp.ID] = otp
	return nil
}

func (s *fakeOTPStore) SupersedeActive(_ context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.codes {
		if c.PhoneNumber == phone && c.Status == models.OTPStatusIssued {
			c.Status = models.OTPStatusSuperseded
			s.codes[id] = c
		}
	}
	return nil
}

func (s *fakeOTPStore) FindActive(_ context.Context, phone string, now time.Time) (models.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best models.OTPCode
	found := false
	for _, c := range s.codes {
		if c.PhoneNumber != phone || c.Status != models.OTPStatusIssued || !c.ExpiresAt.After(now) {
			continue
		}
		if !found || c.CreatedAt.After(best.CreatedAt) {
			best = c
			found = true
		}
	}
	if !found {
		return models.OTPCode{}, repository.ErrNotFound
	}
	return best, nil
}

func (s *fakeOTPStore) RecordAttempt(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	c.Attempts++
	s.codes[id] = c
	return c.Attempts, nil
}

func (s *fakeOTPStore) Finish(_ context.Context, id string, status models.OTPStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok || c.Status != models.OTPStatusIssued {
		return false, nil
	}
	c.Status = status
	s.codes[id] = c
	return true, nil
}

func (s *fakeOTPStore) get(id string) models.OTPCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[id]
}

type fakeRefreshTokenStore struct {
	mu     sync.Mutex
	tokens map[string]models.RefreshToken
}

func newFakeRefreshTokenStore() *fakeRefreshTokenStore {
	return &fakeRefreshTokenStore{tokens: make(map[string]models.RefreshToken)}
}

func (s *fakeRefreshTokenStore) Create(_ context.Context, token models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = token
	return nil
}

func (s *fakeRefreshTokenStore) FindByHash(_ context.Context, tokenHash string) (models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.TokenHash == tokenHash && !t.Revoked {
			return t, nil
		}
	}
	return models.RefreshToken{}, repository.ErrNotFound
}

func (s *fakeRefreshTokenStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[id]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	s.tokens[id] = t
	return true, nil
}

func (s *fakeRefreshTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.UserID == userID {
			t.Revoked = true
			s.tokens[id] = t
		}
	}
	return nil
}

func (s *fakeRefreshTokenStore) DeleteForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, id)
		}
	}
	return nil
}

func (s *fakeRefreshTokenStore) activeCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

type fakeAdminStore struct {
	mu       sync.Mutex
	admins   map[string]models.Admin
	assigned map[string][]string
	perms    *fakePermissionStore
}

func newFakeAdminStore(perms *fakePermissionStore) *fakeAdminStore {
	return &fakeAdminStore{
		admins:   make(map[string]models.Admin),
		assigned: make(map[string][]string),
		perms:    perms,
	}
}

func (s *fakeAdminStore) Create(_ context.Context, admin models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Username == admin.Username || a.Email == admin.Email {
			return repository.ErrDuplicate
		}
	}
	admin.CreatedAt = time.Now()
	s.admins[admin.ID] = admin
	return nil
}

func (s *fakeAdminStore) withPermissions(a models.Admin) models.Admin {
	a.Permissions = nil
	for _, pid := range s.assigned[a.ID] {
		if p, ok := s.perms.byID(pid); ok {
			a.Permissions = append(a.Permissions, p)
		}
	}
	return a
}

func (s *fakeAdminStore) GetByID(_ context.Context, id string) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return models.Admin{}, repository.ErrNotFound
	}
	return s.withPermissions(a), nil
}

func (s *fakeAdminStore) FindByIdentifier(_ context.Context, identifier string) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Username == identifier || a.Email == identifier {
			return s.withPermissions(a), nil
		}
	}
	return models.Admin{}, repository.ErrNotFound
}

func (s *fakeAdminStore) FindByUsername(_ context.Context, username string) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Username == username {
			return a, nil
		}
	}
	return models.Admin{}, repository.ErrNotFound
}

func (s *fakeAdminStore) FindByEmail(_ context.Context, email string) (models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Admin{}, repository.ErrNotFound
}

func (s *fakeAdminStore) Update(_ context.Context, admin models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[admin.ID]; !ok {
		return repository.ErrNotFound
	}
	s.admins[admin.ID] = admin
	return nil
}

func (s *fakeAdminStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.admins, id)
	delete(s.assigned, id)
	return nil
}

func (s *fakeAdminStore) List(_ context.Context, limit, offset int) ([]models.Admin, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Admin
	for _, a := range s.admins {
		out = append(out, s.withPermissions(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *fakeAdminStore) ReplacePermissions(_ context.Context, adminID string, permissionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assigned[adminID] = append([]string(nil), permissionIDs...)
	return nil
}

type fakePermissionStore struct {
	mu    sync.Mutex
	perms map[string]models.Permission
}

func newFakePermissionStore(perms ...models.Permission) *fakePermissionStore {
	s := &fakePermissionStore{perms: make(map[string]models.Permission)}
	for _, p := range perms {
		s.perms[p.ID] = p
	}
	return s
}

func (s *fakePermissionStore) byID(id string) (models.Permission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.perms[id]
	return p, ok
}

func (s *fakePermissionStore) List(_ context.Context) ([]models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakePermissionStore) GetByIDs(_ context.Context, ids []string) ([]models.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Permission
	for _, id := range ids {
		if p, ok := s.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAdminSessionStore struct {
	mu       sync.Mutex
	sessions map[string]models.AdminSession
}

func newFakeAdminSessionStore() *fakeAdminSessionStore {
	return &fakeAdminSessionStore{sessions: make(map[string]models.AdminSession)}
}

func (s *fakeAdminSessionStore) Create(_ context.Context, session models.AdminSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *fakeAdminSessionStore) FindByToken(_ context.Context, token string) (models.AdminSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.SessionToken == token {
			return sess, nil
		}
	}
	return models.AdminSession{}, repository.ErrNotFound
}

func (s *fakeAdminSessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *fakeAdminSessionStore) DeleteByToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.SessionToken == token {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *fakeAdminSessionStore) DeleteForAdmin(_ context.Context, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.AdminID == adminID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *fakeAdminSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeAdminSessionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
