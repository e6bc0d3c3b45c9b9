// Package memstore is an in-memory store.Store used by tests and local
// development runs without PostgreSQL.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
	"github.com/google/uuid"
)

type state struct {
	users       map[uuid.UUID]models.User
	userPerms   map[uuid.UUID][]models.PermissionName
	permissions map[models.PermissionName]models.Permission
	sessions    map[uuid.UUID]models.Session
}

func newState() *state {
	return &state{
		users:       make(map[uuid.UUID]models.User),
		userPerms:   make(map[uuid.UUID][]models.PermissionName),
		permissions: make(map[models.PermissionName]models.Permission),
		sessions:    make(map[uuid.UUID]models.Session),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.userPerms {
		c.userPerms[k] = append([]models.PermissionName(nil), v...)
	}
	for k, v := range s.permissions {
		c.permissions[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	return c
}

type core struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

// Store is safe for concurrent use. Transactions are serialised and roll back
// by restoring a snapshot; operations outside a transaction wait for any
// running transaction, so a rollback never discards their writes.
type Store struct {
	*core
	inTx bool
}

func New() *Store {
	return &Store{core: &core{st: newState(), now: time.Now}}
}

// SetClock replaces the time source used for expiry checks.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Users() store.UserStore             { return &users{s} }
func (s *Store) Permissions() store.PermissionStore { return &permissions{s} }
func (s *Store) Sessions() store.SessionStore       { return &sessions{s} }

// lock takes the state mutex, and the transaction mutex as well when called
// outside a transaction. The returned func releases both.
func (s *Store) lock() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

// Transaction runs fn against a view bound to this transaction. Nested calls
// join the outer transaction. Using the outer Store inside fn deadlocks.
func (s *Store) Transaction(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(&Store{core: s.core, inTx: true}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// SessionCount returns the number of stored sessions for userID, expired or
// not.
func (s *Store) SessionCount(userID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.st.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// hydrate returns a copy of u with its permissions attached. Caller holds mu.
func (s *Store) hydrate(u models.User) *models.User {
	names := s.st.userPerms[u.ID]
	u.Permissions = make([]models.Permission, 0, len(names))
	for _, n := range names {
		if p, ok := s.st.permissions[n]; ok {
			u.Permissions = append(u.Permissions, p)
		}
	}
	return &u
}

type users struct{ s *Store }

func (r *users) Create(_ context.Context, u *models.User) error {
	defer r.s.lock()()

	for _, existing := range r.s.st.users {
		if existing.Email == u.Email {
			return store.ErrDuplicate
		}
		if u.FirebaseUID != nil && existing.FirebaseUID != nil && *existing.FirebaseUID == *u.FirebaseUID {
			return store.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := r.s.now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	row := *u
	row.Permissions = nil
	r.s.st.users[u.ID] = row
	r.s.st.userPerms[u.ID] = permissionNames(u.Permissions)
	for _, p := range u.Permissions {
		if _, ok := r.s.st.permissions[p.Name]; !ok {
			r.s.st.permissions[p.Name] = p
		}
	}
	return nil
}

func (r *users) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return r.s.hydrate(u), nil
}

func (r *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *users) GetByVerificationTokenHash(_ context.Context, hash string) (*models.User, error) {
	return r.find(func(u models.User) bool {
		return u.EmailVerificationTokenHash != nil && *u.EmailVerificationTokenHash == hash &&
			u.EmailVerificationExpiresAt != nil && u.EmailVerificationExpiresAt.After(r.s.now())
	})
}

func (r *users) GetByResetTokenHash(_ context.Context, hash string) (*models.User, error) {
	return r.find(func(u models.User) bool {
		return u.ResetPasswordTokenHash != nil && *u.ResetPasswordTokenHash == hash &&
			u.ResetPasswordExpiresAt != nil && u.ResetPasswordExpiresAt.After(r.s.now())
	})
}

func (r *users) find(match func(models.User) bool) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.users {
		if match(u) {
			return r.s.hydrate(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *users) Update(_ context.Context, u *models.User) error {
	defer r.s.lock()()

	existing, ok := r.s.st.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if u.FirebaseUID != nil {
		for id, other := range r.s.st.users {
			if id != u.ID && other.FirebaseUID != nil && *other.FirebaseUID == *u.FirebaseUID {
				return store.ErrDuplicate
			}
		}
	}
	u.UpdatedAt = r.s.now()
	row := *u
	row.Email = existing.Email
	row.CreatedAt = existing.CreatedAt
	row.Permissions = nil
	r.s.st.users[u.ID] = row
	return nil
}

func (r *users) SetPermissions(_ context.Context, u *models.User, perms []models.Permission) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	r.s.st.userPerms[u.ID] = permissionNames(perms)
	u.Permissions = perms
	return nil
}

func (r *users) List(_ context.Context, offset, limit int) ([]models.User, error) {
	defer r.s.lock()()

	all := make([]models.User, 0, len(r.s.st.users))
	for _, u := range r.s.st.users {
		all = append(all, *r.s.hydrate(u))
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Email < all[j].Email
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return []models.User{}, nil
	}
	all = all[offset:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *users) Delete(_ context.Context, id uuid.UUID) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[id]; !ok {
		return store.ErrNotFound
	}
	for sid, sess := range r.s.st.sessions {
		if sess.UserID == id {
			delete(r.s.st.sessions, sid)
		}
	}
	delete(r.s.st.userPerms, id)
	delete(r.s.st.users, id)
	return nil
}

func (r *users) Stats(_ context.Context, since time.Time) (*store.Stats, error) {
	defer r.s.lock()()

	stats := &store.Stats{UsersByRole: make(map[models.Role]int64, len(models.Roles))}
	for _, role := range models.Roles {
		stats.UsersByRole[role] = 0
	}
	for _, u := range r.s.st.users {
		stats.TotalUsers++
		if u.IsEmailVerified {
			stats.VerifiedUsers++
		}
		if u.IsActive {
			stats.ActiveUsers++
		}
		if !u.CreatedAt.Before(since) {
			stats.RecentRegistrations++
		}
		stats.UsersByRole[u.Role]++
	}
	return stats, nil
}

type permissions struct{ s *Store }

func (r *permissions) Seed(_ context.Context, catalog []models.Permission) error {
	defer r.s.lock()()
	for _, p := range catalog {
		if _, ok := r.s.st.permissions[p.Name]; ok {
			continue
		}
		r.s.st.permissions[p.Name] = models.Permission{
			ID:          uuid.New(),
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   r.s.now(),
		}
	}
	return nil
}

func (r *permissions) List(_ context.Context) ([]models.Permission, error) {
	defer r.s.lock()()
	out := make([]models.Permission, 0, len(r.s.st.permissions))
	for _, p := range r.s.st.permissions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *permissions) ListByNames(_ context.Context, names []string) ([]models.Permission, error) {
	defer r.s.lock()()
	out := make([]models.Permission, 0, len(names))
	seen := make(map[models.PermissionName]bool, len(names))
	for _, n := range names {
		name := models.PermissionName(n)
		if p, ok := r.s.st.permissions[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type sessions struct{ s *Store }

func (r *sessions) Create(_ context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration, meta *models.ClientMeta) (*models.Session, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.users[userID]; !ok {
		return nil, store.ErrNotFound
	}
	sess := store.NewSession(userID, refreshToken, r.s.now(), ttl, meta)
	for _, existing := range r.s.st.sessions {
		if existing.TokenHash == sess.TokenHash {
			return nil, store.ErrDuplicate
		}
	}
	r.s.st.sessions[sess.ID] = *sess
	return sess, nil
}

func (r *sessions) FindValid(_ context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error) {
	defer r.s.lock()()
	hash := security.HashToken(refreshToken)
	now := r.s.now()
	for _, sess := range r.s.st.sessions {
		if sess.TokenHash == hash && sess.UserID == userID && sess.ExpiresAt.After(now) {
			out := sess
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *sessions) RevokeAll(_ context.Context, userID uuid.UUID) (int64, error) {
	defer r.s.lock()()
	var n int64
	for id, sess := range r.s.st.sessions {
		if sess.UserID == userID {
			delete(r.s.st.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *sessions) DeleteExpired(_ context.Context) (int64, error) {
	defer r.s.lock()()
	now := r.s.now()
	var n int64
	for id, sess := range r.s.st.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(r.s.st.sessions, id)
			n++
		}
	}
	return n, nil
}

func permissionNames(perms []models.Permission) []models.PermissionName {
	names := make([]models.PermissionName, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names
}
