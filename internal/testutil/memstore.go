package testutil

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"noxchatAPI/internal/friendship"
	"noxchatAPI/internal/user"
)

type pair [2]int64

// MemStore is an in-memory implementation of the user and friendship
// repositories. WithPair runs one transaction at a time and restores the
// edge tables when fn fails.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID   int64
	users    map[int64]*user.User
	friends  map[pair]bool
	requests map[pair]bool
	failures map[string]error
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:    map[int64]*user.User{},
		friends:  map[pair]bool{},
		requests: map[pair]bool{},
		failures: map[string]error{},
	}
}

// Fail makes every later call to op return err. A nil err clears it.
func (m *MemStore) Fail(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MemStore) failure(op string) error {
	return m.failures[op]
}

func clone(u *user.User) *user.User {
	cp := *u
	if u.Profile.LastSeen != nil {
		t := *u.Profile.LastSeen
		cp.Profile.LastSeen = &t
	}
	return &cp
}

// AddUser is a fixture helper that registers username with a derived email.
func (m *MemStore) AddUser(username string) *user.User {
	u := &user.User{Username: username, Email: username + "@nox.test", PasswordHash: "x"}
	if err := m.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (m *MemStore) Create(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Create"); err != nil {
		return err
	}

	for _, existing := range m.users {
		if existing.Username == u.Username || strings.EqualFold(existing.Email, u.Email) {
			return user.ErrDuplicate
		}
	}

	m.nextID++
	id := m.nextID
	publicID := user.DefaultPublicID(u.Username, id)
	for _, existing := range m.users {
		if existing.Profile.PublicID == publicID {
			m.nextID--
			return user.ErrDuplicate
		}
	}

	u.ID = id
	u.Profile.ID = id
	u.Profile.UserID = id
	u.Profile.PublicID = publicID
	if u.Profile.Bio == "" {
		u.Profile.Bio = user.DefaultBio
	}
	if u.Profile.AvatarPath == "" {
		u.Profile.AvatarPath = user.DefaultAvatar
	}
	m.users[id] = clone(u)
	return nil
}

func (m *MemStore) find(match func(*user.User) bool) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("Get"); err != nil {
		return nil, err
	}
	for _, u := range m.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *MemStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.ID == id })
}

func (m *MemStore) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Username == username })
}

func (m *MemStore) GetByPublicID(ctx context.Context, publicID string) (*user.User, error) {
	return m.find(func(u *user.User) bool { return u.Profile.PublicID == publicID })
}

func (m *MemStore) GetByIDs(ctx context.Context, ids []int64) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetByIDs"); err != nil {
		return nil, err
	}
	out := []*user.User{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, clone(u))
		}
	}
	// real stores return rows in arbitrary order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *MemStore) ListAfter(ctx context.Context, afterID int64, limit int) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*user.User{}
	for _, u := range m.users {
		if u.ID > afterID {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) UsernameTaken(ctx context.Context, username string, exceptID int64) (bool, error) {
	_, err := m.find(func(u *user.User) bool { return u.Username == username && u.ID != exceptID })
	return err == nil, ignoreNotFound(err)
}

func (m *MemStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, err := m.find(func(u *user.User) bool { return strings.EqualFold(u.Email, email) })
	return err == nil, ignoreNotFound(err)
}

func (m *MemStore) PublicIDTaken(ctx context.Context, publicID string, exceptID int64) (bool, error) {
	_, err := m.find(func(u *user.User) bool { return u.Profile.PublicID == publicID && u.ID != exceptID })
	return err == nil, ignoreNotFound(err)
}

func ignoreNotFound(err error) error {
	if err == user.ErrNotFound {
		return nil
	}
	return err
}

func (m *MemStore) UpdateProfile(ctx context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpdateProfile"); err != nil {
		return err
	}
	current, ok := m.users[u.ID]
	if !ok {
		return user.ErrNotFound
	}
	for _, other := range m.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username || other.Profile.PublicID == u.Profile.PublicID {
			return user.ErrDuplicate
		}
	}
	updated := clone(u)
	updated.Email = current.Email
	updated.PasswordHash = current.PasswordHash
	updated.Profile.LastSeen = current.Profile.LastSeen
	m.users[u.ID] = updated
	return nil
}

func (m *MemStore) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("TouchLastSeen"); err != nil {
		return err
	}
	if u, ok := m.users[id]; ok {
		u.Profile.LastSeen = &at
	}
	return nil
}

func (m *MemStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(m.users, id)
	for p := range m.friends {
		if p[0] == id || p[1] == id {
			delete(m.friends, p)
		}
	}
	for p := range m.requests {
		if p[0] == id || p[1] == id {
			delete(m.requests, p)
		}
	}
	return nil
}

func (m *MemStore) IsFriend(ctx context.Context, a, b int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.friends[pair{a, b}], m.failure("IsFriend")
}

func (m *MemStore) HasRequest(ctx context.Context, from, to int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[pair{from, to}], m.failure("HasRequest")
}

func (m *MemStore) AddFriendship(ctx context.Context, a, b int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AddFriendship"); err != nil {
		return err
	}
	m.friends[pair{a, b}] = true
	m.friends[pair{b, a}] = true
	return nil
}

func (m *MemStore) RemoveFriendship(ctx context.Context, a, b int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RemoveFriendship"); err != nil {
		return false, err
	}
	existed := m.friends[pair{a, b}] || m.friends[pair{b, a}]
	delete(m.friends, pair{a, b})
	delete(m.friends, pair{b, a})
	return existed, nil
}

func (m *MemStore) AddRequest(ctx context.Context, from, to int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AddRequest"); err != nil {
		return err
	}
	m.requests[pair{from, to}] = true
	return nil
}

func (m *MemStore) RemoveRequest(ctx context.Context, from, to int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RemoveRequest"); err != nil {
		return false, err
	}
	existed := m.requests[pair{from, to}]
	delete(m.requests, pair{from, to})
	return existed, nil
}

func (m *MemStore) WithPair(ctx context.Context, a, b int64, fn func(tx friendship.Edges) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	_, okA := m.users[a]
	_, okB := m.users[b]
	friends := maps.Clone(m.friends)
	requests := maps.Clone(m.requests)
	m.mu.Unlock()

	if !okA || !okB || a == b {
		return user.ErrNotFound
	}

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.friends = friends
		m.requests = requests
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MemStore) Counts(ctx context.Context, userID int64) (friendship.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c friendship.Counts
	for p := range m.friends {
		if p[0] == userID {
			c.Friends++
		}
	}
	for p := range m.requests {
		if p[0] == userID {
			c.Outgoing++
		}
		if p[1] == userID {
			c.Incoming++
		}
	}
	return c, nil
}

func (m *MemStore) IDsInView(ctx context.Context, actorID int64, view friendship.View) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("IDsInView"); err != nil {
		return nil, err
	}
	return m.viewIDs(actorID, view), nil
}

func (m *MemStore) viewIDs(actorID int64, view friendship.View) []int64 {
	ids := []int64{}
	switch view {
	case friendship.ViewFriends:
		for p := range m.friends {
			if p[0] == actorID {
				ids = append(ids, p[1])
			}
		}
	case friendship.ViewOutgoing:
		for p := range m.requests {
			if p[0] == actorID {
				ids = append(ids, p[1])
			}
		}
	case friendship.ViewIncoming:
		for p := range m.requests {
			if p[1] == actorID {
				ids = append(ids, p[0])
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *MemStore) MatchUsers(ctx context.Context, q friendship.Match) ([]*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("MatchUsers"); err != nil {
		return nil, err
	}

	var candidates []*user.User
	if q.View == friendship.ViewAll {
		for _, u := range m.users {
			candidates = append(candidates, u)
		}
	} else {
		for _, id := range m.viewIDs(q.ActorID, q.View) {
			if u, ok := m.users[id]; ok {
				candidates = append(candidates, u)
			}
		}
	}

	text := strings.ToLower(q.Text)
	out := []*user.User{}
	for _, u := range candidates {
		if text == "" ||
			strings.Contains(strings.ToLower(u.Username), text) ||
			strings.Contains(strings.ToLower(u.Profile.PublicID), text) {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].ID < out[j].ID
	})

	if q.Offset >= len(out) {
		return []*user.User{}, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Friends lists the ids a has friendship rows towards, for assertions.
func (m *MemStore) Friends(a int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewIDs(a, friendship.ViewFriends)
}

// PendingCount is the number of request rows, for assertions.
func (m *MemStore) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
