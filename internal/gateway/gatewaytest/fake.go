// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/google/uuid"
)

var _ gateway.Gateway = (*Fake)(nil)

type account struct {
	user     models.User
	password string
}

type subscriber struct {
	onInsert gateway.InsertHandler
	onStatus gateway.StatusHandler
}

// Fake is a thread-safe in-memory backend. It records how many times each operation ran and can
// be told to fail an operation with a given error.
type Fake struct {
	mu           sync.Mutex
	now          time.Time
	accounts     map[string]*account
	tokens       map[string]models.User
	profiles     map[string]models.Profile
	transactions []models.GoldTransaction
	sessions     []models.GamingSession
	messages     []models.ChatMessage
	nextMsgID    int64
	subs         map[int]subscriber
	nextSub      int

	calls map[string]int
	fail  map[string]error

	// SubscribeStatus is reported to new subscribers; defaults to StatusSubscribed.
	SubscribeStatus gateway.SubscriptionStatus
}

func New() *Fake {
	return &Fake{
		now:      time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		accounts: make(map[string]*account),
		tokens:   make(map[string]models.User),
		profiles: make(map[string]models.Profile),
		subs:     make(map[int]subscriber),
		calls:    make(map[string]int),
		fail:     make(map[string]error),
	}
}

// Fail makes every later call to op return err. A nil err clears the failure.
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls reports how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Subscribers reports the number of live change-feed subscriptions.
func (f *Fake) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Fake) enter(op string) error {
	f.calls[op]++
	return f.fail[op]
}

func (f *Fake) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

// AddUser registers a confirmed account and returns a valid access token for it.
func (f *Fake) AddUser(email, password string) (models.User, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := models.User{ID: uuid.NewString(), Email: email}
	f.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	token := uuid.NewString()
	f.tokens[token] = u
	return u, token
}

// PutProfile stores a profile row as is.
func (f *Fake) PutProfile(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.ID] = p
}

// AddSession stores a gaming session row.
func (f *Fake) AddSession(s models.GamingSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
}

// Push inserts a chat row as another client would, notifying subscribers.
func (f *Fake) Push(entry models.NewChatMessage) models.ChatMessage {
	f.mu.Lock()
	msg := f.insertMessageLocked(entry)
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, s := range subs {
		s.onInsert(msg)
	}
	return msg
}

// Redeliver pushes an existing row to subscribers again.
func (f *Fake) Redeliver(msg models.ChatMessage) {
	f.mu.Lock()
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, s := range subs {
		s.onInsert(msg)
	}
}

// Disconnect reports a channel error to every subscriber.
func (f *Fake) Disconnect(err error) {
	f.mu.Lock()
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, s := range subs {
		if s.onStatus != nil {
			s.onStatus(gateway.StatusChannelError, err)
		}
	}
}

func (f *Fake) subscribersLocked() []subscriber {
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]subscriber, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.subs[id])
	}
	return out
}

func (f *Fake) insertMessageLocked(entry models.NewChatMessage) models.ChatMessage {
	f.nextMsgID++
	msg := models.ChatMessage{
		ID:        f.nextMsgID,
		UserID:    entry.UserID,
		UserEmail: entry.UserEmail,
		Content:   entry.Content,
		CreatedAt: f.tick(),
	}
	f.messages = append(f.messages, msg)
	return msg
}

func (f *Fake) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SignUp"); err != nil {
		return nil, err
	}
	key := strings.ToLower(email)
	if _, ok := f.accounts[key]; ok {
		return nil, gateway.NewError(gateway.CodeUserExists, "User already registered")
	}
	u := models.User{ID: uuid.NewString(), Email: email}
	f.accounts[key] = &account{user: u, password: password}
	return f.issueLocked(u), nil
}

func (f *Fake) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SignIn"); err != nil {
		return nil, err
	}
	acc, ok := f.accounts[strings.ToLower(email)]
	if !ok || acc.password != password {
		return nil, gateway.NewError(gateway.CodeInvalidCredentials, "Invalid login credentials")
	}
	return f.issueLocked(acc.user), nil
}

func (f *Fake) issueLocked(u models.User) *models.Session {
	token := uuid.NewString()
	f.tokens[token] = u
	return &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: u}
}

func (f *Fake) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SignOut"); err != nil {
		return err
	}
	delete(f.tokens, gateway.AccessToken(ctx))
	return nil
}

func (f *Fake) GetSession(ctx context.Context) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetSession"); err != nil {
		return nil, err
	}
	token := gateway.AccessToken(ctx)
	u, ok := f.tokens[token]
	if !ok {
		return nil, nil
	}
	return &models.Session{AccessToken: token, ExpiresAt: time.Now().Add(time.Hour), User: u}, nil
}

func (f *Fake) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetProfile"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[id]
	if !ok {
		return nil, gateway.NewError(gateway.CodeNotFound, "no profile row")
	}
	return &p, nil
}

func (f *Fake) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateProfile"); err != nil {
		return nil, err
	}
	if _, ok := f.profiles[profile.ID]; ok {
		return nil, gateway.NewError(gateway.CodeUniqueViolation, "duplicate key value violates unique constraint \"profiles_pkey\"")
	}
	now := f.tick()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	f.profiles[profile.ID] = profile
	return &profile, nil
}

func (f *Fake) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateProfile"); err != nil {
		return nil, err
	}
	p, ok := f.profiles[id]
	if !ok || !p.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, gateway.NewError(gateway.CodeConflict, "profile was modified concurrently")
	}
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	if patch.Avatar != nil {
		p.Avatar = *patch.Avatar
	}
	p.UpdatedAt = f.tick()
	f.profiles[id] = p
	return &p, nil
}

func (f *Fake) ListLeaderboard(ctx context.Context, limit int) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListLeaderboard"); err != nil {
		return nil, err
	}
	out := make([]models.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalGold.Cmp(out[j].TotalGold); c != 0 {
			return c > 0
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("SearchProfiles"); err != nil {
		return nil, err
	}
	var out []models.Profile
	for _, p := range f.profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Fake) CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateTransaction"); err != nil {
		return nil, err
	}
	tx := models.GoldTransaction{
		ID:          uuid.NewString(),
		UserID:      entry.UserID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Description: entry.Description,
		CreatedAt:   f.tick(),
	}
	f.transactions = append(f.transactions, tx)
	return &tx, nil
}

func (f *Fake) ListTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListTransactions"); err != nil {
		return nil, err
	}
	var out []models.GoldTransaction
	for i := len(f.transactions) - 1; i >= 0; i-- {
		if f.transactions[i].UserID == userID {
			out = append(out, f.transactions[i])
		}
	}
	return out, nil
}

func (f *Fake) ListSessions(ctx context.Context) ([]models.GamingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListSessions"); err != nil {
		return nil, err
	}
	return append([]models.GamingSession(nil), f.sessions...), nil
}

func (f *Fake) ListChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListChatMessages"); err != nil {
		return nil, err
	}
	out := make([]models.ChatMessage, len(f.messages))
	for i, m := range f.messages {
		if p, ok := f.profiles[m.UserID]; ok {
			m.Username = p.Username
		}
		out[i] = m
	}
	return out, nil
}

func (f *Fake) InsertChatMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error) {
	f.mu.Lock()
	if err := f.enter("InsertChatMessage"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	msg := f.insertMessageLocked(entry)
	subs := f.subscribersLocked()
	f.mu.Unlock()

	for _, s := range subs {
		s.onInsert(msg)
	}
	return &msg, nil
}

func (f *Fake) SubscribeToChatInserts(ctx context.Context, onInsert gateway.InsertHandler, onStatus gateway.StatusHandler) (gateway.Unsubscribe, error) {
	f.mu.Lock()
	if err := f.enter("SubscribeToChatInserts"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	id := f.nextSub
	f.nextSub++
	f.subs[id] = subscriber{onInsert: onInsert, onStatus: onStatus}
	status := f.SubscribeStatus
	f.mu.Unlock()

	if status == "" {
		status = gateway.StatusSubscribed
	}
	if onStatus != nil {
		onStatus(status, nil)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}, nil
}
