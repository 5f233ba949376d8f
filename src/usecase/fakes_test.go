package usecase

import (
	"DadBot/src/domain"
	"DadBot/src/storage"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap/zaptest"
)

const (
	testGuild = "guild-1"
	botID     = "bot"
)

type fakeGateway struct {
	mu sync.Mutex

	members map[string]*domain.Member // by user ID
	voice   map[string][]string       // guild ID -> user IDs

	deleteErr    error
	sendErr      error
	onDisconnect func()

	deleted      []string
	channelMsgs  []string
	dms          map[string][]string
	disconnected []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		members: map[string]*domain.Member{},
		voice:   map[string][]string{},
		dms:     map[string][]string{},
	}
}

func (f *fakeGateway) BotUserID() string { return botID }

func (f *fakeGateway) GuildIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.voice))
	for id := range f.voice {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeGateway) Member(_, userID string) (*domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return m, nil
}

func (f *fakeGateway) VoiceMembers(guildID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.voice[guildID], nil
}

func (f *fakeGateway) DeleteMessage(_, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeGateway) SendChannelMessage(_, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.channelMsgs = append(f.channelMsgs, content)
	return nil
}

func (f *fakeGateway) SendDirectMessage(userID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], content)
	return nil
}

func (f *fakeGateway) Disconnect(guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = append(f.disconnected, guildID+"/"+userID)
	if f.onDisconnect != nil {
		f.onDisconnect()
	}
	return nil
}

func (f *fakeGateway) dmCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dms[userID])
}

func newTestStore(t *testing.T) *storage.GuildConfigStore {
	t.Helper()
	return storage.NewGuildConfigStore(filepath.Join(t.TempDir(), "config.json"))
}

// monday0300 is inside the default quiet window.
var monday0300 = time.Date(2024, time.January, 1, 3, 0, 0, 0, time.UTC)

type enforcerFixture struct {
	enforcer *quietEnforcer
	gateway  *fakeGateway
	store    *storage.GuildConfigStore
	clock    clockwork.FakeClock
}

func newEnforcerFixture(t *testing.T, now time.Time) *enforcerFixture {
	t.Helper()

	config := domain.DefaultConfig()
	gateway := newFakeGateway()
	store := newTestStore(t)
	clock := clockwork.NewFakeClockAt(now)

	enforcer := NewQuietEnforcer(&config, QuietEnforcerDeps{
		Gateway:  gateway,
		Guilds:   store,
		Notices:  storage.NewMemoryNoticeLedger(),
		Clock:    clock,
		Location: time.UTC,
		Logger:   zaptest.NewLogger(t).Sugar(),
	}).(*quietEnforcer)

	return &enforcerFixture{enforcer: enforcer, gateway: gateway, store: store, clock: clock}
}
