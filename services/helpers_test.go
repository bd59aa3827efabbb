package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"channel-unlock-bot/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection to ":memory:" would be a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Participant{},
		&models.RewardArtifact{},
		&models.CommunityCounter{},
		&models.ChannelPost{},
	))
	return db
}

type sentMessage struct {
	Chat    string
	Kind    string // text, photo, document
	Ref     string
	Caption string
}

// fakeMessenger records sends and answers membership from a table.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	nextID  int
	blocked map[string]bool
	failing map[string]bool // kind -> fail every send of that kind
	members map[int64]models.MemberStatus
	pollErr error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		blocked: map[string]bool{},
		failing: map[string]bool{},
		members: map[int64]models.MemberStatus{},
	}
}

func (m *fakeMessenger) record(chat, kind, ref, caption string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blocked[chat] {
		return 0, fmt.Errorf("%w: forbidden", ErrRecipientBlocked)
	}
	if m.failing[kind] {
		return 0, errors.New("telegram: internal error")
	}
	m.nextID++
	m.sent = append(m.sent, sentMessage{Chat: chat, Kind: kind, Ref: ref, Caption: caption})
	return m.nextID, nil
}

func (m *fakeMessenger) SendText(ctx context.Context, chat, text string) (int, error) {
	return m.record(chat, "text", "", text)
}

func (m *fakeMessenger) SendPhoto(ctx context.Context, chat, fileRef, caption string) (int, error) {
	return m.record(chat, "photo", fileRef, caption)
}

func (m *fakeMessenger) SendDocument(ctx context.Context, chat, fileRef, caption string) (int, error) {
	return m.record(chat, "document", fileRef, caption)
}

func (m *fakeMessenger) MemberStatus(ctx context.Context, channel string, userID int64) (models.MemberStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pollErr != nil {
		return "", m.pollErr
	}
	if s, ok := m.members[userID]; ok {
		return s, nil
	}
	return models.MemberLeft, nil
}

func (m *fakeMessenger) setMember(id int64, s models.MemberStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[id] = s
}

// media returns the refs of photos and documents sent to chat, in order.
func (m *fakeMessenger) media(chat string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []string
	for _, s := range m.sent {
		if s.Chat == chat && s.Kind != "text" {
			refs = append(refs, s.Ref)
		}
	}
	return refs
}

func (m *fakeMessenger) texts(chat string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.sent {
		if s.Chat == chat && s.Kind == "text" {
			out = append(out, s.Caption)
		}
	}
	return out
}

// manualDeferrer holds timers until the test fires them.
type manualDeferrer struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	after   time.Duration
	fn      func()
	stopped bool
}

func (d *manualDeferrer) AfterFunc(after time.Duration, fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &manualTimer{after: after, fn: fn}
	d.timers = append(d.timers, t)
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		t.stopped = true
	}
}

// fire runs timer i the way a timer that lost the race with stop would.
func (d *manualDeferrer) fire(i int) {
	d.mu.Lock()
	t := d.timers[i]
	d.mu.Unlock()
	t.fn()
}

func (d *manualDeferrer) stopped(i int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timers[i].stopped
}

type fixture struct {
	db         *gorm.DB
	msg        *fakeMessenger
	ledger     *LedgerService
	community  *CommunityService
	catalog    *CatalogService
	dispatcher *MilestoneDispatcher
	referral   *ReferralEngine
}

const testChannel = "@unlock_channel"

func newFixture(t *testing.T, interval int64) *fixture {
	t.Helper()
	db := newTestDB(t)
	msg := newFakeMessenger()
	ledger := NewLedgerService(db)
	community := NewCommunityService(db)
	catalog := NewCatalogService(db)
	dispatcher := NewMilestoneDispatcher(db, ledger, community, catalog, msg, testChannel, interval)
	return &fixture{
		db:         db,
		msg:        msg,
		ledger:     ledger,
		community:  community,
		catalog:    catalog,
		dispatcher: dispatcher,
		referral:   NewReferralEngine(ledger, community, dispatcher, msg, testChannel),
	}
}

func (f *fixture) register(t *testing.T, id int64, username, recruiterToken string) *models.Participant {
	t.Helper()
	p, created, err := f.ledger.Register(context.Background(), id, username, "", recruiterToken)
	require.NoError(t, err)
	require.True(t, created)
	return p
}

func (f *fixture) addArtifact(t *testing.T, tier int64, kind models.MediaKind, ref string) {
	t.Helper()
	require.NoError(t, f.catalog.Add(context.Background(), &models.RewardArtifact{
		Tier: tier, Kind: kind, ContentRef: ref, Name: ref,
	}))
}

// recruit registers n recruits of recruiter and confirms each as a member.
func (f *fixture) recruit(t *testing.T, recruiter *models.Participant, firstID int64, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := firstID + int64(i)
		f.register(t, id, fmt.Sprintf("recruit%d", id), recruiter.ReferralToken)
		_, err := f.referral.ApplyMembership(ctx, id, models.MemberMember)
		require.NoError(t, err)
	}
}
