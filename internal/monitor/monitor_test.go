package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"keyword-alert-bot/internal/matcher"
	"keyword-alert-bot/internal/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMatcher struct {
	matches map[int64][]matcher.Match
	err     error
}

func (f *fakeMatcher) CheckKeywordsInMessage(groupID int64, text string) ([]matcher.Match, error) {
	return f.matches[groupID], f.err
}

type sentAlert struct {
	chatID int64
	alert  utils.KeywordAlert
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentAlert
	failFor map[int64]bool
	delay   time.Duration
}

func (f *fakeSender) SendKeywordAlert(ctx context.Context, chatID int64, alert utils.KeywordAlert) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failFor[chatID] {
		return errors.New("chat not found")
	}
	f.mu.Lock()
	f.sent = append(f.sent, sentAlert{chatID: chatID, alert: alert})
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) Sent() []sentAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentAlert(nil), f.sent...)
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan tgbotapi.Update, 16), stopped: make(chan struct{})}
}

func (f *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.ch
}

func (f *fakeSource) StopReceivingUpdates() {
	f.once.Do(func() { close(f.stopped) })
}

func ptr(v int64) *int64 { return &v }

func groupUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID, Type: "supergroup", Title: "Jobs"},
		From: &tgbotapi.User{ID: 999, FirstName: "Bob"},
		Text: text,
	}}
}

func TestEventFromMessage(t *testing.T) {
	ev, ok := EventFromMessage(&tgbotapi.Message{
		Chat:    &tgbotapi.Chat{ID: -100, Type: "group", Title: "Team"},
		From:    &tgbotapi.User{ID: 7, UserName: "alice", FirstName: "Alice"},
		Caption: "photo caption",
	})
	require.True(t, ok)
	assert.True(t, ev.IsGroupChat)
	assert.Equal(t, "photo caption", ev.Text)
	assert.Equal(t, "alice", ev.SenderDisplayName)
	assert.Equal(t, "Team", ev.ChatTitle)

	ev, ok = EventFromMessage(&tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: 7, Type: "private"},
		From: &tgbotapi.User{ID: 7},
		Text: "hi",
	})
	require.True(t, ok)
	assert.False(t, ev.IsGroupChat)
	assert.Equal(t, "Unknown", ev.SenderDisplayName)

	_, ok = EventFromMessage(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}})
	assert.False(t, ok)
}

func TestRelay_DeliversIndependently(t *testing.T) {
	m := &fakeMatcher{matches: map[int64][]matcher.Match{
		222: {
			{Keyword: "job", AdminID: 1, PrivateGroupID: ptr(501)},
			{Keyword: "work", AdminID: 2, PrivateGroupID: ptr(502)},
			{Keyword: "task", AdminID: 3},
		},
	}}
	s := &fakeSender{failFor: map[int64]bool{501: true}}
	r := NewRelay(m, s, 2)
	defer r.Close()

	n := r.Handle(context.Background(), InboundEvent{
		ChatID: 222, IsGroupChat: true, Text: "job and work", SenderID: 999, SenderDisplayName: "Bob", ChatTitle: "Jobs",
	})
	r.Drain()

	assert.Equal(t, 2, n)
	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(502), sent[0].chatID)
	assert.Equal(t, "work", sent[0].alert.Keyword)
	assert.Equal(t, int64(999), sent[0].alert.SenderID)
}

func TestRelay_WithViaLabelsAlerts(t *testing.T) {
	m := &fakeMatcher{matches: map[int64][]matcher.Match{
		222: {{Keyword: "job", AdminID: 1, PrivateGroupID: ptr(501)}},
	}}
	s := &fakeSender{}
	r := NewRelay(m, s, 1).WithVia("Bot")
	defer r.Close()

	r.Handle(context.Background(), InboundEvent{ChatID: 222, IsGroupChat: true, Text: "job", SenderID: 999, ChatTitle: "Jobs"})
	r.Drain()

	sent := s.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Bot", sent[0].alert.Via)
}

func TestRelay_IgnoresNonGroupAndEmpty(t *testing.T) {
	m := &fakeMatcher{matches: map[int64][]matcher.Match{
		1: {{Keyword: "x", AdminID: 1, PrivateGroupID: ptr(5)}},
	}}
	s := &fakeSender{}
	r := NewRelay(m, s, 1)
	defer r.Close()

	assert.Equal(t, 0, r.Handle(context.Background(), InboundEvent{ChatID: 1, IsGroupChat: false, Text: "x"}))
	assert.Equal(t, 0, r.Handle(context.Background(), InboundEvent{ChatID: 1, IsGroupChat: true}))
	r.Drain()
	assert.Empty(t, s.Sent())
}

func TestRelay_MatchErrorIsLogged(t *testing.T) {
	r := NewRelay(&fakeMatcher{err: errors.New("locked")}, &fakeSender{}, 1)
	defer r.Close()
	assert.Equal(t, 0, r.Handle(context.Background(), InboundEvent{ChatID: 1, IsGroupChat: true, Text: "x"}))
}

func TestSession_RunDrainsOnCancel(t *testing.T) {
	m := &fakeMatcher{matches: map[int64][]matcher.Match{
		222: {{Keyword: "vakansiya", AdminID: 111, PrivateGroupID: ptr(555)}},
	}}
	sender := &fakeSender{delay: 50 * time.Millisecond}
	relay := NewRelay(m, sender, 1)
	defer relay.Close()

	src := newFakeSource()
	session := NewSession("token", 1, relay, func(string) (UpdateSource, error) { return src, nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	src.ch <- groupUpdate(222, "Yangi VAKANSIYA ochildi")
	src.ch <- groupUpdate(333, "unwatched chat")

	require.Eventually(t, func() bool { return len(src.ch) == 0 }, time.Second, 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	// 返回时在途投递已完成
	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(555), sent[0].chatID)

	select {
	case <-src.stopped:
	default:
		t.Fatal("updates were not stopped")
	}
}

func TestSession_StreamClosedReturnsNil(t *testing.T) {
	relay := NewRelay(&fakeMatcher{}, &fakeSender{}, 1)
	defer relay.Close()

	src := newFakeSource()
	close(src.ch)
	session := NewSession("token", 1, relay, func(string) (UpdateSource, error) { return src, nil })

	assert.NoError(t, session.Run(context.Background()))
}

func TestSession_DialError(t *testing.T) {
	relay := NewRelay(&fakeMatcher{}, &fakeSender{}, 1)
	defer relay.Close()

	session := NewSession("token", 1, relay, func(string) (UpdateSource, error) {
		return nil, errors.New("unauthorized")
	})
	err := session.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}
