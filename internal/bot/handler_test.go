package bot

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/config"
	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/guard"
	"keyword-alert-bot/internal/matcher"
	"keyword-alert-bot/internal/models"
	"keyword-alert-bot/internal/monitor"
	"keyword-alert-bot/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSuperAdmin = int64(999)

type fakeAPI struct {
	mu    sync.Mutex
	texts []string
	chats map[int64]tgbotapi.Chat
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		f.texts = append(f.texts, m.Text)
	case tgbotapi.EditMessageTextConfig:
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	if chat, ok := f.chats[cfg.ChatID]; ok {
		return chat, nil
	}
	return tgbotapi.Chat{}, errors.New("chat not found")
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

func (f *fakeAPI) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		return ""
	}
	return f.texts[len(f.texts)-1]
}

type testEnv struct {
	handler  *Handler
	api      *fakeAPI
	services *service.Services
	sessions *cache.SessionCache
	relay    *monitor.Relay
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "bot.db")})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	env := &testEnv{
		api: &fakeAPI{chats: map[int64]tgbotapi.Chat{
			-100222: {ID: -100222, Type: "supergroup", Title: "Jobs Tashkent"},
			111:     {ID: 111, Type: "private", UserName: "ali"},
		}},
		now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := &config.Config{Telegram: config.TelegramConfig{SuperAdminID: testSuperAdmin}}
	env.services = service.NewServices(db, testSuperAdmin, guard.DefaultPolicy(), func() time.Time { return env.now })
	env.sessions = cache.NewSessionCache(time.Hour)
	notifications := service.NewNotificationService(env.api, nil, 500)
	env.relay = monitor.NewRelay(matcher.NewEngine(env.services.Groups), notifications, 2).WithVia("Bot")
	t.Cleanup(env.relay.Close)
	env.handler = NewHandler(env.api, cfg, NewPermissionChecker(cfg, env.services.Admins),
		env.services, notifications, env.sessions, nil, env.relay)
	return env
}

func privateText(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "U"},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		Text: text,
	}
}

func (e *testEnv) click(userID int64, data string) {
	e.handler.HandleCallback(&tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: userID, Type: "private"}},
		Data:    data,
	})
}

func TestSuperAdminAddsAdmin(t *testing.T) {
	env := newTestEnv(t)

	env.click(testSuperAdmin, callbackData(actAddAdmin))
	assert.Equal(t, cache.AwaitAdminID, env.sessions.Get(testSuperAdmin).Awaiting)

	env.handler.HandleTextMessage(privateText(testSuperAdmin, "111"))
	assert.Contains(t, env.api.last(), "Admin added")
	assert.Contains(t, env.api.last(), "ali")
	assert.Equal(t, cache.AwaitNone, env.sessions.Get(testSuperAdmin).Awaiting)

	env.click(testSuperAdmin, callbackData(actAddAdmin))
	env.handler.HandleTextMessage(privateText(testSuperAdmin, "111"))
	assert.Contains(t, env.api.last(), "already exists")
}

func TestStrangerCannotConfigure(t *testing.T) {
	env := newTestEnv(t)

	env.sessions.SetAwaiting(555, cache.AwaitKeyword)
	env.handler.HandleTextMessage(privateText(555, "job"))

	keywords, err := env.services.Keywords.GetKeywords(555)
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestAdminKeywordAndGroupsFlow(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Admins.AddAdmin(111, "ali")
	require.NoError(t, err)

	env.click(111, callbackData(actAddKeyword))
	env.handler.HandleTextMessage(privateText(111, "vakansiya"))
	assert.Contains(t, env.api.last(), "Keyword added: vakansiya")

	env.click(111, callbackData(actAddPrivate))
	env.handler.HandleTextMessage(privateText(111, "-100555"))
	assert.Contains(t, env.api.last(), "Group -100555")

	env.click(111, callbackData(actAddSearch))
	env.handler.HandleTextMessage(privateText(111, "-100222"))
	assert.Contains(t, env.api.last(), "Search group added: Jobs Tashkent")

	// 冷却期内第二次添加被拒绝
	env.click(111, callbackData(actAddSearch))
	env.handler.HandleTextMessage(privateText(111, "https://t.me/another"))
	assert.Contains(t, env.api.last(), "Try again in 60 min")

	groups, err := env.services.Groups.GetSearchGroups(111)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Jobs Tashkent", groups[0].Name())

	pg, err := env.services.Groups.GetPrivateGroup(111)
	require.NoError(t, err)
	require.NotNil(t, pg)
	assert.Equal(t, int64(-100555), *pg.GroupID)
}

func TestSuperAdminActsInAdminRoom(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Admins.AddAdmin(111, "ali")
	require.NoError(t, err)

	env.click(testSuperAdmin, callbackDataID(actConfirmEnter, 111))
	assert.Equal(t, int64(111), env.sessions.Get(testSuperAdmin).ActingAs)

	// 超级管理员代为添加不受冷却限制
	for _, id := range []string{"-1", "-2"} {
		env.click(testSuperAdmin, callbackData(actAddSearch))
		env.handler.HandleTextMessage(privateText(testSuperAdmin, id))
		assert.Contains(t, env.api.last(), "Search group added")
	}

	count, err := env.services.Groups.SearchGroupCount(111)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	env.click(testSuperAdmin, callbackData(actBack))
	assert.Zero(t, env.sessions.Get(testSuperAdmin).ActingAs)
}

func TestAdminCannotActAsOthers(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Admins.AddAdmin(111, "ali")
	require.NoError(t, err)

	env.click(111, callbackDataID(actConfirmEnter, 222))
	assert.Zero(t, env.sessions.Get(111).ActingAs)
}

func TestScheduleInput(t *testing.T) {
	env := newTestEnv(t)

	env.click(testSuperAdmin, callbackData(actSchedule))
	assert.Equal(t, cache.AwaitScheduleTime, env.sessions.Get(testSuperAdmin).Awaiting)

	env.handler.HandleTextMessage(privateText(testSuperAdmin, "23:30:6:0"))
	assert.Contains(t, env.api.last(), "Schedule saved")

	sched, err := env.services.Settings.Schedule()
	require.NoError(t, err)
	assert.True(t, sched.Enabled)
	assert.Equal(t, "23:30", sched.Stop.String())
	assert.Equal(t, "06:00", sched.Start.String())

	env.click(testSuperAdmin, callbackData(actSchedule))
	env.handler.HandleTextMessage(privateText(testSuperAdmin, "25:00:02:00"))
	assert.Contains(t, env.api.last(), "Invalid format")

	env.click(testSuperAdmin, callbackData(actSchedule))
	env.handler.HandleTextMessage(privateText(testSuperAdmin, "off"))
	sched, err = env.services.Settings.Schedule()
	require.NoError(t, err)
	assert.False(t, sched.Enabled)
}

func TestStatusWritesLastCheck(t *testing.T) {
	env := newTestEnv(t)
	env.handler.nowFn = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

	env.click(testSuperAdmin, callbackData(actStatus))
	assert.Contains(t, env.api.last(), "Last check: Never")

	v, err := env.services.Settings.GetSetting(models.SettingLastCheck, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 09:30:00", v)
}

func TestDeleteKeywordIsOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.services.Admins.AddAdmin(111, "ali")
	require.NoError(t, err)
	_, err = env.services.Admins.AddAdmin(222, "vali")
	require.NoError(t, err)

	kw, err := env.services.Keywords.AddKeyword(222, "job")
	require.NoError(t, err)

	env.click(111, callbackDataID(actConfirmDelKw, kw.ID))
	assert.Contains(t, env.api.last(), "not found")

	keywords, err := env.services.Keywords.GetKeywords(222)
	require.NoError(t, err)
	assert.Len(t, keywords, 1)
}

func groupText(chatID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 999, UserName: "hr_manager"},
		Chat: &tgbotapi.Chat{ID: chatID, Type: "supergroup", Title: "Jobs Tashkent"},
		Text: text,
	}
}

func (e *testEnv) registerWatcher(t *testing.T) {
	t.Helper()
	_, err := e.services.Admins.AddAdmin(111, "ali")
	require.NoError(t, err)
	_, err = e.services.Keywords.AddKeyword(111, "vakansiya")
	require.NoError(t, err)
	privateID, searchID := int64(555), int64(-100222)
	require.NoError(t, e.services.Groups.UpsertPrivateGroup(111, models.GroupRef{GroupID: &privateID}))
	ok, _, err := e.services.Groups.AddSearchGroup(111, false, models.GroupRef{GroupID: &searchID})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestGroupMessageTriggersAlert(t *testing.T) {
	env := newTestEnv(t)
	env.registerWatcher(t)
	b := &Bot{handler: env.handler}

	before := env.api.count()
	b.handleUpdate(tgbotapi.Update{Message: groupText(-100222, "Yangi VAKANSIYA ochildi")})
	env.relay.Drain()

	require.Equal(t, before+1, env.api.count())
	alert := env.api.last()
	assert.Contains(t, alert, "\\(Bot\\)")
	assert.Contains(t, alert, "vakansiya")
	assert.Contains(t, alert, "hr")
}

func TestGroupMessageOutsideSearchGroupsIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.registerWatcher(t)
	b := &Bot{handler: env.handler}

	before := env.api.count()
	b.handleUpdate(tgbotapi.Update{Message: groupText(-100777, "Yangi VAKANSIYA ochildi")})
	b.handleUpdate(tgbotapi.Update{Message: groupText(-100222, "salom")})
	env.relay.Drain()

	assert.Equal(t, before, env.api.count())
}
