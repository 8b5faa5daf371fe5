package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"keyword-alert-bot/internal/cache"
	"keyword-alert-bot/internal/database"
	"keyword-alert-bot/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPurger struct {
	before []time.Time
}

func (r *recordingPurger) PurgeRateLimitMarks(before time.Time) (int64, error) {
	r.before = append(r.before, before)
	return 0, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *recordingPurger) {
	t.Helper()
	db, err := database.Open(database.Config{Driver: database.DriverSQLite, Path: filepath.Join(t.TempDir(), "tasks.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	purger := &recordingPurger{}
	s := NewScheduler(db, cache.NewSessionCache(time.Minute), utils.NewRateLimiter(1), purger, time.Hour)
	return s, purger
}

func TestScheduler_CleanupPurgesMarksOlderThanCooldown(t *testing.T) {
	s, purger := newTestScheduler(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.nowFn = func() time.Time { return now }

	s.cleanup()

	require.Len(t, purger.before, 1)
	assert.Equal(t, now.Add(-time.Hour), purger.before[0])
}

func TestScheduler_CleanupReportsLiveState(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.sessions.SetAwaiting(42, cache.AwaitKeyword)
	require.True(t, s.rateLimiter.Allow(555))

	fields := s.cleanup()

	assert.Equal(t, 0, fields["会话"])
	assert.Equal(t, 1, fields["会话数"])
	assert.Equal(t, 1, fields["活跃限流器"])
	assert.Equal(t, time.Minute.String(), fields["TTL"])
}

func TestScheduler_StartRejectsInvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(t)
	assert.Error(t, s.Start("not a cron spec"))
}

func TestScheduler_StartStop(t *testing.T) {
	s, _ := newTestScheduler(t)
	require.NoError(t, s.Start("*/5 * * * *"))
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()
}
