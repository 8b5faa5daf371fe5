package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateWithEllipsis(t *testing.T) {
	assert.Equal(t, "short", TruncateWithEllipsis("short", 500))

	long := strings.Repeat("ш", 600)
	got := TruncateWithEllipsis(long, 500)
	assert.Equal(t, strings.Repeat("ш", 500)+"...", got)
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, "07:05", c.String())

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("12:60")
	assert.Error(t, err)
	_, err = ParseClock("noon")
	assert.Error(t, err)
}

func TestParseScheduleWindow(t *testing.T) {
	stop, start, err := ParseScheduleWindow("0:0:2:0")
	require.NoError(t, err)
	assert.Equal(t, "00:00", stop.String())
	assert.Equal(t, "02:00", start.String())

	_, _, err = ParseScheduleWindow("00:00")
	assert.Error(t, err)
	_, _, err = ParseScheduleWindow("00:00:25:00")
	assert.Error(t, err)
}

func TestNextOccurrence(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 5, 10, 23, 0, 0, 0, loc)

	next := NextOccurrence(now, Clock{Hour: 0, Minute: 0})
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, loc), next)

	// 恰好等于该时刻时滚动到下一天
	exact := time.Date(2024, 5, 10, 2, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 5, 11, 2, 0, 0, 0, loc), NextOccurrence(exact, Clock{Hour: 2}))

	later := NextOccurrence(now, Clock{Hour: 23, Minute: 30})
	assert.Equal(t, time.Date(2024, 5, 10, 23, 30, 0, 0, loc), later)
}

func TestFormatHoursMinutes(t *testing.T) {
	assert.Equal(t, "1 h 30 min", FormatHoursMinutes(90*time.Minute))
	assert.Equal(t, "0 h 0 min", FormatHoursMinutes(-time.Second))
}

func TestRateLimiter_AllowPerSecond(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(2)
	r.nowFn = func() time.Time { return now }

	assert.True(t, r.Allow(1))
	assert.True(t, r.Allow(1))
	assert.False(t, r.Allow(1))
	assert.True(t, r.Allow(2), "limits are per chat")

	now = now.Add(time.Second)
	assert.True(t, r.Allow(1))

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 2, r.CleanupOldLimiters())
	assert.Equal(t, 0, r.Size())
}

func TestFormatKeywordAlert(t *testing.T) {
	a := KeywordAlert{
		SourceChatTitle:   "Jobs.uz",
		SenderDisplayName: "ali_99",
		SenderID:          999,
		Keyword:           "vakansiya",
		Body:              "Yangi VAKANSIYA ochildi!",
	}

	md := FormatKeywordAlert(a, 500)
	assert.Contains(t, md, "Jobs\\.uz")
	assert.Contains(t, md, "ali\\_99")
	assert.Contains(t, md, "`999`")
	assert.Contains(t, md, "ochildi\\!")

	plain := FormatKeywordAlertPlain(a, 10)
	assert.Contains(t, plain, "Yangi VAKA...")
	assert.Contains(t, plain, "Keyword: vakansiya")
	assert.NotContains(t, plain, "(Bot)")

	a.Via = "Bot"
	assert.Contains(t, FormatKeywordAlert(a, 500), "🔍 *Keyword found\\!* \\(Bot\\)\n")
	assert.Contains(t, FormatKeywordAlertPlain(a, 500), "🔍 Keyword found! (Bot)\n")
}

func TestWorkerPool_RecoversPanics(t *testing.T) {
	pool := NewWorkerPool(2)
	done := make(chan struct{}, 2)

	pool.Submit(func() { panic("boom") })
	pool.Submit(func() { done <- struct{}{} })
	pool.Wait()
	pool.Close()

	assert.Len(t, done, 1)
}
