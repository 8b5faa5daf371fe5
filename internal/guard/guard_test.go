package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func TestCheck_FirstRegistrationAllowed(t *testing.T) {
	d := DefaultPolicy().Check(Attempt{Now: time.Now()})
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonNone, d.Reason)
}

func TestCheck_CooldownRejects(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := DefaultPolicy().Check(Attempt{
		LastAddedAt: ptr(now.Add(-59*time.Minute - 30*time.Second)),
		Now:         now,
	})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCooldown, d.Reason)
	assert.Contains(t, d.Message, "1 min")
}

func TestCheck_CooldownElapsed(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d := DefaultPolicy().Check(Attempt{LastAddedAt: ptr(now.Add(-60 * time.Minute)), Now: now})
	assert.True(t, d.Allowed)
}

func TestCheck_RateLimitCheckedBeforeCapacity(t *testing.T) {
	now := time.Now()
	d := DefaultPolicy().Check(Attempt{LastAddedAt: ptr(now), GroupCount: 100, Now: now})
	assert.Equal(t, ReasonCooldown, d.Reason)
}

func TestCheck_Capacity(t *testing.T) {
	d := DefaultPolicy().Check(Attempt{GroupCount: 100, Now: time.Now()})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonCapacity, d.Reason)
	assert.Contains(t, d.Message, "100")

	d = DefaultPolicy().Check(Attempt{GroupCount: 99, Now: time.Now()})
	assert.True(t, d.Allowed)
}

func TestCheck_SuperAdminExempt(t *testing.T) {
	now := time.Now()
	d := DefaultPolicy().Check(Attempt{SuperAdmin: true, LastAddedAt: ptr(now), GroupCount: 500, Now: now})
	assert.True(t, d.Allowed)
}

func TestCheck_DuplicateAppliesToSuperAdmin(t *testing.T) {
	d := DefaultPolicy().Check(Attempt{SuperAdmin: true, Duplicate: true, Now: time.Now()})
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonDuplicate, d.Reason)
}
