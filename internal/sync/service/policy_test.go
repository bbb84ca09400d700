package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyAllowsByDefault(t *testing.T) {
	p := NewPolicy()
	assert.True(t, p.Allow(time.Now()))
}

func TestPolicyNilIsPermissive(t *testing.T) {
	var p *Policy
	assert.True(t, p.Allow(time.Now()))
	p.MarkNotified(time.Now()) // must not panic
}

func TestPolicyDisabledSuppressesEverything(t *testing.T) {
	p := &Policy{Disabled: true}
	assert.False(t, p.Allow(time.Now()))
}

func TestPolicyLoginGracePeriod(t *testing.T) {
	login := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	p := &Policy{LoginAt: login}

	assert.False(t, p.Allow(login.Add(5*time.Second)), "silent right after login")
	assert.False(t, p.Allow(login.Add(29*time.Second)))
	assert.True(t, p.Allow(login.Add(31*time.Second)), "grace period over")
}

func TestPolicyRateLimitsNotifications(t *testing.T) {
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	p := NewPolicy()

	assert.True(t, p.Allow(start))
	p.MarkNotified(start)

	assert.False(t, p.Allow(start.Add(time.Minute)))
	assert.False(t, p.Allow(start.Add(9*time.Minute)))
	assert.True(t, p.Allow(start.Add(11*time.Minute)))
}
