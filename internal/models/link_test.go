package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	soon := now.Add(10 * time.Second)
	later := now.Add(2 * time.Hour)

	for _, testCase := range []struct {
		name    string
		link    Link
		expired bool
		ttl     time.Duration
		ok      bool
	}{
		{name: "never expires", link: Link{}, expired: false, ttl: time.Hour, ok: true},
		{name: "expired", link: Link{ExpireAt: &past}, expired: true, ttl: 0, ok: false},
		{name: "expires at now", link: Link{ExpireAt: &now}, expired: true, ttl: 0, ok: false},
		{name: "capped by expiry", link: Link{ExpireAt: &soon}, expired: false, ttl: 10 * time.Second, ok: true},
		{name: "capped by default", link: Link{ExpireAt: &later}, expired: false, ttl: time.Hour, ok: true},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expired, testCase.link.Expired(now))
			ttl, ok := testCase.link.TTL(now, time.Hour)
			assert.Equal(t, testCase.ok, ok)
			assert.Equal(t, testCase.ttl, ttl)
		})
	}
}
