package models

import "time"

// Link représente un lien raccourci dans la base de données.
// Alias is always the base-62 image of ID; both are immutable once stored.
type Link struct {
	ID        uint64     `gorm:"primaryKey"`
	Alias     string     `gorm:"uniqueIndex;size:64;not null"`
	URL       string     `gorm:"type:text;not null"`
	ExpireAt  *time.Time `gorm:"index"` // nil means the link never expires
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// TableName pins the table name shared by every allocation strategy.
func (Link) TableName() string {
	return "short_links"
}

// Expired reports whether the link is past its expiry at now.
func (l *Link) Expired(now time.Time) bool {
	return l.ExpireAt != nil && !l.ExpireAt.After(now)
}

// TTL returns the time left before expiry, capped at max. The boolean is
// false when the link has already expired.
func (l *Link) TTL(now time.Time, max time.Duration) (time.Duration, bool) {
	if l.ExpireAt == nil {
		return max, true
	}
	remaining := l.ExpireAt.Sub(now)
	if remaining <= 0 {
		return 0, false
	}
	if max <= 0 || remaining < max {
		return remaining, true
	}
	return max, true
}
