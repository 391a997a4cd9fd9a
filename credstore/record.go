package credstore

import (
	"math"
	"time"
)

// NeverExpires is the expires_at sentinel for tokens taken from the environment.
const NeverExpires int64 = math.MaxInt64

// Profile is the cached identity of the authenticated user.
type Profile struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// Record is the persisted authentication state. Only one exists at a time.
type Record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	// ExpiresAt is an absolute expiry in epoch milliseconds.
	ExpiresAt    int64    `json:"expires_at"`
	ClientID     string   `json:"client_id,omitempty"`
	ClientSecret string   `json:"client_secret,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`

	// FromEnv marks a record synthesized from WHOOP_ACCESS_TOKEN.
	FromEnv bool `json:"-"`
}

// ExpiresAtTime converts ExpiresAt to a time.Time. The NeverExpires sentinel
// maps to the zero time.
func (r *Record) ExpiresAtTime() time.Time {
	if r.ExpiresAt == NeverExpires {
		return time.Time{}
	}
	return time.UnixMilli(r.ExpiresAt)
}

// ExpiresAtFrom computes an absolute expiry from a relative lifetime.
func ExpiresAtFrom(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).UnixMilli()
}

// Clone returns a deep copy so callers can't mutate the cached record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Scopes != nil {
		c.Scopes = append([]string(nil), r.Scopes...)
	}
	if r.Profile != nil {
		p := *r.Profile
		c.Profile = &p
	}
	return &c
}
