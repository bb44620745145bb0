package domain

import "time"

// Shop represents an installed merchant shop and its stored credential.
// At most one record exists per shop domain (upsert semantics).
type Shop struct {
	Domain       string    `json:"domain" bson:"domain"`
	AccessToken  string    `json:"-" bson:"access_token"`
	Scopes       string    `json:"scopes" bson:"scopes"`
	IANATimezone string    `json:"iana_timezone,omitempty" bson:"iana_timezone,omitempty"`
	Currency     string    `json:"currency,omitempty" bson:"currency,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// TokenSuffix returns the last four characters of the access token for
// diagnostics. The full token must never be logged or surfaced.
func (s *Shop) TokenSuffix() string {
	if len(s.AccessToken) < 4 {
		return ""
	}
	return s.AccessToken[len(s.AccessToken)-4:]
}

// Timezone returns the shop's IANA timezone name, defaulting to UTC when the
// shop never reported one.
func (s *Shop) Timezone() string {
	if s.IANATimezone == "" {
		return "UTC"
	}
	return s.IANATimezone
}
