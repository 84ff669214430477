package handler

import (
	"time"

	"veridesk/internal/console/engine"
	"veridesk/internal/console/models"
	"veridesk/internal/presence"
)

type viewResponse struct {
	Ready   bool         `json:"ready"`
	Records []recordItem `json:"records"`
	Search  string       `json:"search,omitempty"`
	Filter  string       `json:"filter,omitempty"`
}

// recordItem is one row of the console list: the identifying fields, the
// effective verification code, and the derived flags a row renders from.
type recordItem struct {
	ID            string    `json:"id"`
	Phone         string    `json:"phone"`
	IDNumber      string    `json:"id_number"`
	Disposition   string    `json:"disposition"`
	EffectiveCode string    `json:"effective_code"`
	Staged        bool      `json:"staged"`
	HasPersonal   bool      `json:"has_personal"`
	HasCard       bool      `json:"has_card"`
	HasImages     bool      `json:"has_images"`
	Presence      string    `json:"presence"`
	ReceivedAt    time.Time `json:"received_at"`
}

func newRecordItem(record engine.RecordView, state presence.State) recordItem {
	return recordItem{
		ID:            record.ID,
		Phone:         record.Phone,
		IDNumber:      record.IDNumber,
		Disposition:   string(record.Disposition),
		EffectiveCode: record.EffectiveCode,
		Staged:        record.Staged,
		HasPersonal:   record.HasPersonal(),
		HasCard:       record.HasCard(),
		HasImages:     record.HasImages(),
		Presence:      string(state),
		ReceivedAt:    record.ReceivedAt,
	}
}

// detailResponse carries exactly one disclosure payload, selected by the
// requested category.
type detailResponse struct {
	ID       string                  `json:"id"`
	Category string                  `json:"category"`
	Personal *models.PersonalDetails `json:"personal,omitempty"`
	Payment  *models.CardDetails     `json:"payment,omitempty"`
	Images   []string                `json:"images,omitempty"`
}

func newDetailResponse(record models.Submission, category models.InfoCategory) detailResponse {
	resp := detailResponse{ID: record.ID, Category: string(category)}
	switch category {
	case models.InfoPersonal:
		resp.Personal = record.Personal
	case models.InfoPayment:
		resp.Payment = record.Card
	case models.InfoImages:
		if record.Images != nil {
			resp.Images = record.Images.All()
		}
	}
	return resp
}

type statsResponse struct {
	Total     int `json:"total"`
	CardCount int `json:"card_count"`
	Online    int `json:"online"`
}

type messageResponse struct {
	Present bool   `json:"present"`
	Kind    string `json:"kind,omitempty"`
	Text    string `json:"text,omitempty"`
}

type confirmationResponse struct {
	Pending bool   `json:"pending"`
	Target  string `json:"target,omitempty"`
}
