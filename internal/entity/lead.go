package entity

import (
	"time"

	"github.com/google/uuid"
)

// Lead statuses written by the campaign engine. The column itself stays
// free-form text so operators can record manual states in the dashboard.
const (
	LeadStatusPending = "pending"
	LeadStatusSent    = "sent"
)

// Lead represents a business tracked through the outreach funnel.
// Identity is the (company_name, address) pair.
type Lead struct {
	ID               int64      `json:"id"`
	CampaignRunID    *uuid.UUID `json:"campaign_run_id,omitempty"`
	CompanyName      string     `json:"company_name"`
	Address          *string    `json:"address,omitempty"`
	Phone            *string    `json:"phone,omitempty"`
	Website          *string    `json:"website,omitempty"`
	Score            int        `json:"score"`
	EmailSubject     *string    `json:"email_subject,omitempty"`
	EmailBody        *string    `json:"email_body,omitempty"`
	Status           string     `json:"status"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	FollowupCount    int        `json:"followup_count"`
	ResponseReceived bool       `json:"response_received"`
	ResponseDate     *time.Time `json:"response_date,omitempty"`
	LastFollowup     *time.Time `json:"last_followup,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
