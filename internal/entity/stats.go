package entity

import "time"

// CampaignStats mirrors the campaign_stats aggregate view.
type CampaignStats struct {
	TotalLeads    int        `json:"total_leads"`
	EmailsSent    int        `json:"emails_sent"`
	Responses     int        `json:"responses"`
	ResponseRate  float64    `json:"response_rate"`
	AvgScore      float64    `json:"avg_score"`
	LastEmailSent *time.Time `json:"last_email_sent,omitempty"`
}

// TimelineEntry aggregates sent mail and responses for one day.
type TimelineEntry struct {
	Date       time.Time `json:"date"`
	EmailsSent int       `json:"emails_sent"`
	Responses  int       `json:"responses"`
}
