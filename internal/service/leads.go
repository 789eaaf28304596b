package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/octobees/lead-campaign/internal/dto"
	"github.com/octobees/lead-campaign/internal/entity"
	"github.com/octobees/lead-campaign/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	defaultTimelineDays = 30
	defaultTopLimit     = 10
)

// LeadsService exposes dashboard operations over the lead store.
type LeadsService struct {
	repo repository.LeadsRepository
}

// NewLeadsService creates a new instance of LeadsService.
func NewLeadsService(repo repository.LeadsRepository) *LeadsService {
	return &LeadsService{repo: repo}
}

// Stats returns the campaign aggregates.
func (s *LeadsService) Stats(ctx context.Context) (*entity.CampaignStats, error) {
	return s.repo.Stats(ctx)
}

// List returns leads respecting limit defaults.
func (s *LeadsService) List(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.repo.List(ctx, filter)
}

// Get fetches a single lead by id.
func (s *LeadsService) Get(ctx context.Context, id int64) (*entity.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// MarkResponse records an inbound reply for a lead.
func (s *LeadsService) MarkResponse(ctx context.Context, id int64, notes string) error {
	return s.repo.MarkResponse(ctx, id, time.Now(), notes)
}

// UpdateNotes replaces the operator notes on a lead.
func (s *LeadsService) UpdateNotes(ctx context.Context, id int64, notes string) error {
	return s.repo.UpdateNotes(ctx, id, notes)
}

// Timeline aggregates dispatches per day over the window.
func (s *LeadsService) Timeline(ctx context.Context, days int) ([]entity.TimelineEntry, error) {
	if days <= 0 {
		days = defaultTimelineDays
	}
	return s.repo.Timeline(ctx, days)
}

// TopPerformers returns the best scored leads.
func (s *LeadsService) TopPerformers(ctx context.Context, limit int) ([]entity.Lead, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.TopByScore(ctx, limit)
}

// Search matches leads by company name substring.
func (s *LeadsService) Search(ctx context.Context, query string, limit int) ([]entity.Lead, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return s.repo.SearchByName(ctx, query, limit)
}

// Health checks store connectivity.
func (s *LeadsService) Health(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

var exportHeader = []string{"Firma", "Adresse", "Telefon", "Website", "Score", "Status", "Gesendet", "Antwort"}

// ExportCSV streams every lead as CSV in the dashboard's German column layout.
func (s *LeadsService) ExportCSV(ctx context.Context, w io.Writer) error {
	leads, err := s.repo.ExportAll(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, lead := range leads {
		row := []string{
			lead.CompanyName,
			stringOrEmpty(lead.Address),
			stringOrEmpty(lead.Phone),
			stringOrEmpty(lead.Website),
			strconv.Itoa(lead.Score),
			lead.Status,
			formatSentAt(lead.SentAt),
			germanBool(lead.ResponseReceived),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatSentAt(sentAt *time.Time) string {
	if sentAt == nil {
		return ""
	}
	return sentAt.Format("2006-01-02 15:04")
}

func germanBool(value bool) string {
	if value {
		return "Ja"
	}
	return "Nein"
}
