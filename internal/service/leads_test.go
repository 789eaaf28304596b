package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/octobees/lead-campaign/internal/dto"
	"github.com/octobees/lead-campaign/internal/entity"
	"github.com/octobees/lead-campaign/internal/repository"
)

type mockLeadsRepository struct {
	upsertNew     func(ctx context.Context, lead *entity.Lead) error
	markSent      func(ctx context.Context, companyName string, when time.Time) error
	incFollowup   func(ctx context.Context, companyName string, when time.Time) error
	fetchFollowup func(ctx context.Context, q repository.FollowupQuery) ([]entity.Lead, error)
	list          func(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error)
	getByID       func(ctx context.Context, id int64) (*entity.Lead, error)
	markResponse  func(ctx context.Context, id int64, when time.Time, notes string) error
	updateNotes   func(ctx context.Context, id int64, notes string) error
	timeline      func(ctx context.Context, days int) ([]entity.TimelineEntry, error)
	topByScore    func(ctx context.Context, limit int) ([]entity.Lead, error)
	searchByName  func(ctx context.Context, query string, limit int) ([]entity.Lead, error)
	exportAll     func(ctx context.Context) ([]entity.Lead, error)
	stats         func(ctx context.Context) (*entity.CampaignStats, error)
	ping          func(ctx context.Context) error
}

func (m *mockLeadsRepository) UpsertNew(ctx context.Context, lead *entity.Lead) error {
	if m.upsertNew != nil {
		return m.upsertNew(ctx, lead)
	}
	return errors.New("UpsertNew not implemented")
}

func (m *mockLeadsRepository) MarkSent(ctx context.Context, companyName string, when time.Time) error {
	if m.markSent != nil {
		return m.markSent(ctx, companyName, when)
	}
	return errors.New("MarkSent not implemented")
}

func (m *mockLeadsRepository) IncrementFollowup(ctx context.Context, companyName string, when time.Time) error {
	if m.incFollowup != nil {
		return m.incFollowup(ctx, companyName, when)
	}
	return errors.New("IncrementFollowup not implemented")
}

func (m *mockLeadsRepository) FetchFollowupCandidates(ctx context.Context, q repository.FollowupQuery) ([]entity.Lead, error) {
	if m.fetchFollowup != nil {
		return m.fetchFollowup(ctx, q)
	}
	return nil, errors.New("FetchFollowupCandidates not implemented")
}

func (m *mockLeadsRepository) List(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error) {
	if m.list != nil {
		return m.list(ctx, filter)
	}
	return nil, errors.New("List not implemented")
}

func (m *mockLeadsRepository) GetByID(ctx context.Context, id int64) (*entity.Lead, error) {
	if m.getByID != nil {
		return m.getByID(ctx, id)
	}
	return nil, errors.New("GetByID not implemented")
}

func (m *mockLeadsRepository) MarkResponse(ctx context.Context, id int64, when time.Time, notes string) error {
	if m.markResponse != nil {
		return m.markResponse(ctx, id, when, notes)
	}
	return errors.New("MarkResponse not implemented")
}

func (m *mockLeadsRepository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	if m.updateNotes != nil {
		return m.updateNotes(ctx, id, notes)
	}
	return errors.New("UpdateNotes not implemented")
}

func (m *mockLeadsRepository) Timeline(ctx context.Context, days int) ([]entity.TimelineEntry, error) {
	if m.timeline != nil {
		return m.timeline(ctx, days)
	}
	return nil, errors.New("Timeline not implemented")
}

func (m *mockLeadsRepository) TopByScore(ctx context.Context, limit int) ([]entity.Lead, error) {
	if m.topByScore != nil {
		return m.topByScore(ctx, limit)
	}
	return nil, errors.New("TopByScore not implemented")
}

func (m *mockLeadsRepository) SearchByName(ctx context.Context, query string, limit int) ([]entity.Lead, error) {
	if m.searchByName != nil {
		return m.searchByName(ctx, query, limit)
	}
	return nil, errors.New("SearchByName not implemented")
}

func (m *mockLeadsRepository) ExportAll(ctx context.Context) ([]entity.Lead, error) {
	if m.exportAll != nil {
		return m.exportAll(ctx)
	}
	return nil, errors.New("ExportAll not implemented")
}

func (m *mockLeadsRepository) Stats(ctx context.Context) (*entity.CampaignStats, error) {
	if m.stats != nil {
		return m.stats(ctx)
	}
	return nil, errors.New("Stats not implemented")
}

func (m *mockLeadsRepository) Ping(ctx context.Context) error {
	if m.ping != nil {
		return m.ping(ctx)
	}
	return errors.New("Ping not implemented")
}

func TestLeadsService_ListClampsLimit(t *testing.T) {
	var captured dto.LeadListFilter
	svc := NewLeadsService(&mockLeadsRepository{
		list: func(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error) {
			captured = filter
			return nil, nil
		},
	})

	if _, err := svc.List(context.Background(), dto.LeadListFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != 50 {
		t.Fatalf("expected default limit 50, got %d", captured.Limit)
	}

	if _, err := svc.List(context.Background(), dto.LeadListFilter{Limit: 5000}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != 200 {
		t.Fatalf("expected clamped limit 200, got %d", captured.Limit)
	}
}

func TestLeadsService_TimelineDefaultsWindow(t *testing.T) {
	var captured int
	svc := NewLeadsService(&mockLeadsRepository{
		timeline: func(ctx context.Context, days int) ([]entity.TimelineEntry, error) {
			captured = days
			return nil, nil
		},
	})

	if _, err := svc.Timeline(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured != 30 {
		t.Fatalf("expected default window 30, got %d", captured)
	}
}

func TestLeadsService_ExportCSV(t *testing.T) {
	address := "Karl-Marx-Str. 1"
	website := "https://schmidt-steuer.de"
	sentAt := time.Date(2026, 8, 14, 9, 30, 0, 0, time.UTC)
	svc := NewLeadsService(&mockLeadsRepository{
		exportAll: func(ctx context.Context) ([]entity.Lead, error) {
			return []entity.Lead{
				{CompanyName: "Steuerberater Schmidt", Address: &address, Website: &website, Score: 50, Status: entity.LeadStatusSent, SentAt: &sentAt, ResponseReceived: true},
				{CompanyName: "Kanzlei Winter", Score: 40, Status: entity.LeadStatusPending},
			}, nil
		},
	})

	buf := &bytes.Buffer{}
	if err := svc.ExportCSV(context.Background(), buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Firma,Adresse,Telefon,Website,Score,Status,Gesendet,Antwort" {
		t.Fatalf("unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Ja") || !strings.Contains(lines[1], "2026-08-14 09:30") {
		t.Fatalf("unexpected first row: %s", lines[1])
	}
	if !strings.Contains(lines[2], "Nein") {
		t.Fatalf("unexpected second row: %s", lines[2])
	}
}

func TestLeadsService_ExportCSVRepositoryError(t *testing.T) {
	svc := NewLeadsService(&mockLeadsRepository{
		exportAll: func(ctx context.Context) ([]entity.Lead, error) {
			return nil, errors.New("connection reset")
		},
	})

	if err := svc.ExportCSV(context.Background(), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error to propagate")
	}
}
