package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/octobees/lead-campaign/internal/dto"
	"github.com/octobees/lead-campaign/internal/entity"
)

type stubPool struct {
	queryRowFunc func(ctx context.Context, query string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

func (s *stubPool) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if s.queryRowFunc != nil {
		return s.queryRowFunc(ctx, query, args...)
	}
	return &stubRow{scan: func(dest ...any) error { return nil }}
}

func (s *stubPool) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.queryFunc != nil {
		return s.queryFunc(ctx, query, args...)
	}
	return nil, errors.New("query not implemented")
}

func (s *stubPool) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if s.execFunc != nil {
		return s.execFunc(ctx, query, args...)
	}
	return pgconn.CommandTag{}, errors.New("exec not implemented")
}

type stubRow struct {
	scan func(dest ...any) error
}

func (s *stubRow) Scan(dest ...any) error {
	if s.scan != nil {
		return s.scan(dest...)
	}
	return nil
}

type stubRows struct {
	scans []func(dest ...any) error
	idx   int
	err   error
}

func (s *stubRows) Close() {}

func (s *stubRows) Err() error { return s.err }

func (s *stubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (s *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (s *stubRows) Next() bool {
	if s.err != nil {
		return false
	}
	if s.idx < len(s.scans) {
		s.idx++
		return true
	}
	return false
}

func (s *stubRows) Scan(dest ...any) error {
	if s.idx == 0 || s.idx > len(s.scans) {
		return errors.New("scan called out of order")
	}
	return s.scans[s.idx-1](dest...)
}

func (s *stubRows) Values() ([]any, error) { return nil, nil }

func (s *stubRows) RawValues() [][]byte { return nil }

func (s *stubRows) Conn() *pgx.Conn { return nil }

func scanFullLead(dest ...any) error {
	sentAt := time.Now().Add(-96 * time.Hour)
	*dest[0].(*int64) = 7
	*dest[1].(*sql.NullString) = sql.NullString{String: "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", Valid: true}
	*dest[2].(*string) = "Steuerberater Schmidt"
	*dest[3].(*sql.NullString) = sql.NullString{String: "Karl-Marx-Str. 1, Berlin", Valid: true}
	*dest[4].(*sql.NullString) = sql.NullString{String: "+49301234567", Valid: true}
	*dest[5].(*sql.NullString) = sql.NullString{String: "https://schmidt-steuer.de", Valid: true}
	*dest[6].(*int) = 50
	*dest[7].(*sql.NullString) = sql.NullString{String: "Kurze Frage", Valid: true}
	*dest[8].(*sql.NullString) = sql.NullString{String: "Hallo Team", Valid: true}
	*dest[9].(*string) = entity.LeadStatusSent
	*dest[10].(*sql.NullTime) = sql.NullTime{Time: sentAt, Valid: true}
	*dest[11].(*int) = 1
	*dest[12].(*bool) = false
	*dest[13].(*sql.NullTime) = sql.NullTime{}
	*dest[14].(*sql.NullTime) = sql.NullTime{}
	*dest[15].(*sql.NullString) = sql.NullString{}
	*dest[16].(*time.Time) = time.Now()
	return nil
}

func TestPGXLeadsRepository_UpsertNewValidation(t *testing.T) {
	repo := &PGXLeadsRepository{}
	if err := repo.UpsertNew(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil lead")
	}
}

func TestPGXLeadsRepository_UpsertNew(t *testing.T) {
	called := false
	repo := &PGXLeadsRepository{pool: &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			called = true
			if !strings.Contains(query, "ON CONFLICT (company_name, address) DO NOTHING") {
				t.Fatalf("upsert must ignore rediscovered leads, got query: %s", query)
			}
			if len(args) != 9 {
				t.Fatalf("expected 9 args, got %d", len(args))
			}
			if args[1] != "Steuerberater Schmidt" {
				t.Fatalf("expected company name arg, got %v", args[1])
			}
			if args[8] != entity.LeadStatusPending {
				t.Fatalf("expected pending status default, got %v", args[8])
			}
			return pgconn.CommandTag{}, nil
		},
	}}

	err := repo.UpsertNew(context.Background(), &entity.Lead{CompanyName: "Steuerberater Schmidt", Score: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("expected exec to be called")
	}
}

func TestPGXLeadsRepository_MarkSent(t *testing.T) {
	when := time.Now()
	repo := &PGXLeadsRepository{pool: &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			if args[0] != entity.LeadStatusSent {
				t.Fatalf("expected sent status, got %v", args[0])
			}
			if args[1] != when || args[2] != "Steuerberater Schmidt" {
				t.Fatalf("unexpected args: %v", args)
			}
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}}

	if err := repo.MarkSent(context.Background(), "Steuerberater Schmidt", when); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPGXLeadsRepository_FetchFollowupCandidates(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			for _, predicate := range []string{
				"status = 'sent'",
				"sent_at < NOW() - ($1 * INTERVAL '1 day')",
				"followup_count < $2",
				"response_received = FALSE",
				"LIMIT $3",
			} {
				if !strings.Contains(query, predicate) {
					t.Fatalf("eligibility query missing %q:\n%s", predicate, query)
				}
			}
			if args[0] != 3 || args[1] != 2 || args[2] != 10 {
				t.Fatalf("unexpected args: %v", args)
			}
			return &stubRows{scans: []func(dest ...any) error{scanFullLead}}, nil
		},
	}}

	leads, err := repo.FetchFollowupCandidates(context.Background(), FollowupQuery{StalenessDays: 3, MaxFollowups: 2, Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 || leads[0].CompanyName != "Steuerberater Schmidt" {
		t.Fatalf("unexpected leads: %+v", leads)
	}
}

func TestPGXLeadsRepository_List(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			if !strings.Contains(query, "WHERE status = $1") {
				t.Fatalf("expected status filter, got: %s", query)
			}
			if !strings.Contains(query, "ORDER BY score DESC, created_at DESC") {
				t.Fatalf("expected score ordering, got: %s", query)
			}
			if args[0] != "sent" || args[1] != 25 {
				t.Fatalf("unexpected args: %v", args)
			}
			return &stubRows{scans: []func(dest ...any) error{scanFullLead}}, nil
		},
	}}

	leads, err := repo.List(context.Background(), dto.LeadListFilter{Status: "sent", Limit: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}

	repo.pool = &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			if strings.Contains(query, "WHERE") {
				t.Fatalf("unexpected filter without status: %s", query)
			}
			if len(args) != 1 || args[0] != 50 {
				t.Fatalf("unexpected args: %v", args)
			}
			return &stubRows{}, nil
		},
	}
	if _, err := repo.List(context.Background(), dto.LeadListFilter{Limit: 50}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPGXLeadsRepository_GetByIDNotFound(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		queryFunc: func(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
			return &stubRows{}, nil
		},
	}}

	if _, err := repo.GetByID(context.Background(), 99); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestPGXLeadsRepository_MarkResponse(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			if !strings.Contains(query, "response_received = TRUE") {
				t.Fatalf("expected response flag update, got: %s", query)
			}
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}}

	if err := repo.MarkResponse(context.Background(), 7, time.Now(), "meeting booked"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.pool = &stubPool{
		execFunc: func(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	if err := repo.MarkResponse(context.Background(), 99, time.Now(), ""); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
}

func TestPGXLeadsRepository_Stats(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*int) = 42
				*dest[1].(*int) = 30
				*dest[2].(*int) = 6
				*dest[3].(*sql.NullFloat64) = sql.NullFloat64{Float64: 20.0, Valid: true}
				*dest[4].(*sql.NullFloat64) = sql.NullFloat64{Float64: 47.5, Valid: true}
				*dest[5].(*sql.NullTime) = sql.NullTime{}
				return nil
			}}
		},
	}}

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalLeads != 42 || stats.EmailsSent != 30 || stats.Responses != 6 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.ResponseRate != 20.0 || stats.AvgScore != 47.5 {
		t.Fatalf("unexpected aggregates: %+v", stats)
	}
	if stats.LastEmailSent != nil {
		t.Fatalf("expected nil last sent on empty campaign")
	}
}

func TestScanLeads(t *testing.T) {
	leads, err := scanLeads(&stubRows{scans: []func(dest ...any) error{scanFullLead}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
	lead := leads[0]
	if lead.ID != 7 || lead.CompanyName != "Steuerberater Schmidt" || lead.Score != 50 {
		t.Fatalf("unexpected lead: %+v", lead)
	}
	if lead.CampaignRunID == nil || lead.CampaignRunID.String() != "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb" {
		t.Fatalf("expected campaign_run_id set, got %+v", lead.CampaignRunID)
	}
	if lead.Website == nil || *lead.Website != "https://schmidt-steuer.de" {
		t.Fatalf("expected website set, got %+v", lead.Website)
	}
	if lead.SentAt == nil || lead.FollowupCount != 1 {
		t.Fatalf("expected sent_at and followup_count, got %+v", lead)
	}
	if lead.ResponseDate != nil || lead.Notes != nil {
		t.Fatalf("expected null fields to stay nil, got %+v", lead)
	}
}

func TestPGXLeadsRepository_Ping(t *testing.T) {
	repo := &PGXLeadsRepository{pool: &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				*dest[0].(*int) = 1
				return nil
			}}
		},
	}}

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.pool = &stubPool{
		queryRowFunc: func(ctx context.Context, query string, args ...any) pgx.Row {
			return &stubRow{scan: func(dest ...any) error {
				return errors.New("connection refused")
			}}
		},
	}
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatalf("expected error when store unreachable")
	}
}
