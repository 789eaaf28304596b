package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/octobees/lead-campaign/internal/dto"
	"github.com/octobees/lead-campaign/internal/entity"
)

// ErrLeadNotFound indicates no lead matches the lookup criteria.
var ErrLeadNotFound = errors.New("lead not found")

// FollowupQuery bounds the follow-up candidate fetch.
type FollowupQuery struct {
	StalenessDays int
	MaxFollowups  int
	Limit         int
}

// LeadsRepository describes persistence operations for campaign leads.
type LeadsRepository interface {
	UpsertNew(ctx context.Context, lead *entity.Lead) error
	MarkSent(ctx context.Context, companyName string, when time.Time) error
	IncrementFollowup(ctx context.Context, companyName string, when time.Time) error
	FetchFollowupCandidates(ctx context.Context, q FollowupQuery) ([]entity.Lead, error)
	List(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error)
	GetByID(ctx context.Context, id int64) (*entity.Lead, error)
	MarkResponse(ctx context.Context, id int64, when time.Time, notes string) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	Timeline(ctx context.Context, days int) ([]entity.TimelineEntry, error)
	TopByScore(ctx context.Context, limit int) ([]entity.Lead, error)
	SearchByName(ctx context.Context, query string, limit int) ([]entity.Lead, error)
	ExportAll(ctx context.Context) ([]entity.Lead, error)
	Stats(ctx context.Context) (*entity.CampaignStats, error)
	Ping(ctx context.Context) error
}

// pgxPool is the narrow pool surface the repositories need; it keeps the
// implementations testable with stubs.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ pgxPool = (*pgxpool.Pool)(nil)

// PGXLeadsRepository implements LeadsRepository using pgx.
type PGXLeadsRepository struct {
	pool pgxPool
}

// NewPGXLeadsRepository wires a pgx backed repository.
func NewPGXLeadsRepository(pool *pgxpool.Pool) *PGXLeadsRepository {
	return &PGXLeadsRepository{pool: pool}
}

const leadColumns = `
        id,
        campaign_run_id,
        company_name,
        address,
        phone,
        website,
        score,
        email_subject,
        email_body,
        status,
        sent_at,
        followup_count,
        response_received,
        response_date,
        last_followup,
        notes,
        created_at`

// UpsertNew inserts a lead in status pending. A conflict on the
// (company_name, address) pair means the lead was discovered before; the
// first write wins and later attempts are silently ignored.
func (r *PGXLeadsRepository) UpsertNew(ctx context.Context, lead *entity.Lead) error {
	if lead == nil {
		return fmt.Errorf("lead payload is nil")
	}

	query := `
        INSERT INTO leads_email_campaign
            (campaign_run_id, company_name, address, phone, website, score, email_subject, email_body, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
        ON CONFLICT (company_name, address) DO NOTHING;
    `

	var runID any
	if lead.CampaignRunID != nil {
		runID = *lead.CampaignRunID
	}

	status := lead.Status
	if status == "" {
		status = entity.LeadStatusPending
	}

	_, err := r.pool.Exec(ctx, query,
		runID,
		lead.CompanyName,
		lead.Address,
		lead.Phone,
		lead.Website,
		lead.Score,
		lead.EmailSubject,
		lead.EmailBody,
		status,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	return nil
}

// MarkSent flips the matching rows to sent with the given timestamp.
func (r *PGXLeadsRepository) MarkSent(ctx context.Context, companyName string, when time.Time) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE leads_email_campaign
        SET status = $1, sent_at = $2
        WHERE company_name = $3
    `, entity.LeadStatusSent, when, companyName)
	if err != nil {
		return fmt.Errorf("mark lead sent: %w", err)
	}
	return nil
}

// IncrementFollowup bumps the follow-up counter and records the timestamp.
func (r *PGXLeadsRepository) IncrementFollowup(ctx context.Context, companyName string, when time.Time) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE leads_email_campaign
        SET followup_count = followup_count + 1, last_followup = $1
        WHERE company_name = $2
    `, when, companyName)
	if err != nil {
		return fmt.Errorf("increment followup: %w", err)
	}
	return nil
}

// FetchFollowupCandidates returns sent, stale, unanswered leads that are
// still under the follow-up cap. Pending rows never qualify.
func (r *PGXLeadsRepository) FetchFollowupCandidates(ctx context.Context, q FollowupQuery) ([]entity.Lead, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads_email_campaign
        WHERE status = 'sent'
          AND sent_at < NOW() - ($1 * INTERVAL '1 day')
          AND followup_count < $2
          AND response_received = FALSE
        LIMIT $3
    `, q.StalenessDays, q.MaxFollowups, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("fetch followup candidates: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// List returns leads ordered by score then recency, optionally filtered by status.
func (r *PGXLeadsRepository) List(ctx context.Context, filter dto.LeadListFilter) ([]entity.Lead, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT ` + leadColumns + ` FROM leads_email_campaign`)

	args := make([]any, 0, 2)
	if filter.Status != "" {
		query.WriteString(" WHERE status = $1")
		args = append(args, filter.Status)
	}
	query.WriteString(" ORDER BY score DESC, created_at DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)+1))
	args = append(args, filter.Limit)

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// GetByID fetches a single lead.
func (r *PGXLeadsRepository) GetByID(ctx context.Context, id int64) (*entity.Lead, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads_email_campaign
        WHERE id = $1
    `, id)
	if err != nil {
		return nil, fmt.Errorf("fetch lead: %w", err)
	}
	defer rows.Close()

	leads, err := scanLeads(rows)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, ErrLeadNotFound
	}
	return &leads[0], nil
}

// MarkResponse records an inbound reply. response_received is monotone:
// this is the only writer and it only ever sets TRUE.
func (r *PGXLeadsRepository) MarkResponse(ctx context.Context, id int64, when time.Time, notes string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE leads_email_campaign
        SET response_received = TRUE, response_date = $1, notes = $2
        WHERE id = $3
    `, when, notes, id)
	if err != nil {
		return fmt.Errorf("mark response: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// UpdateNotes replaces the operator notes.
func (r *PGXLeadsRepository) UpdateNotes(ctx context.Context, id int64, notes string) error {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE leads_email_campaign
        SET notes = $1
        WHERE id = $2
    `, notes, id)
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// Timeline aggregates sent mail and responses per day over the window.
func (r *PGXLeadsRepository) Timeline(ctx context.Context, days int) ([]entity.TimelineEntry, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT
            DATE(sent_at) AS day,
            COUNT(*) AS emails_sent,
            COUNT(CASE WHEN response_received THEN 1 END) AS responses
        FROM leads_email_campaign
        WHERE sent_at > NOW() - ($1 * INTERVAL '1 day')
        GROUP BY DATE(sent_at)
        ORDER BY day DESC
    `, days)
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}
	defer rows.Close()

	var entries []entity.TimelineEntry
	for rows.Next() {
		var entry entity.TimelineEntry
		if err := rows.Scan(&entry.Date, &entry.EmailsSent, &entry.Responses); err != nil {
			return nil, fmt.Errorf("scan timeline entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline: %w", err)
	}
	return entries, nil
}

// TopByScore returns the highest scored leads.
func (r *PGXLeadsRepository) TopByScore(ctx context.Context, limit int) ([]entity.Lead, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads_email_campaign
        ORDER BY score DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch top leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// SearchByName matches company names case-insensitively by substring.
func (r *PGXLeadsRepository) SearchByName(ctx context.Context, query string, limit int) ([]entity.Lead, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads_email_campaign
        WHERE company_name ILIKE $1
        ORDER BY score DESC
        LIMIT $2
    `, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// ExportAll returns every lead, best score first.
func (r *PGXLeadsRepository) ExportAll(ctx context.Context) ([]entity.Lead, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+leadColumns+`
        FROM leads_email_campaign
        ORDER BY score DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("export leads: %w", err)
	}
	defer rows.Close()

	return scanLeads(rows)
}

// Stats reads the campaign_stats aggregate view.
func (r *PGXLeadsRepository) Stats(ctx context.Context) (*entity.CampaignStats, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT total_leads, emails_sent, responses, response_rate, avg_score, last_email_sent
        FROM campaign_stats
    `)

	var (
		stats        entity.CampaignStats
		responseRate sql.NullFloat64
		avgScore     sql.NullFloat64
		lastSent     sql.NullTime
	)
	if err := row.Scan(&stats.TotalLeads, &stats.EmailsSent, &stats.Responses, &responseRate, &avgScore, &lastSent); err != nil {
		return nil, fmt.Errorf("fetch campaign stats: %w", err)
	}

	if responseRate.Valid {
		stats.ResponseRate = responseRate.Float64
	}
	if avgScore.Valid {
		stats.AvgScore = avgScore.Float64
	}
	if lastSent.Valid {
		ts := lastSent.Time
		stats.LastEmailSent = &ts
	}

	return &stats, nil
}

// Ping performs a trivial query, used by the liveness probe.
func (r *PGXLeadsRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

func scanLeads(rows pgx.Rows) ([]entity.Lead, error) {
	var leads []entity.Lead
	for rows.Next() {
		var (
			lead         entity.Lead
			runID        sql.NullString
			address      sql.NullString
			phone        sql.NullString
			website      sql.NullString
			emailSubject sql.NullString
			emailBody    sql.NullString
			sentAt       sql.NullTime
			responseDate sql.NullTime
			lastFollowup sql.NullTime
			notes        sql.NullString
		)

		err := rows.Scan(
			&lead.ID,
			&runID,
			&lead.CompanyName,
			&address,
			&phone,
			&website,
			&lead.Score,
			&emailSubject,
			&emailBody,
			&lead.Status,
			&sentAt,
			&lead.FollowupCount,
			&lead.ResponseReceived,
			&responseDate,
			&lastFollowup,
			&notes,
			&lead.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}

		if runID.Valid {
			parsed, err := uuid.Parse(runID.String)
			if err != nil {
				return nil, fmt.Errorf("parse campaign_run_id: %w", err)
			}
			lead.CampaignRunID = &parsed
		}
		lead.Address = nullStringToPtr(address)
		lead.Phone = nullStringToPtr(phone)
		lead.Website = nullStringToPtr(website)
		lead.EmailSubject = nullStringToPtr(emailSubject)
		lead.EmailBody = nullStringToPtr(emailBody)
		lead.Notes = nullStringToPtr(notes)
		if sentAt.Valid {
			ts := sentAt.Time
			lead.SentAt = &ts
		}
		if responseDate.Valid {
			ts := responseDate.Time
			lead.ResponseDate = &ts
		}
		if lastFollowup.Valid {
			ts := lastFollowup.Time
			lead.LastFollowup = &ts
		}

		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

func nullStringToPtr(value sql.NullString) *string {
	if value.Valid {
		val := value.String
		return &val
	}
	return nil
}
