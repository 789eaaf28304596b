package campaign

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/octobees/lead-campaign/internal/analyzer"
	"github.com/octobees/lead-campaign/internal/content"
	"github.com/octobees/lead-campaign/internal/entity"
	"github.com/octobees/lead-campaign/internal/mailer"
	"github.com/octobees/lead-campaign/internal/places"
	"github.com/octobees/lead-campaign/internal/repository"
	"github.com/octobees/lead-campaign/internal/scoring"
)

const (
	qualifyThreshold    = 30
	finalThreshold      = 40
	maxCandidatesPerRun = 50

	defaultPhoneRegion = "DE"
)

// Discovery finds businesses and enriches them with contact details.
type Discovery interface {
	TextSearch(ctx context.Context, params places.SearchParams) ([]places.Place, error)
	Details(ctx context.Context, placeID string) (places.Details, error)
}

// SiteAnalyzer inspects a candidate website.
type SiteAnalyzer interface {
	Analyze(rawURL string) analyzer.Analysis
}

// DraftGenerator produces outreach and follow-up email drafts.
type DraftGenerator interface {
	Generate(ctx context.Context, prospect content.Prospect) (content.Draft, error)
	GenerateFollowup(ctx context.Context, prospect content.FollowupProspect) (content.Draft, error)
}

// Dispatcher delivers a single email.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LeadStore is the slice of lead persistence the runners need.
type LeadStore interface {
	UpsertNew(ctx context.Context, lead *entity.Lead) error
	MarkSent(ctx context.Context, companyName string, sentAt time.Time) error
	IncrementFollowup(ctx context.Context, companyName string, at time.Time) error
	FetchFollowupCandidates(ctx context.Context, query repository.FollowupQuery) ([]entity.Lead, error)
}

// Deps collects the runner's collaborators.
type Deps struct {
	Discovery  Discovery
	Analyzer   SiteAnalyzer
	Generator  DraftGenerator
	Store      LeadStore
	Dispatcher Dispatcher
	Waiter     Waiter
	Logger     *zap.Logger
}

// RunnerConfig carries the per-run settings.
type RunnerConfig struct {
	Search          places.SearchParams
	MaxEmailsPerDay int
	SendDelay       time.Duration
	PhoneRegion     string
}

// Runner drives one discovery-to-dispatch campaign pass.
type Runner struct {
	deps Deps
	cfg  RunnerConfig
	now  func() time.Time
}

// NewRunner wires a campaign runner. A nil Waiter or Logger gets a safe
// default so callers only inject what they care about.
func NewRunner(deps Deps, cfg RunnerConfig) *Runner {
	if deps.Waiter == nil {
		deps.Waiter = SleepWaiter{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.PhoneRegion == "" {
		cfg.PhoneRegion = defaultPhoneRegion
	}
	return &Runner{deps: deps, cfg: cfg, now: time.Now}
}

type candidate struct {
	place places.Place
	score int
}

// Run executes the full funnel: discover, score, enrich, analyze, generate,
// persist and dispatch. Infrastructure failures (discovery, the store) abort
// the run; per-candidate failures are counted and the run moves on.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	summary := NewRunSummary(uuid.New())
	log := r.deps.Logger.With(zap.String("run_id", summary.RunID.String()))

	log.Info("starting campaign run",
		zap.String("query", r.cfg.Search.Query),
		zap.Int("max_emails", r.cfg.MaxEmailsPerDay))

	found, err := r.deps.Discovery.TextSearch(ctx, r.cfg.Search)
	if err != nil {
		return summary, fmt.Errorf("discover places: %w", err)
	}
	summary.Discovered = len(found)

	var qualified []candidate
	for _, place := range found {
		score := scoring.Score(scoring.Signals{
			Name:         place.Name,
			Rating:       place.Rating,
			ReviewsTotal: place.UserRatingsTotal,
		})
		if score < qualifyThreshold {
			summary.skip(SkipLowScore)
			continue
		}
		qualified = append(qualified, candidate{place: place, score: score})
	}
	summary.Qualified = len(qualified)

	// Highest score first; ties keep discovery order.
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].score > qualified[j].score
	})
	if len(qualified) > maxCandidatesPerRun {
		for range qualified[maxCandidatesPerRun:] {
			summary.skip(SkipRunLimitReached)
		}
		qualified = qualified[:maxCandidatesPerRun]
	}

	for i, cand := range qualified {
		if summary.Sent >= r.cfg.MaxEmailsPerDay {
			summary.skip(SkipDailyCapReached)
			continue
		}
		dispatched, err := r.processCandidate(ctx, log, summary, cand)
		if err != nil {
			return summary, err
		}
		// Pace only between dispatches; skips cost no wall-clock time and
		// the final dispatch of a run is not followed by a delay.
		if dispatched && summary.Sent < r.cfg.MaxEmailsPerDay && i < len(qualified)-1 {
			r.deps.Waiter.Wait(r.cfg.SendDelay)
		}
	}

	log.Info("campaign run finished",
		zap.Int("discovered", summary.Discovered),
		zap.Int("qualified", summary.Qualified),
		zap.Int("sent", summary.Sent),
		zap.Int("skipped", summary.TotalSkipped()))
	return summary, nil
}

// processCandidate walks one candidate through enrich, generate, persist and
// dispatch. It reports whether an email actually went out so the caller can
// decide on pacing; the error return is reserved for fatal store failures.
func (r *Runner) processCandidate(ctx context.Context, log *zap.Logger, summary *RunSummary, cand candidate) (bool, error) {
	log = log.With(zap.String("company", cand.place.Name), zap.Int("score", cand.score))

	details, err := r.deps.Discovery.Details(ctx, cand.place.PlaceID)
	if err != nil {
		log.Warn("place details unavailable", zap.Error(err))
		summary.skip(SkipDetailsUnavailable)
		return false, nil
	}

	website := strings.TrimSpace(details.Website)
	if website == "" {
		log.Debug("no website, skipping")
		summary.skip(SkipNoWebsite)
		return false, nil
	}
	summary.Enriched++

	analysis := r.deps.Analyzer.Analyze(website)
	finalScore := scoring.Refine(cand.score, analysis.AutomationPotential)
	if finalScore < finalThreshold {
		log.Debug("final score below threshold", zap.Int("final_score", finalScore))
		summary.skip(SkipLowFinalScore)
		return false, nil
	}

	draft, err := r.deps.Generator.Generate(ctx, content.Prospect{
		Name:     cand.place.Name,
		Category: strings.Join(cand.place.Types, ", "),
		Location: cand.place.FormattedAddress,
	})
	if err != nil {
		log.Warn("draft generation failed", zap.Error(err))
		summary.skip(SkipGenerationFailed)
		return false, nil
	}
	summary.Generated++

	lead := r.buildLead(summary.RunID, cand, details, finalScore, draft)
	if err := r.deps.Store.UpsertNew(ctx, lead); err != nil {
		return false, fmt.Errorf("persist lead %q: %w", cand.place.Name, err)
	}

	to, err := mailer.DeriveRecipient(website)
	if err != nil {
		log.Warn("could not derive recipient", zap.Error(err))
		summary.skip(SkipInvalidRecipient)
		return false, nil
	}

	if err := r.deps.Dispatcher.Send(ctx, to, draft.Subject, draft.Body); err != nil {
		// The lead stays pending; a later run may reach it again through
		// discovery since pending rows are never re-dispatched directly.
		log.Warn("dispatch failed", zap.String("to", to), zap.Error(err))
		summary.skip(SkipDispatchFailed)
		return false, nil
	}

	if err := r.deps.Store.MarkSent(ctx, cand.place.Name, r.now()); err != nil {
		return true, fmt.Errorf("mark lead %q sent: %w", cand.place.Name, err)
	}
	summary.Sent++
	log.Info("email dispatched", zap.String("to", to), zap.Int("final_score", finalScore))
	return true, nil
}

func (r *Runner) buildLead(runID uuid.UUID, cand candidate, details places.Details, finalScore int, draft content.Draft) *entity.Lead {
	lead := &entity.Lead{
		CampaignRunID: &runID,
		CompanyName:   cand.place.Name,
		Score:         finalScore,
		Status:        entity.LeadStatusPending,
	}
	if addr := strings.TrimSpace(cand.place.FormattedAddress); addr != "" {
		lead.Address = &addr
	}
	if phone := normalizePhone(details.Phone, r.cfg.PhoneRegion); phone != "" {
		lead.Phone = &phone
	}
	if website := strings.TrimSpace(details.Website); website != "" {
		lead.Website = &website
	}
	if draft.Subject != "" {
		subject := draft.Subject
		lead.EmailSubject = &subject
	}
	if draft.Body != "" {
		body := draft.Body
		lead.EmailBody = &body
	}
	return lead
}

// normalizePhone renders the provider's formatted number as E.164 when it
// parses; otherwise the raw string is kept as-is.
func normalizePhone(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
