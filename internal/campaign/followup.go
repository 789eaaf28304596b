package campaign

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/octobees/lead-campaign/internal/content"
	"github.com/octobees/lead-campaign/internal/mailer"
	"github.com/octobees/lead-campaign/internal/repository"
)

const (
	followupStalenessDays = 3
	followupMaxPerLead    = 2
	followupBatchLimit    = 10
)

// FollowupSummary reports one follow-up pass.
type FollowupSummary struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
}

// FollowupRunner re-contacts leads that were emailed but never answered.
type FollowupRunner struct {
	generator  DraftGenerator
	store      LeadStore
	dispatcher Dispatcher
	waiter     Waiter
	logger     *zap.Logger
	sendDelay  time.Duration
	now        func() time.Time
}

// NewFollowupRunner wires a follow-up runner.
func NewFollowupRunner(generator DraftGenerator, store LeadStore, dispatcher Dispatcher, waiter Waiter, logger *zap.Logger, sendDelay time.Duration) *FollowupRunner {
	if waiter == nil {
		waiter = SleepWaiter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowupRunner{
		generator:  generator,
		store:      store,
		dispatcher: dispatcher,
		waiter:     waiter,
		logger:     logger,
		sendDelay:  sendDelay,
		now:        time.Now,
	}
}

// Run fetches eligible leads and sends one follow-up each. The follow-up
// counter only advances after a successful dispatch, so a failed send leaves
// the lead eligible for the next pass.
func (r *FollowupRunner) Run(ctx context.Context) (*FollowupSummary, error) {
	leads, err := r.store.FetchFollowupCandidates(ctx, repository.FollowupQuery{
		StalenessDays: followupStalenessDays,
		MaxFollowups:  followupMaxPerLead,
		Limit:         followupBatchLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch follow-up candidates: %w", err)
	}

	summary := &FollowupSummary{Candidates: len(leads)}
	r.logger.Info("starting follow-up run", zap.Int("candidates", len(leads)))

	for i, lead := range leads {
		log := r.logger.With(zap.String("company", lead.CompanyName))

		previousSubject := ""
		if lead.EmailSubject != nil {
			previousSubject = *lead.EmailSubject
		}
		draft, err := r.generator.GenerateFollowup(ctx, content.FollowupProspect{
			CompanyName:     lead.CompanyName,
			PreviousSubject: previousSubject,
		})
		if err != nil {
			log.Warn("follow-up generation failed", zap.Error(err))
			summary.Skipped++
			continue
		}

		if lead.Website == nil {
			log.Warn("lead has no website on record")
			summary.Skipped++
			continue
		}
		to, err := mailer.DeriveRecipient(*lead.Website)
		if err != nil {
			log.Warn("could not derive recipient", zap.Error(err))
			summary.Skipped++
			continue
		}

		if err := r.dispatcher.Send(ctx, to, draft.Subject, draft.Body); err != nil {
			log.Warn("follow-up dispatch failed", zap.String("to", to), zap.Error(err))
			summary.Skipped++
			continue
		}

		if err := r.store.IncrementFollowup(ctx, lead.CompanyName, r.now()); err != nil {
			return summary, fmt.Errorf("record follow-up for %q: %w", lead.CompanyName, err)
		}
		summary.Sent++
		log.Info("follow-up dispatched", zap.String("to", to), zap.Int("followup_count", lead.FollowupCount+1))

		if i < len(leads)-1 {
			r.waiter.Wait(r.sendDelay)
		}
	}

	r.logger.Info("follow-up run finished", zap.Int("sent", summary.Sent), zap.Int("skipped", summary.Skipped))
	return summary, nil
}
