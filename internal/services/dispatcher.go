package services

import (
	"context"
	"time"

	"github.com/igorsal/commit-bridge/internal/interfaces"
	"github.com/igorsal/commit-bridge/internal/models"
	pkgerrors "github.com/igorsal/commit-bridge/pkg/errors"
)

// DefaultCallTimeout bounds a tracker call when no timeout is configured
const DefaultCallTimeout = 10 * time.Second

// Secrets holds the per-provider webhook secrets
type Secrets map[models.Provider]string

// Dispatcher runs a delivery through verify, normalize, comment and status update
type Dispatcher struct {
	secrets    Secrets
	normalizer *Normalizer
	mappings   interfaces.StatusMappingSource
	tracker    interfaces.TrackerClient
	timeout    time.Duration
	logger     interfaces.Logger
	metrics    interfaces.MetricsCollector
}

// NewDispatcher creates a new dispatcher. callTimeout bounds every tracker call.
func NewDispatcher(
	secrets Secrets,
	mappings interfaces.StatusMappingSource,
	tracker interfaces.TrackerClient,
	callTimeout time.Duration,
	logger interfaces.Logger,
	metrics interfaces.MetricsCollector,
) *Dispatcher {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Dispatcher{
		secrets:    secrets,
		normalizer: NewNormalizer(),
		mappings:   mappings,
		tracker:    tracker,
		timeout:    callTimeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// Dispatch authenticates and processes one delivery. Only authentication and
// parse failures are returned as errors; tracker failures are recorded in the
// result's outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, raw models.RawWebhook) (*models.DispatchResult, error) {
	log := d.logger.With("delivery_id", raw.DeliveryID, "provider", string(raw.Provider))
	result := &models.DispatchResult{
		DeliveryID: raw.DeliveryID,
		Provider:   raw.Provider,
	}

	if _, known := eventHeaders[raw.Provider]; !known {
		result.Kind = models.EventKindIgnored
		result.Reason = "unsupported provider"
		d.countEvent(raw.Provider, string(result.Kind))
		return result, nil
	}

	if !Verify(raw.Provider, raw.Headers, raw.Body, d.secrets[raw.Provider]) {
		log.Warn("Webhook authentication failed")
		d.countEvent(raw.Provider, "rejected_auth")
		return nil, pkgerrors.NewUnauthorizedError("webhook authentication failed").
			WithContext("provider", string(raw.Provider))
	}

	event, err := d.normalizer.Normalize(raw.Provider, raw.Headers, raw.Body)
	if err != nil {
		log.Warn("Webhook payload rejected", "error", err.Error())
		d.countEvent(raw.Provider, "rejected_parse")
		return nil, err
	}

	result.Kind = event.Kind()
	d.countEvent(raw.Provider, string(result.Kind))

	switch e := event.(type) {
	case models.PushEvent:
		d.handlePush(ctx, log, e, result)
	case models.BranchCreateEvent:
		d.handleBranchCreate(ctx, log, e, result)
	case models.IgnoredEvent:
		result.Reason = e.Reason
		log.Debug("Webhook ignored", "reason", e.Reason)
		return result, nil
	default:
		log.Debug("Webhook needs no processing", "kind", string(result.Kind))
		return result, nil
	}

	d.report(log, result)
	return result, nil
}

func (d *Dispatcher) handlePush(ctx context.Context, log interfaces.Logger, event models.PushEvent, result *models.DispatchResult) {
	var touched []int
	seen := make(map[int]struct{})

	for _, commit := range event.Commits {
		ids := ExtractIssueIDs(commit.Message)
		if len(ids) == 0 {
			log.Debug("Commit references no issue", "commit_id", commit.ID)
			continue
		}

		log.Debug("Commit references issues", "commit_id", commit.ID, "author", commit.Author, "issue_ids", ids)

		body := RenderCommit(commit)
		for _, id := range ids {
			outcome := d.comment(ctx, log, models.CommentDraft{IssueID: id, Body: body})
			outcome.CommitID = commit.ID
			result.Outcomes = append(result.Outcomes, outcome)

			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				touched = append(touched, id)
			}
		}
	}

	d.applyStatus(ctx, log, event, touched, result)
}

func (d *Dispatcher) handleBranchCreate(ctx context.Context, log interfaces.Logger, event models.BranchCreateEvent, result *models.DispatchResult) {
	ids := ExtractIssueIDs(event.RefName)
	if len(ids) == 0 {
		log.Debug("Branch references no issue", "branch", event.RefName)
		return
	}

	body := RenderBranchCreated(event.Repository, event.RefName)
	for _, id := range ids {
		result.Outcomes = append(result.Outcomes, d.comment(ctx, log, models.CommentDraft{IssueID: id, Body: body}))
	}

	d.applyStatus(ctx, log, event, ids, result)
}

// applyStatus sets the resolved status once per distinct issue. It runs only
// after every comment of the event has completed or failed.
func (d *Dispatcher) applyStatus(ctx context.Context, log interfaces.Logger, event models.Event, ids []int, result *models.DispatchResult) {
	if len(ids) == 0 {
		return
	}

	key, ok := ResolveStatus(event)
	if !ok {
		return
	}

	statusID, ok := d.mappings.Current().Lookup(key)
	if !ok {
		log.Info("No tracker status mapped, skipping status update", "status_key", string(key), "issue_ids", ids)
		for _, id := range ids {
			result.Outcomes = append(result.Outcomes, models.IssueOutcome{
				IssueID:   id,
				Action:    models.ActionStatus,
				Result:    models.ResultSkipped,
				StatusKey: key,
			})
		}
		return
	}

	for _, id := range ids {
		outcome := models.IssueOutcome{IssueID: id, Action: models.ActionStatus, StatusKey: key, Result: models.ResultOK}
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		if err := d.tracker.SetStatus(callCtx, id, statusID); err != nil {
			outcome.Result = models.ResultFailed
			outcome.Error = err.Error()
			log.Error("Failed to update issue status", err, "issue_id", id, "status_key", string(key), "status_id", statusID)
		}
		cancel()
		result.Outcomes = append(result.Outcomes, outcome)
	}
}

func (d *Dispatcher) comment(ctx context.Context, log interfaces.Logger, draft models.CommentDraft) models.IssueOutcome {
	outcome := models.IssueOutcome{IssueID: draft.IssueID, Action: models.ActionComment, Result: models.ResultOK}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := d.tracker.AddComment(callCtx, draft.IssueID, draft.Body); err != nil {
		outcome.Result = models.ResultFailed
		outcome.Error = err.Error()
		log.Error("Failed to add issue comment", err, "issue_id", draft.IssueID)
	}
	return outcome
}

// report logs every outcome of the delivery in one entry
func (d *Dispatcher) report(log interfaces.Logger, result *models.DispatchResult) {
	for _, o := range result.Outcomes {
		d.metrics.IncrementCounter("issue_actions_total", map[string]string{
			"provider": string(result.Provider),
			"action":   string(o.Action),
			"result":   string(o.Result),
		})
	}

	if failed := result.Failed(); failed > 0 {
		log.Warn("Webhook processed with tracker failures",
			"kind", string(result.Kind),
			"failed", failed,
			"outcomes", result.Outcomes,
		)
		return
	}
	log.Info("Webhook processed",
		"kind", string(result.Kind),
		"outcomes", result.Outcomes,
	)
}

func (d *Dispatcher) countEvent(provider models.Provider, kind string) {
	d.metrics.IncrementCounter("webhook_events_total", map[string]string{
		"provider": string(provider),
		"kind":     kind,
	})
}
