package crm

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/signaldesk/backend/internal/domain/crm"
	"github.com/signaldesk/backend/internal/infrastructure/retry"
)

// SyncService orchestrates pushing signals into connected CRMs and exposes
// the sync audit trail.
type SyncService struct {
	integrations crm.IntegrationRepository
	syncLogs     crm.SyncLogRepository
	signals      crm.SignalRepository
	registry     crm.ProviderRegistry
	logger       *zap.Logger
	retryPolicy  retry.Policy
}

// NewSyncService creates a new SyncService
func NewSyncService(
	integrations crm.IntegrationRepository,
	syncLogs crm.SyncLogRepository,
	signals crm.SignalRepository,
	registry crm.ProviderRegistry,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		integrations: integrations,
		syncLogs:     syncLogs,
		signals:      signals,
		registry:     registry,
		logger:       logger,
		retryPolicy:  retry.DefaultPolicy(),
	}
}

// WithRetryPolicy overrides the backoff policy used for audit-trail writes
func (s *SyncService) WithRetryPolicy(p retry.Policy) *SyncService {
	s.retryPolicy = p
	return s
}

// PushSignal fans the signal out to the selected integrations. When
// integrationID is set, that single integration is targeted regardless of
// its auto-sync setting; otherwise every auto-sync-enabled integration of
// the user participates. Each integration syncs independently; one failing
// never cancels the others.
func (s *SyncService) PushSignal(ctx context.Context, userID, signalID uuid.UUID, integrationID *uuid.UUID) (*PushSignalResponse, error) {
	signal, err := s.signals.FindByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if signal.UserID != userID {
		return nil, crm.ErrSignalNotFound
	}

	integrations, err := s.selectIntegrations(ctx, userID, integrationID)
	if err != nil {
		return nil, err
	}
	if len(integrations) == 0 {
		return nil, crm.ErrNoIntegrations
	}

	results := make([]SyncResult, len(integrations))
	g := new(errgroup.Group)
	for i := range integrations {
		i := i
		g.Go(func() error {
			results[i] = s.syncOne(ctx, &integrations[i], signal)
			return nil
		})
	}
	// Tasks never return errors, so Wait is only a join point
	_ = g.Wait()

	summary := SyncSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
	}

	s.logger.Info("Signal sync completed",
		zap.String("signal_id", signalID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("total", summary.Total),
		zap.Int("failed", summary.Failed))

	return &PushSignalResponse{
		Success: summary.Failed == 0,
		Results: results,
		Summary: summary,
	}, nil
}

func (s *SyncService) selectIntegrations(ctx context.Context, userID uuid.UUID, integrationID *uuid.UUID) ([]crm.Integration, error) {
	if integrationID != nil {
		integration, err := s.integrations.FindByUserAndID(ctx, userID, *integrationID)
		if err != nil {
			return nil, err
		}
		return []crm.Integration{*integration}, nil
	}
	return s.integrations.FindAutoSyncEnabled(ctx, userID)
}

// syncOne pushes the signal into one integration, bracketed by an
// append-only log row. Provider failures are captured into the row and the
// result, never raised.
func (s *SyncService) syncOne(ctx context.Context, integration *crm.Integration, signal *crm.Signal) SyncResult {
	result := SyncResult{
		IntegrationID: integration.ID,
		Provider:      integration.Provider,
	}

	log := crm.NewSyncLog(integration.ID, signal.ID, integration.UserID)
	err := retry.Do(ctx, s.retryPolicy, s.logger, "synclog.create", func(ctx context.Context) error {
		return s.syncLogs.Create(ctx, log)
	})
	if err != nil {
		s.logger.Error("Failed to create sync log",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}

	outcome := s.pushOutcome(ctx, integration, signal)

	if err := log.Complete(outcome); err == nil {
		err = retry.Do(ctx, s.retryPolicy, s.logger, "synclog.finalize", func(ctx context.Context) error {
			return s.syncLogs.Finalize(ctx, log)
		})
		if err != nil {
			s.logger.Error("Failed to finalize sync log",
				zap.String("sync_log_id", log.ID.String()),
				zap.Error(err))
		}
	}

	result.Success = outcome.Success
	result.CompanyID = outcome.CompanyID
	result.ContactID = outcome.ContactID
	result.DealID = outcome.DealID
	result.NoteID = outcome.NoteID
	result.Error = outcome.Error
	return result
}

func (s *SyncService) pushOutcome(ctx context.Context, integration *crm.Integration, signal *crm.Signal) *crm.SyncOutcome {
	if err := integration.AcceptsSignal(signal); err != nil {
		return &crm.SyncOutcome{Success: false, Error: err.Error()}
	}

	client, err := s.registry.Client(integration.Provider)
	if err != nil {
		return &crm.SyncOutcome{Success: false, Error: err.Error()}
	}

	outcome, err := client.PushSignal(ctx, integration, signal)
	if err != nil {
		return &crm.SyncOutcome{Success: false, Error: err.Error()}
	}
	return outcome
}

// History returns the caller's sync history, newest first
func (s *SyncService) History(ctx context.Context, userID uuid.UUID, signalID *uuid.UUID, limit int) ([]SyncLogResponse, error) {
	logs, err := s.syncLogs.FindByUser(ctx, userID, crm.HistoryFilter{SignalID: signalID, Limit: limit})
	if err != nil {
		return nil, err
	}
	responses := make([]SyncLogResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, ToSyncLogResponse(&logs[i]))
	}
	return responses, nil
}
