package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/constants"
	"github.com/cyphera/sdd-notifier/internal/dedup"
	"github.com/cyphera/sdd-notifier/internal/metrics"
	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/publisher"
	"github.com/cyphera/sdd-notifier/internal/render"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// SDDConfig holds batch processing options.
type SDDConfig struct {
	// IncludeCSV attaches a CSV artifact next to the PDF.
	IncludeCSV bool
	// Concurrency above 1 enables parallel processing when the dedup store can
	// claim atomically and the transport is safe for concurrent use.
	Concurrency int
	// RequestTypes lists the accepted request types. Empty means SDD only.
	RequestTypes []string
}

// SDDDependencies are the collaborators of SDDService. Publisher and Metrics
// are optional.
type SDDDependencies struct {
	Decryptor  *cardcrypto.Decryptor
	Gate       *dedup.Gate
	Renderer   *render.Renderer
	Assembler  *notify.Assembler
	Dispatcher *notify.Dispatcher
	Publisher  publisher.OutcomePublisher
	Metrics    *metrics.Metrics
}

type SDDService struct {
	decryptor    *cardcrypto.Decryptor
	gate         *dedup.Gate
	renderer     *render.Renderer
	assembler    *notify.Assembler
	dispatcher   *notify.Dispatcher
	publisher    publisher.OutcomePublisher
	metrics      *metrics.Metrics
	logger       *zap.Logger
	cfg          SDDConfig
	requestTypes map[string]struct{}
	now          func() time.Time
}

func NewSDDService(deps SDDDependencies, cfg SDDConfig, logger *zap.Logger) *SDDService {
	types := cfg.RequestTypes
	if len(types) == 0 {
		types = []string{constants.RequestTypeSDD}
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[strings.TrimSpace(t)] = struct{}{}
	}

	pub := deps.Publisher
	if pub == nil {
		pub = publisher.NopPublisher{}
	}

	return &SDDService{
		decryptor:    deps.Decryptor,
		gate:         deps.Gate,
		renderer:     deps.Renderer,
		assembler:    deps.Assembler,
		dispatcher:   deps.Dispatcher,
		publisher:    pub,
		metrics:      deps.Metrics,
		logger:       logger,
		cfg:          cfg,
		requestTypes: allowed,
		now:          time.Now,
	}
}

// notifiableRecord is a record that passed the opt-in filter, with its
// position in the request.
type notifiableRecord struct {
	index  int
	detail business.PayeeDetail
}

// SendOneAtATime notifies every opted-in payee of the request. Records are
// processed in input order and a failing record never stops the batch: its
// failure is reported in the outcome. The only error returned is
// *BatchFatalError for a request that cannot be processed at all.
func (s *SDDService) SendOneAtATime(ctx context.Context, req *business.NotifyRequest) (*business.BatchOutcome, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	outcome := &business.BatchOutcome{
		BatchID:     uuid.New(),
		RequestType: req.RequestType,
		StartedAt:   s.now().UTC(),
	}

	var records []notifiableRecord
	for i, detail := range req.Details {
		if !detail.IsNotifiable() {
			outcome.ExcludedTransactionIDs = append(outcome.ExcludedTransactionIDs, detail.TransactionID)
			continue
		}
		records = append(records, notifiableRecord{index: i, detail: detail})
	}

	s.logger.Info("processing notification batch",
		zap.String("batch_id", outcome.BatchID.String()),
		zap.String("request_type", req.RequestType),
		zap.Int("records", len(req.Details)),
		zap.Int("notifiable", len(records)))

	outcome.Results = make([]business.RecordOutcome, len(records))
	if s.parallel() {
		s.processParallel(ctx, req, records, outcome.Results)
	} else {
		for i, rec := range records {
			outcome.Results[i] = s.processRecord(ctx, req, rec, false)
		}
	}

	outcome.CompletedAt = s.now().UTC()
	outcome.Tally()
	s.finish(ctx, outcome)

	return outcome, nil
}

func (s *SDDService) validateRequest(req *business.NotifyRequest) error {
	if req == nil {
		return &BatchFatalError{Reason: "request is nil"}
	}
	if req.Details == nil {
		return &BatchFatalError{Reason: "request has no payee details"}
	}
	if _, ok := s.requestTypes[req.RequestType]; !ok {
		return &BatchFatalError{Reason: fmt.Sprintf("unknown request type %q", req.RequestType)}
	}
	return nil
}

// parallel reports whether records may be processed concurrently.
func (s *SDDService) parallel() bool {
	if s.cfg.Concurrency <= 1 {
		return false
	}
	if !s.gate.SupportsClaim() || !s.dispatcher.ConcurrencySafe() {
		s.logger.Warn("concurrency requested but collaborators are not safe for it, processing sequentially",
			zap.Int("concurrency", s.cfg.Concurrency),
			zap.Bool("store_claims", s.gate.SupportsClaim()),
			zap.Bool("transport_concurrent", s.dispatcher.ConcurrencySafe()))
		return false
	}
	return true
}

// processParallel fills results concurrently. Each goroutine owns one slot.
func (s *SDDService) processParallel(ctx context.Context, req *business.NotifyRequest, records []notifiableRecord, results []business.RecordOutcome) {
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)

	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = s.processRecord(ctx, req, rec, true)
			return nil
		})
	}
	_ = g.Wait()
}

// processRecord runs one record through dedup, decrypt, render, assemble and
// dispatch. With claim set the dedup check is an atomic claim that is released
// again if the record does not end up sent.
func (s *SDDService) processRecord(ctx context.Context, req *business.NotifyRequest, rec notifiableRecord, claim bool) (out business.RecordOutcome) {
	detail := rec.detail
	out = business.RecordOutcome{
		Index:         rec.index,
		TransactionID: detail.TransactionID,
		PayeeKey:      detail.PayeeKey(),
	}
	log := s.logger.With(
		zap.Int("index", rec.index),
		zap.String("transaction_id", detail.TransactionID),
		zap.String("payee_key", out.PayeeKey))

	claimed := false
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing record", zap.Any("panic", r))
			out = s.failed(out, fmt.Errorf("panic: %v", r))
		}
		if claimed && out.Status != business.RecordSent {
			if err := s.gate.Release(context.WithoutCancel(ctx), detail.TransactionID, out.PayeeKey); err != nil {
				log.Warn("failed to release dedup claim", zap.Error(err))
			}
		}
		s.logOutcome(log, out)
	}()

	if claim {
		ok, err := s.gate.Claim(ctx, detail.TransactionID, out.PayeeKey, req.RequestType)
		if err != nil {
			return s.failed(out, err)
		}
		if !ok {
			out.Status = business.RecordSkippedDuplicate
			return out
		}
		claimed = true
	} else {
		exists, err := s.gate.Exists(ctx, detail.TransactionID, out.PayeeKey)
		if err != nil {
			return s.failed(out, err)
		}
		if exists {
			out.Status = business.RecordSkippedDuplicate
			return out
		}
	}

	artifacts, err := s.renderArtifacts(ctx, detail, req.RequestType)
	if err != nil {
		return s.failed(out, err)
	}

	unit, err := s.assembler.Assemble(detail, artifacts, recipientFor(req.EmailMap, detail), req.RequestType)
	if err != nil {
		return s.failed(out, err)
	}

	result := s.dispatcher.Send(ctx, unit)
	out.Attempts = result.Attempts
	if result.Err != nil {
		return s.failed(out, result.Err)
	}

	out.Status = business.RecordSent
	out.MessageID = result.MessageID

	if err := s.gate.Record(ctx, detail.TransactionID, out.PayeeKey, req.RequestType, result.MessageID); err != nil {
		log.Error("notification sent but not recorded, it may be sent again", zap.Error(err))
	}
	return out
}

// renderArtifacts decrypts the card only for as long as rendering needs it.
func (s *SDDService) renderArtifacts(ctx context.Context, detail business.PayeeDetail, requestType string) ([]business.RenderedArtifact, error) {
	card, err := s.decryptor.DecryptCard(ctx, detail.Card)
	if err != nil {
		return nil, err
	}
	defer card.Wipe()

	return s.renderer.Render(ctx, detail, card, requestType, s.cfg.IncludeCSV)
}

func (s *SDDService) failed(out business.RecordOutcome, err error) business.RecordOutcome {
	out.Status = business.RecordFailed
	out.ErrorKind, out.Reason = ClassifyError(err)
	return out
}

func (s *SDDService) logOutcome(log *zap.Logger, out business.RecordOutcome) {
	switch out.Status {
	case business.RecordFailed:
		log.Warn("record failed",
			zap.String("error_kind", out.ErrorKind),
			zap.String("reason", out.Reason))
	case business.RecordSkippedDuplicate:
		log.Info("record already notified, skipping")
	default:
		log.Info("record notified",
			zap.String("message_id", out.MessageID),
			zap.Int("attempts", out.Attempts))
	}
}

// finish records metrics, publishes the outcome and logs the summary.
func (s *SDDService) finish(ctx context.Context, outcome *business.BatchOutcome) {
	s.metrics.ObserveBatch(outcome)

	if err := s.publisher.Publish(ctx, outcome); err != nil {
		s.logger.Error("failed to publish batch outcome",
			zap.String("batch_id", outcome.BatchID.String()),
			zap.Error(err))
	}

	s.logger.Info("notification batch completed",
		zap.String("batch_id", outcome.BatchID.String()),
		zap.String("request_type", outcome.RequestType),
		zap.Int("total", outcome.Total),
		zap.Int("sent", outcome.Sent),
		zap.Int("skipped_duplicate", outcome.SkippedDuplicate),
		zap.Int("failed", outcome.Failed),
		zap.Int("excluded", outcome.Excluded),
		zap.Duration("duration", outcome.CompletedAt.Sub(outcome.StartedAt)))
}

// recipientFor looks up the payee's address by payee key, then by transaction ID.
func recipientFor(emails map[string]string, detail business.PayeeDetail) string {
	if email, ok := emails[detail.PayeeKey()]; ok {
		return email
	}
	return emails[detail.TransactionID]
}
