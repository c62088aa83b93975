package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"evtracker/internal/charging"
	"evtracker/internal/db"
	"evtracker/internal/metrics"
	"evtracker/internal/models"
)

// DispatchSource returns the scheduler's completed dispatch records for a
// date range.
type DispatchSource interface {
	CompletedDispatches(ctx context.Context, from, to time.Time) ([]charging.RawRecord, error)
}

// ConsumptionSource returns raw meter consumption samples for a date range.
type ConsumptionSource interface {
	Consumption(ctx context.Context, from, to time.Time) ([]charging.RawRecord, error)
}

// SessionStore is the persistence collaborator. The importer decides which
// operation to call and with what payload; it performs no storage I/O
// itself.
type SessionStore interface {
	Insert(ctx context.Context, s *models.ChargingSession) error
	Update(ctx context.Context, s *models.ChargingSession) error
	DeleteMany(ctx context.Context, ids []string) error
	FindOverlapping(ctx context.Context, start, end time.Time, gap time.Duration) ([]models.ChargingSession, error)
}

// SummaryStore records the per-run outcome.
type SummaryStore interface {
	SaveLastImport(ctx context.Context, summary models.ImportSummary) error
}

// Notifier receives finished run summaries, e.g. the websocket hub feeding
// the dashboard.
type Notifier interface {
	ImportCompleted(summary models.ImportSummary)
}

// Options tune segmentation and annotation for one importer instance.
type Options struct {
	ThresholdKWh     float64
	ConsumptionGap   time.Duration
	DispatchGap      time.Duration
	RateOverride     *float64
	SameLocationOnly bool
	Vehicle          string
	LookbackDays     int
}

// Importer runs one batch at a time: fetch, normalize, segment, reconcile
// against stored sessions, annotate and hand the rows to the store. Runs
// against overlapping windows must not execute concurrently; the candidate
// query plus per-row update is not internally locked.
type Importer struct {
	dispatches  DispatchSource
	consumption ConsumptionSource
	store       SessionStore
	settings    SummaryStore
	notifier    Notifier
	formatter   *charging.CivilFormatter
	opts        Options
	logger      *zap.Logger
}

// New builds an importer. Sources may be nil when the corresponding import
// mode is not configured.
func New(
	dispatches DispatchSource,
	consumption ConsumptionSource,
	store SessionStore,
	settings SummaryStore,
	notifier Notifier,
	formatter *charging.CivilFormatter,
	opts Options,
	logger *zap.Logger,
) *Importer {
	if opts.ThresholdKWh <= 0 {
		opts.ThresholdKWh = charging.DefaultThresholdKWh
	}
	if opts.ConsumptionGap <= 0 {
		opts.ConsumptionGap = charging.DefaultConsumptionGap
	}
	if opts.DispatchGap <= 0 {
		opts.DispatchGap = charging.DefaultDispatchGap
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 3
	}
	return &Importer{
		dispatches:  dispatches,
		consumption: consumption,
		store:       store,
		settings:    settings,
		notifier:    notifier,
		formatter:   formatter,
		opts:        opts,
		logger:      logger,
	}
}

// RunDaily imports the trailing lookback window of completed dispatches.
// The window covers a few days because the scheduler reports dispatches
// with lag.
func (imp *Importer) RunDaily(ctx context.Context) (models.ImportSummary, error) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -imp.opts.LookbackDays)
	return imp.ImportDispatches(ctx, from, to)
}

// ImportDispatches runs the dispatch-mode pipeline over [from, to].
func (imp *Importer) ImportDispatches(ctx context.Context, from, to time.Time) (models.ImportSummary, error) {
	if imp.dispatches == nil {
		return models.ImportSummary{}, fmt.Errorf("importer: no dispatch source configured")
	}
	started := time.Now()

	records, err := imp.dispatches.CompletedDispatches(ctx, from, to)
	if err != nil {
		metrics.ObserveRun(models.ImportSummary{}, time.Since(started), true)
		return models.ImportSummary{}, fmt.Errorf("importer: fetch dispatches: %w", err)
	}

	blocks := imp.normalize(records, charging.NormalizeDispatch)
	sessions := charging.SegmentDispatches(blocks, imp.opts.DispatchGap, imp.opts.SameLocationOnly)
	summary, err := imp.persistDispatchSessions(ctx, sessions)
	imp.finishRun(ctx, &summary, started, err != nil)
	return summary, err
}

// ImportConsumption runs the consumption-mode pipeline over [from, to].
// Detected sessions are inserted directly; the idempotency key rejects exact
// re-imports.
func (imp *Importer) ImportConsumption(ctx context.Context, from, to time.Time) (models.ImportSummary, error) {
	if imp.consumption == nil {
		return models.ImportSummary{}, fmt.Errorf("importer: no consumption source configured")
	}
	started := time.Now()

	records, err := imp.consumption.Consumption(ctx, from, to)
	if err != nil {
		metrics.ObserveRun(models.ImportSummary{}, time.Since(started), true)
		return models.ImportSummary{}, fmt.Errorf("importer: fetch consumption: %w", err)
	}

	blocks := imp.normalize(records, charging.NormalizeConsumption)
	sessions := charging.SegmentConsumption(blocks, imp.opts.ThresholdKWh, imp.opts.ConsumptionGap)
	rate := charging.ResolveRate(imp.opts.RateOverride)

	summary := models.ImportSummary{Detected: len(sessions)}
	for _, session := range sessions {
		record := imp.buildRecord(session, rate, models.SourceOctopus)
		record.Cost = charging.Cost(session.TotalKWh, rate)
		record.Notes = fmt.Sprintf("Auto-imported from Octopus Energy (%d intervals)", session.BlockCount())
		imp.insert(ctx, record, &summary)
	}

	var runErr error
	if summary.Errors > 0 {
		runErr = fmt.Errorf("importer: completed with %d non-duplicate error(s)", summary.Errors)
	}
	imp.finishRun(ctx, &summary, started, runErr != nil)
	return summary, runErr
}

func (imp *Importer) normalize(records []charging.RawRecord, normalize func(charging.RawRecord) (charging.Block, bool)) []charging.Block {
	var blocks []charging.Block
	dropped := 0
	for _, rec := range records {
		block, ok := normalize(rec)
		if !ok {
			dropped++
			continue
		}
		blocks = append(blocks, block)
	}
	if dropped > 0 {
		imp.logger.Warn("dropped malformed provider records", zap.Int("dropped", dropped))
	}
	return blocks
}

func (imp *Importer) persistDispatchSessions(ctx context.Context, sessions []charging.Session) (models.ImportSummary, error) {
	rate := charging.ResolveRate(imp.opts.RateOverride)
	summary := models.ImportSummary{Detected: len(sessions)}

	for _, session := range sessions {
		cost := charging.Annotate(&session, rate)

		civilStart := imp.formatter.Local(session.Start)
		civilEnd := imp.formatter.Local(session.End)
		candidates, err := imp.store.FindOverlapping(ctx, civilStart, civilEnd, imp.opts.DispatchGap)
		if err != nil {
			summary.Errors++
			imp.logger.Error("candidate lookup failed", zap.Error(err))
			continue
		}

		if len(candidates) > 0 {
			imp.mergeInto(ctx, session, candidates, rate, &summary)
			continue
		}

		record := imp.buildRecord(session, rate, models.SourceOctopusGraphQL)
		record.Cost = cost
		imp.insert(ctx, record, &summary)
	}

	if summary.Errors > 0 {
		return summary, fmt.Errorf("importer: completed with %d non-duplicate error(s)", summary.Errors)
	}
	return summary, nil
}

// mergeInto folds the incoming session and every overlap candidate into one
// authoritative session, updates the newest candidate row in place and
// deletes the rows the merge subsumed.
func (imp *Importer) mergeInto(ctx context.Context, incoming charging.Session, candidates []models.ChargingSession, rate float64, summary *models.ImportSummary) {
	stored := make([]charging.Session, 0, len(candidates))
	for _, c := range candidates {
		stored = append(stored, charging.Session{Blocks: c.DispatchBlocks})
	}

	merged := charging.Merge(incoming, stored, imp.opts.DispatchGap)
	cost := charging.Annotate(&merged, rate)

	keep := candidates[0]
	record := imp.buildRecord(merged, rate, models.SourceOctopusGraphQL)
	record.ID = keep.ID
	record.Cost = cost
	record.Notes = keep.Notes
	record.StartSoC = keep.StartSoC
	record.EndSoC = keep.EndSoC
	if keep.Vehicle != nil {
		record.Vehicle = keep.Vehicle
	}

	if err := imp.store.Update(ctx, record); err != nil {
		summary.Errors++
		imp.logger.Error("merge update failed", zap.String("id", keep.ID), zap.Error(err))
		return
	}

	extra := make([]string, 0, len(candidates)-1)
	for _, c := range candidates[1:] {
		extra = append(extra, c.ID)
	}
	if err := imp.store.DeleteMany(ctx, extra); err != nil {
		summary.Errors++
		imp.logger.Error("subsumed row cleanup failed", zap.Error(err))
		return
	}

	summary.Updated++
	summary.TotalEnergy += record.EnergyAdded
	summary.TotalCost += record.Cost
	imp.logger.Info("merged session updated",
		zap.String("id", keep.ID),
		zap.String("date", record.Date),
		zap.Float64("energy_kwh", record.EnergyAdded),
		zap.Int("subsumed", len(extra)),
	)
}

func (imp *Importer) insert(ctx context.Context, record *models.ChargingSession, summary *models.ImportSummary) {
	record.ID = models.NewSessionID()
	err := imp.store.Insert(ctx, record)
	switch {
	case err == nil:
		summary.Inserted++
		summary.TotalEnergy += record.EnergyAdded
		summary.TotalCost += record.Cost
		imp.logger.Info("imported session",
			zap.String("id", record.ID),
			zap.String("date", record.Date),
			zap.String("start", record.StartTime),
			zap.Float64("energy_kwh", record.EnergyAdded),
		)
	case db.IsUniqueViolation(err):
		summary.Skipped++
		imp.logger.Info("skipped duplicate session",
			zap.String("date", record.Date),
			zap.String("start", record.StartTime),
		)
	default:
		summary.Errors++
		imp.logger.Error("session insert failed",
			zap.String("date", record.Date),
			zap.Error(err),
		)
	}
}

// buildRecord renders a detected session into a persistable row: civil
// presentation fields, tariff, idempotency key and constituent blocks.
func (imp *Importer) buildRecord(session charging.Session, rate float64, source string) *models.ChargingSession {
	record := &models.ChargingSession{
		Date:             imp.formatter.Date(session.Start),
		StartTime:        imp.formatter.Time(session.Start),
		EndTime:          imp.formatter.Time(session.End),
		EnergyAdded:      session.TotalKWh,
		TariffRate:       rate,
		Source:           source,
		OctopusSessionID: charging.SessionKey(session.Start, session.End, session.BlockCount()),
		DispatchCount:    session.BlockCount(),
		DispatchBlocks:   session.Blocks,
	}
	if imp.opts.Vehicle != "" {
		vehicle := imp.opts.Vehicle
		record.Vehicle = &vehicle
	}
	return record
}

func (imp *Importer) finishRun(ctx context.Context, summary *models.ImportSummary, started time.Time, failed bool) {
	summary.Timestamp = time.Now().UTC()

	if imp.settings != nil {
		if err := imp.settings.SaveLastImport(ctx, *summary); err != nil {
			imp.logger.Warn("failed to store last import summary", zap.Error(err))
		}
	}
	if imp.notifier != nil {
		imp.notifier.ImportCompleted(*summary)
	}
	metrics.ObserveRun(*summary, time.Since(started), failed)

	imp.logger.Info("import run finished",
		zap.Int("detected", summary.Detected),
		zap.Int("inserted", summary.Inserted),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
		zap.Int("errors", summary.Errors),
		zap.Float64("total_energy_kwh", summary.TotalEnergy),
		zap.Float64("total_cost_gbp", summary.TotalCost),
	)
}
