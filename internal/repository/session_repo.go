package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"evtracker/internal/charging"
	"evtracker/internal/models"
)

// ErrSessionNotFound indicates a missing session row.
var ErrSessionNotFound = errors.New("session not found")

const sessionColumns = `
	id,
	to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'),
	to_char(end_time, 'HH24:MI'),
	energy_added,
	start_soc,
	end_soc,
	tariff_rate,
	cost,
	COALESCE(notes, ''),
	source,
	vehicle,
	COALESCE(octopus_session_id, ''),
	COALESCE(dispatch_count, 0),
	dispatch_blocks,
	created_at`

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Insert stores a new session row. A unique-constraint violation on the
// idempotency key bubbles up unchanged for the caller to classify.
func (r *SessionRepository) Insert(ctx context.Context, s *models.ChargingSession) error {
	blocks, err := marshalBlocks(s.DispatchBlocks)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO charging_sessions (
			id, date, start_time, end_time, energy_added, start_soc, end_soc,
			tariff_rate, cost, notes, source, vehicle, octopus_session_id,
			dispatch_count, dispatch_blocks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''), $14, $15, NOW())
		RETURNING created_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.ID,
		s.Date,
		s.StartTime,
		s.EndTime,
		s.EnergyAdded,
		s.StartSoC,
		s.EndSoC,
		s.TariffRate,
		s.Cost,
		s.Notes,
		s.Source,
		s.Vehicle,
		s.OctopusSessionID,
		nullableCount(s.DispatchCount),
		blocks,
	).Scan(&s.CreatedAt)
}

// Update rewrites the mutable fields of a session by id.
func (r *SessionRepository) Update(ctx context.Context, s *models.ChargingSession) error {
	blocks, err := marshalBlocks(s.DispatchBlocks)
	if err != nil {
		return err
	}
	const query = `
		UPDATE charging_sessions
		SET date = $1,
		    start_time = $2,
		    end_time = $3,
		    energy_added = $4,
		    start_soc = $5,
		    end_soc = $6,
		    tariff_rate = $7,
		    cost = $8,
		    notes = $9,
		    source = $10,
		    vehicle = $11,
		    octopus_session_id = NULLIF($12, ''),
		    dispatch_count = $13,
		    dispatch_blocks = $14
		WHERE id = $15
	`
	result, err := r.db.ExecContext(ctx, query,
		s.Date,
		s.StartTime,
		s.EndTime,
		s.EnergyAdded,
		s.StartSoC,
		s.EndSoC,
		s.TariffRate,
		s.Cost,
		s.Notes,
		s.Source,
		s.Vehicle,
		s.OctopusSessionID,
		nullableCount(s.DispatchCount),
		blocks,
		s.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetAll returns every stored session, newest first.
func (r *SessionRepository) GetAll(ctx context.Context) ([]models.ChargingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM charging_sessions
		ORDER BY date DESC, start_time DESC
	`, sessionColumns)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// GetByID returns one session.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.ChargingSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM charging_sessions WHERE id = $1`, sessionColumns)
	row := r.db.QueryRowContext(ctx, query, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes one session by id.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM charging_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// DeleteMany removes a set of sessions, used to drop rows subsumed by a
// merge.
func (r *SessionRepository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM charging_sessions WHERE id = ANY($1)`, ids)
	return err
}

// FindOverlapping returns imported sessions whose civil-time span, adjusted
// for overnight wraparound, lies within gap of [start, end]. This is the
// merge candidate window: adjusted end >= start-gap and start <= end+gap.
func (r *SessionRepository) FindOverlapping(ctx context.Context, start, end time.Time, gap time.Duration) ([]models.ChargingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM charging_sessions
		WHERE source LIKE 'octopus%%'
		  AND (CAST(date::text || ' ' || start_time::text AS timestamp) <= $2::timestamp)
		  AND (
		    CASE
		      WHEN end_time < start_time THEN CAST(date::text || ' ' || end_time::text AS timestamp) + interval '1 day'
		      ELSE CAST(date::text || ' ' || end_time::text AS timestamp)
		    END
		  ) >= $1::timestamp
		ORDER BY date DESC, start_time DESC
	`, sessionColumns)

	windowStart, windowEnd := charging.OverlapWindow(start, end, gap)

	const stamp = "2006-01-02 15:04:05"
	rows, err := r.db.QueryContext(ctx, query,
		windowStart.Format(stamp),
		windowEnd.Format(stamp),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// Stats aggregates the dashboard numbers across all sessions.
func (r *SessionRepository) Stats(ctx context.Context) (models.Stats, error) {
	const query = `
		SELECT COUNT(*), COALESCE(SUM(energy_added), 0), COALESCE(SUM(cost), 0)
		FROM charging_sessions
	`
	var stats models.Stats
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalSessions, &stats.TotalEnergy, &stats.TotalCost); err != nil {
		return models.Stats{}, err
	}
	if stats.TotalSessions > 0 {
		stats.AverageEnergy = stats.TotalEnergy / float64(stats.TotalSessions)
	}
	return stats, nil
}

// DeleteImportedBefore removes provider-imported sessions dated strictly
// before the cutoff civil date. Manual entries are never touched.
func (r *SessionRepository) DeleteImportedBefore(ctx context.Context, cutoffDate string) (int64, error) {
	const query = `
		DELETE FROM charging_sessions
		WHERE source LIKE 'octopus%'
		  AND date < $1::date
	`
	result, err := r.db.ExecContext(ctx, query, cutoffDate)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.ChargingSession, error) {
	var (
		s      models.ChargingSession
		blocks []byte
	)
	if err := row.Scan(
		&s.ID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.EnergyAdded,
		&s.StartSoC,
		&s.EndSoC,
		&s.TariffRate,
		&s.Cost,
		&s.Notes,
		&s.Source,
		&s.Vehicle,
		&s.OctopusSessionID,
		&s.DispatchCount,
		&blocks,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(blocks) > 0 {
		if err := json.Unmarshal(blocks, &s.DispatchBlocks); err != nil {
			return nil, fmt.Errorf("repository: decode dispatch blocks: %w", err)
		}
	}
	return &s, nil
}

func scanSessions(rows *sql.Rows) ([]models.ChargingSession, error) {
	var sessions []models.ChargingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

func marshalBlocks(blocks []charging.Block) (any, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("repository: encode dispatch blocks: %w", err)
	}
	return data, nil
}

func nullableCount(count int) any {
	if count == 0 {
		return nil
	}
	return count
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}
