package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/fittrackio/fittrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrMetricNotFound = errors.New("metric not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, metric Metric) (_ *Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.metrics.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", metric.SessionID))

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_metrics
				(session_id, timestamp, heart_rate, speed, distance, elevation,
					weight_lifted, cadence, power, reps, sets)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id;`,
		metric.SessionID, metric.Timestamp, metric.HeartRate, metric.Speed,
		metric.Distance, metric.Elevation, metric.WeightLifted,
		metric.Cadence, metric.Power, metric.Reps, metric.Sets,
	).Scan(&metric.ID)
	if err != nil {
		return nil, fmt.Errorf("insert metric: %w", err)
	}

	span.SetAttributes(attribute.Int("metric.id", metric.ID))

	return &metric, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.metrics.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	var m Metric
	err = r.db.QueryRow(
		ctx,
		`SELECT
			id, session_id, timestamp, heart_rate, speed, distance, elevation,
				weight_lifted, cadence, power, reps, sets
		FROM workout_metrics WHERE id = $1;`,
		id,
	).Scan(
		&m.ID, &m.SessionID, &m.Timestamp, &m.HeartRate, &m.Speed, &m.Distance,
		&m.Elevation, &m.WeightLifted, &m.Cadence, &m.Power, &m.Reps, &m.Sets,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMetricNotFound
		}
		return nil, err
	}

	return &m, nil
}

// ListBySession returns all readings of a session ordered by timestamp.
func (r *Repo) ListBySession(ctx context.Context, sessionID int) (_ []Metric, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.metrics.listBySession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("session.id", sessionID))

	rows, err := r.db.Query(
		ctx,
		`SELECT
			id, session_id, timestamp, heart_rate, speed, distance, elevation,
				weight_lifted, cadence, power, reps, sets
		FROM workout_metrics
		WHERE session_id = $1
		ORDER BY timestamp ASC;`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(
			&m.ID, &m.SessionID, &m.Timestamp, &m.HeartRate, &m.Speed, &m.Distance,
			&m.Elevation, &m.WeightLifted, &m.Cadence, &m.Power, &m.Reps, &m.Sets,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return metrics, nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.metrics.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_metrics WHERE id = $1;`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMetricNotFound
	}
	return nil
}
