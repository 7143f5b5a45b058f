package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittrackio/fittrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrSessionNotFound = errors.New("workout session not found")

// SessionParams filter the sessions of one user. A zero value field
// means "no filter".
type SessionParams struct {
	UserID      int
	WorkoutType WorkoutType
	From        *time.Time
	To          *time.Time
}

type ListParams struct {
	SessionParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

const sessionColumns = `
	id, user_id, workout_type, title, description, notes,
	start_time, end_time, duration_minutes, total_distance,
	total_calories, avg_heart_rate, max_heart_rate, created_at, updated_at`

func (r *Repo) Add(ctx context.Context, session Session) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", session.UserID))

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout_sessions
				(user_id, workout_type, title, description, notes, start_time,
					end_time, duration_minutes, total_distance, total_calories,
					avg_heart_rate, max_heart_rate, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id;`,
		session.UserID, session.WorkoutType, session.Title, session.Description,
		session.Notes, session.StartTime, session.EndTime, session.DurationMinutes,
		session.TotalDistance, session.TotalCalories, session.AvgHeartRate,
		session.MaxHeartRate, session.CreatedAt, session.UpdatedAt,
	).Scan(&session.ID)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	span.SetAttributes(attribute.Int("session.id", session.ID))

	return &session, nil
}

// Get returns the session only when it belongs to the given user.
func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	row := r.db.QueryRow(
		ctx,
		`SELECT`+sessionColumns+`
		FROM workout_sessions WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return session, nil
}

func (r *Repo) Update(ctx context.Context, session *Session) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", session.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout_sessions SET
				workout_type = $1, title = $2, description = $3, notes = $4,
				start_time = $5, end_time = $6, duration_minutes = $7,
				total_distance = $8, total_calories = $9, avg_heart_rate = $10,
				max_heart_rate = $11, updated_at = $12
			WHERE id = $13 AND user_id = $14;`,
		session.WorkoutType, session.Title, session.Description, session.Notes,
		session.StartTime, session.EndTime, session.DurationMinutes,
		session.TotalDistance, session.TotalCalories, session.AvgHeartRate,
		session.MaxHeartRate, time.Now(), session.ID, session.UserID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_sessions WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all sessions of a user matching the given filters,
// most recent first.
func (r *Repo) ListAll(ctx context.Context, params SessionParams) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", params.UserID))
	span.SetAttributes(attribute.String("workout_type", string(params.WorkoutType)))
	if params.From != nil {
		span.SetAttributes(attribute.String("from", params.From.String()))
	}
	if params.To != nil {
		span.SetAttributes(attribute.String("to", params.To.String()))
	}

	rows, err := r.db.Query(
		ctx,
		`SELECT`+sessionColumns+`
		FROM workout_sessions
			WHERE user_id = $1
			AND ($2::text = '' OR workout_type = $2)
			AND ($3::timestamptz IS NULL OR start_time >= $3)
			AND ($4::timestamptz IS NULL OR start_time < $4)
		ORDER BY start_time DESC;`,
		params.UserID, string(params.WorkoutType), params.From, params.To,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	sessions, err := rows2sessions(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2sessions: %w", err)
	}
	return sessions, nil
}

// List is like ListAll, but returns the specific page, i.e. is used for
// pagination.
func (r *Repo) List(ctx context.Context, params ListParams) (_ []Session, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	span.SetAttributes(attribute.Int("user.id", params.UserID))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}

	total, err = r.Count(ctx, params.SessionParams)
	if err != nil {
		return nil, -1, err
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size

	rows, err := r.db.Query(
		ctx,
		`SELECT`+sessionColumns+`
		FROM workout_sessions
			WHERE user_id = $1
			AND ($2::text = '' OR workout_type = $2)
			AND ($3::timestamptz IS NULL OR start_time >= $3)
			AND ($4::timestamptz IS NULL OR start_time < $4)
		ORDER BY start_time DESC
		LIMIT $5 OFFSET $6;`,
		params.UserID, string(params.WorkoutType), params.From, params.To,
		limit, offset,
	)
	if err != nil {
		return nil, -1, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	sessions, err := rows2sessions(rows)
	if err != nil {
		return nil, -1, fmt.Errorf("rows2sessions: %w", err)
	}

	return sessions, total, nil
}

func (r *Repo) Count(ctx context.Context, params SessionParams) (count int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*)
		FROM workout_sessions
			WHERE user_id = $1
			AND ($2::text = '' OR workout_type = $2)
			AND ($3::timestamptz IS NULL OR start_time >= $3)
			AND ($4::timestamptz IS NULL OR start_time < $4);`,
		params.UserID, string(params.WorkoutType), params.From, params.To,
	).Scan(&count)
	if err != nil {
		return -1, err
	}
	return count, nil
}

func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	if err := row.Scan(
		&s.ID, &s.UserID, &s.WorkoutType, &s.Title, &s.Description, &s.Notes,
		&s.StartTime, &s.EndTime, &s.DurationMinutes, &s.TotalDistance,
		&s.TotalCalories, &s.AvgHeartRate, &s.MaxHeartRate,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func rows2sessions(rows pgx.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
