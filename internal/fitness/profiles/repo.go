package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/fittrackio/fittrack/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrProfileNotFound = errors.New("profile not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetByUserID(ctx context.Context, userID int) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.getByUserID")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	var p Profile
	err = r.db.QueryRow(
		ctx,
		`SELECT
			id, user_id, age, weight_kg, height_cm, fitness_goal, created_at, updated_at
		FROM profiles WHERE user_id = $1;`,
		userID,
	).Scan(
		&p.ID, &p.UserID, &p.Age, &p.WeightKg, &p.HeightCm,
		&p.FitnessGoal, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *Repo) Update(ctx context.Context, profile *Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.profiles.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", profile.UserID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE profiles
			SET age = $1, weight_kg = $2, height_cm = $3, fitness_goal = $4, updated_at = $5
		WHERE user_id = $6;`,
		profile.Age, profile.WeightKg, profile.HeightCm,
		profile.FitnessGoal, time.Now(), profile.UserID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}

	return nil
}
