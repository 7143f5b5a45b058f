package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fittrackio/fittrack/internal/telemetry/tracing"
	"github.com/fittrackio/fittrack/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Create inserts the user together with its default fitness profile, in a
// single transaction. Every user has exactly one profile at all times, and
// this is the only place where that invariant is established.
func (r *Repo) Create(ctx context.Context, user User) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	err = tx.QueryRow(
		ctx,
		`INSERT INTO users
				(username, email, password_hash, first_name, last_name, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt,
	).Scan(&user.ID)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err = tx.Exec(
		ctx,
		`INSERT INTO profiles (user_id, fitness_goal, created_at, updated_at)
			VALUES ($1, 'general_fitness', $2, $2);`,
		user.ID, user.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert default profile: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	return &user, nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.getByUsername")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := r.scanUser(r.db.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, first_name, last_name, created_at
			FROM users WHERE username = $1;`,
		username,
	))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.auth.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	user, err := r.scanUser(r.db.QueryRow(
		ctx,
		`SELECT id, username, email, password_hash, first_name, last_name, created_at
			FROM users WHERE id = $1;`,
		id,
	))
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email,
		&user.PasswordHash, &user.FirstName, &user.LastName,
		&user.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &user, nil
}
