package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avoronkov/flare/internal/domain/model"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

const userColumns = `
id, username, password_hash, display_name, age, gender, bio,
photo_urls, interests, online, last_active_at, latitude, longitude,
age_min, age_max, created_at, deleted_at
`

type userRow struct {
	user         model.User
	passwordHash string
}

func scanUser(row pgx.Row) (userRow, error) {
	var u userRow
	err := row.Scan(
		&u.user.ID,
		&u.user.Username,
		&u.passwordHash,
		&u.user.DisplayName,
		&u.user.Age,
		&u.user.Gender,
		&u.user.Bio,
		&u.user.PhotoURLs,
		&u.user.Interests,
		&u.user.Online,
		&u.user.LastActiveAt,
		&u.user.Latitude,
		&u.user.Longitude,
		&u.user.AgeMin,
		&u.user.AgeMax,
		&u.user.CreatedAt,
		&u.user.DeletedAt,
	)
	return u, err
}

func (r *ProfileRepo) Create(ctx context.Context, user model.User, passwordHash string) error {
	if user.ID == "" || user.Username == "" || passwordHash == "" {
		return fmt.Errorf("invalid user payload")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO users (
	id, username, password_hash, display_name, age, gender, bio,
	photo_urls, interests, online, last_active_at, latitude, longitude,
	age_min, age_max, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10, $11, $12, $13, $14, $10)
`,
		user.ID, user.Username, passwordHash, user.DisplayName, user.Age, user.Gender, user.Bio,
		user.PhotoURLs, user.Interests, user.CreatedAt.UTC(), user.Latitude, user.Longitude,
		user.AgeMin, user.AgeMax,
	); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (model.User, error) {
	if userID == "" {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	row, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1 AND deleted_at IS NULL
`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}

	return row.user, nil
}

// GetByUsername also returns the stored password hash for credential checks.
func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (model.User, string, error) {
	if username == "" {
		return model.User{}, "", fmt.Errorf("invalid username")
	}
	if r.pool == nil {
		return model.User{}, "", fmt.Errorf("postgres pool is nil")
	}

	row, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE username = $1 AND deleted_at IS NULL
`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, "", ErrUserNotFound
		}
		return model.User{}, "", fmt.Errorf("get user by username: %w", err)
	}

	return row.user, row.passwordHash, nil
}

type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	PhotoURLs   []string
	Interests   []string
	AgeMin      *int
	AgeMax      *int
	Latitude    *float64
	Longitude   *float64
}

func (r *ProfileRepo) Update(ctx context.Context, userID string, upd ProfileUpdate) (model.User, error) {
	if userID == "" {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	row, err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET
	display_name = COALESCE($2, display_name),
	bio = COALESCE($3, bio),
	photo_urls = COALESCE($4, photo_urls),
	interests = COALESCE($5, interests),
	age_min = COALESCE($6, age_min),
	age_max = COALESCE($7, age_max),
	latitude = COALESCE($8, latitude),
	longitude = COALESCE($9, longitude)
WHERE id = $1 AND deleted_at IS NULL
RETURNING `+userColumns+`
`, userID, upd.DisplayName, upd.Bio, upd.PhotoURLs, upd.Interests, upd.AgeMin, upd.AgeMax, upd.Latitude, upd.Longitude))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}

	return row.user, nil
}

func (r *ProfileRepo) TouchLastActive(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE users
SET last_active_at = $2, online = TRUE
WHERE id = $1 AND deleted_at IS NULL
`, userID, at.UTC()); err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}

	return nil
}

type CandidateQuery struct {
	ViewerID string
	AgeMin   int
	AgeMax   int
	Limit    int
}

// ListCandidates pulls a bounded page of discoverable users: not the viewer,
// not soft-deleted, profile complete enough to show (a name and at least one
// photo), age inside the viewer's preferred range.
func (r *ProfileRepo) ListCandidates(ctx context.Context, q CandidateQuery) ([]model.User, error) {
	if q.ViewerID == "" {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if q.Limit <= 0 {
		q.Limit = 200
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+`
FROM users
WHERE
	id <> $1
	AND deleted_at IS NULL
	AND display_name <> ''
	AND cardinality(photo_urls) > 0
	AND age BETWEEN $2 AND $3
ORDER BY last_active_at DESC
LIMIT $4
`, q.ViewerID, q.AgeMin, q.AgeMax, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.User, 0, q.Limit)
	for rows.Next() {
		row, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, row.user)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return candidates, nil
}
