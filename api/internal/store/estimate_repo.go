package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"time"

	"calorie-lens/api/internal/estimate"
)

var ErrNotFound = sql.ErrNoRows

// EstimateRepo caches vision answers keyed by image hash so a re-submitted
// photo does not pay for a second model call. The API routes never touch it;
// only the bot wires it in, and only when a DSN is configured.
type EstimateRepo struct{ DB *sql.DB }

func NewEstimateRepo(db *sql.DB) *EstimateRepo { return &EstimateRepo{DB: db} }

type EstimateRow struct {
	ID         int64
	CreatedAt  time.Time
	ChatID     int64
	ImageHash  string
	Engine     string
	Model      string
	Estimation estimate.CalorieEstimation
}

// HashImage is the cache key: hex SHA-256 of the raw image bytes.
func HashImage(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// EnsureSchema creates the cache table when it does not exist yet.
func (r *EstimateRepo) EnsureSchema(ctx context.Context) error {
	const q = `
create table if not exists calorie_estimates (
    id          bigserial primary key,
    created_at  timestamptz not null default now(),
    chat_id     bigint,
    image_hash  text not null,
    engine      text not null,
    model       text not null,
    result_json jsonb not null
);
create index if not exists calorie_estimates_hash_idx
    on calorie_estimates (image_hash, engine, model, created_at desc)`
	_, err := r.DB.ExecContext(ctx, q)
	return err
}

// FindByHash returns the freshest row for (image_hash, engine, model).
// maxAge > 0 rejects stale rows; zero ignores age.
func (r *EstimateRepo) FindByHash(ctx context.Context, imageHash, engine, model string, maxAge time.Duration) (*EstimateRow, error) {
	const q = `
select id, created_at, coalesce(chat_id, 0), image_hash, engine, model, result_json
from calorie_estimates
where image_hash = $1 and engine = $2 and model = $3
order by created_at desc
limit 1`
	row := r.DB.QueryRowContext(ctx, q, imageHash, engine, model)

	var (
		out EstimateRow
		js  []byte
	)
	if err := row.Scan(&out.ID, &out.CreatedAt, &out.ChatID, &out.ImageHash, &out.Engine, &out.Model, &js); err != nil {
		return nil, err
	}
	if maxAge > 0 && time.Since(out.CreatedAt) > maxAge {
		return nil, ErrNotFound
	}
	if err := json.Unmarshal(js, &out.Estimation); err != nil {
		// Broken JSON in the cache is treated as a miss.
		return nil, ErrNotFound
	}
	return &out, nil
}

func (r *EstimateRepo) Save(ctx context.Context, row *EstimateRow) (int64, error) {
	js, err := json.Marshal(row.Estimation)
	if err != nil {
		return 0, err
	}
	const q = `
insert into calorie_estimates (chat_id, image_hash, engine, model, result_json)
values ($1, $2, $3, $4, $5)
returning id`
	var id int64
	if err := r.DB.QueryRowContext(ctx, q, row.ChatID, row.ImageHash, row.Engine, row.Model, js).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
