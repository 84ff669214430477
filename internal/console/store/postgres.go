package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"veridesk/internal/console/models"
)

// Postgres persists the submission collection in PostgreSQL. Change-sets are
// detected through a monotonically increasing collection version bumped
// inside every write transaction; each subscriber polls the version and
// reloads the full document set when it moves. BatchWrite runs in a single
// transaction, which provides the all-or-nothing guarantee.
type Postgres struct {
	db           *sql.DB
	pollInterval time.Duration
	logger       *slog.Logger
}

// PostgresOption configures the Postgres collection.
type PostgresOption func(*Postgres)

// WithPollInterval overrides the change-detection interval.
func WithPollInterval(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		p.pollInterval = d
	}
}

// WithLogger sets the logger used by subscription goroutines.
func WithLogger(logger *slog.Logger) PostgresOption {
	return func(p *Postgres) {
		p.logger = logger
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id          TEXT PRIMARY KEY,
	phone       TEXT NOT NULL DEFAULT '',
	id_number   TEXT NOT NULL DEFAULT '',
	code        TEXT NOT NULL DEFAULT '',
	disposition TEXT NOT NULL DEFAULT 'pending',
	hidden      BOOLEAN NOT NULL DEFAULT FALSE,
	received_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	personal    JSONB,
	card        JSONB,
	images      JSONB
);
CREATE TABLE IF NOT EXISTS collection_version (
	id      SMALLINT PRIMARY KEY CHECK (id = 1),
	version BIGINT NOT NULL
);
INSERT INTO collection_version (id, version) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

// NewPostgres creates a Postgres-backed collection, bootstrapping the schema.
func NewPostgres(ctx context.Context, db *sql.DB, opts ...PostgresOption) (*Postgres, error) {
	p := &Postgres{
		db:           db,
		pollInterval: 500 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("bootstrap submissions schema: %w", err)
	}
	return p, nil
}

// Subscribe delivers the current document set immediately, then re-delivers
// the full set whenever the collection version moves. On a transport error
// the subscription stops publishing but the subscriber keeps its last
// delivered snapshot; reconnecting is the caller's concern.
func (p *Postgres) Subscribe(ctx context.Context, fn SnapshotFunc) (Unsubscribe, error) {
	version, err := p.currentVersion(ctx)
	if err != nil {
		return nil, err
	}
	records, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	fn(records)

	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()
		last := version
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := p.currentVersion(ctx)
			if err != nil {
				p.logger.Error("collection version poll failed, subscription frozen", "error", err)
				return
			}
			if current == last {
				continue
			}
			records, err := p.load(ctx)
			if err != nil {
				p.logger.Error("collection reload failed, subscription frozen", "error", err)
				return
			}
			last = current
			fn(records)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}, nil
}

// Add inserts a new submission, assigning its identity. This is the external
// ingestion path; the console engine never calls it.
func (p *Postgres) Add(ctx context.Context, record models.Submission) (string, error) {
	record.ID = uuid.New().String()
	if record.Disposition == "" {
		record.Disposition = models.DispositionPending
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = time.Now().UTC()
	}

	personal, card, images, err := marshalPayloads(record)
	if err != nil {
		return "", err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin add: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO submissions (id, phone, id_number, code, disposition, hidden, received_at, personal, card, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.Phone, record.IDNumber, record.Code, record.Disposition,
		record.Hidden, record.ReceivedAt, personal, card, images,
	)
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit add: %w", err)
	}
	return record.ID, nil
}

// Write applies a partial update to a single record.
func (p *Postgres) Write(ctx context.Context, id string, patch Patch) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := applyPatchTx(ctx, tx, id, patch); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}
	return nil
}

// BatchWrite applies all updates in one transaction. A single unknown
// identity rolls back the whole batch.
func (p *Postgres) BatchWrite(ctx context.Context, updates []Update) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, u := range updates {
		if err := applyPatchTx(ctx, tx, u.ID, u.Patch); err != nil {
			return err
		}
	}
	if err := bumpVersion(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch write: %w", err)
	}
	return nil
}

func applyPatchTx(ctx context.Context, tx *sql.Tx, id string, patch Patch) error {
	var (
		clauses []string
		args    []any
	)
	if patch.Disposition != nil {
		args = append(args, string(*patch.Disposition))
		clauses = append(clauses, fmt.Sprintf("disposition = $%d", len(args)))
	}
	if patch.Code != nil {
		args = append(args, *patch.Code)
		clauses = append(clauses, fmt.Sprintf("code = $%d", len(args)))
	}
	if patch.Hidden != nil {
		args = append(args, *patch.Hidden)
		clauses = append(clauses, fmt.Sprintf("hidden = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE submissions SET %s WHERE id = $%d",
		strings.Join(clauses, ", "), len(args))

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update submission %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "UPDATE collection_version SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("bump collection version: %w", err)
	}
	return nil
}

func (p *Postgres) currentVersion(ctx context.Context) (int64, error) {
	var version int64
	err := p.db.QueryRowContext(ctx, "SELECT version FROM collection_version WHERE id = 1").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("read collection version: %w", err)
	}
	return version, nil
}

func (p *Postgres) load(ctx context.Context) ([]models.Submission, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, phone, id_number, code, disposition, hidden, received_at, personal, card, images
		FROM submissions
		ORDER BY received_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	defer rows.Close()

	var records []models.Submission
	for rows.Next() {
		var (
			record               models.Submission
			personal, card, imgs []byte
		)
		if err := rows.Scan(&record.ID, &record.Phone, &record.IDNumber, &record.Code,
			&record.Disposition, &record.Hidden, &record.ReceivedAt,
			&personal, &card, &imgs); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := unmarshalPayloads(&record, personal, card, imgs); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return records, nil
}

func marshalPayloads(record models.Submission) (personal, card, images []byte, err error) {
	if record.Personal != nil {
		if personal, err = json.Marshal(record.Personal); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal personal payload: %w", err)
		}
	}
	if record.Card != nil {
		if card, err = json.Marshal(record.Card); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal card payload: %w", err)
		}
	}
	if record.Images != nil {
		if images, err = json.Marshal(record.Images); err != nil {
			return nil, nil, nil, fmt.Errorf("marshal images payload: %w", err)
		}
	}
	return personal, card, images, nil
}

func unmarshalPayloads(record *models.Submission, personal, card, images []byte) error {
	if len(personal) > 0 {
		record.Personal = &models.PersonalDetails{}
		if err := json.Unmarshal(personal, record.Personal); err != nil {
			return fmt.Errorf("unmarshal personal payload: %w", err)
		}
	}
	if len(card) > 0 {
		record.Card = &models.CardDetails{}
		if err := json.Unmarshal(card, record.Card); err != nil {
			return fmt.Errorf("unmarshal card payload: %w", err)
		}
	}
	if len(images) > 0 {
		record.Images = &models.ImageSet{}
		if err := json.Unmarshal(images, record.Images); err != nil {
			return fmt.Errorf("unmarshal images payload: %w", err)
		}
	}
	return nil
}

var _ Collection = (*Postgres)(nil)
