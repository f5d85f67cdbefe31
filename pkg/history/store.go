package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/merge"
)

// ErrNotFound is returned when a batch does not exist.
var ErrNotFound = errors.New("batch not found")

// Batch is one stored generation run.
type Batch struct {
	ID             int64     `json:"id"`
	Template       string    `json:"template"`
	TemplateDigest string    `json:"templateDigest"`
	DataSource     string    `json:"dataSource"`
	Generated      int       `json:"generated"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	Cancelled      int       `json:"cancelled"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// RecordOutcome is the stored result of one record.
type RecordOutcome struct {
	ID          int64  `json:"id"`
	BatchID     int64  `json:"batchId"`
	RecordIndex int    `json:"recordIndex"`
	Name        string `json:"name"`
	FileName    string `json:"fileName"`
	Path        string `json:"path"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Replaced    int    `json:"replaced"`
	SplitTokens int    `json:"splitTokens"`
	DurationMS  int64  `json:"durationMs"`
}

// Source describes the inputs of a batch.
type Source struct {
	Template       string
	TemplateDigest string
	DataSource     string
}

// Store reads and writes batch history.
type Store struct {
	db     *DB
	logger *zap.Logger
}

// NewStore creates a store on an open database.
func NewStore(db *DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Record saves a finished batch and all of its record outcomes in one
// transaction and returns the batch id.
func (s *Store) Record(ctx context.Context, src Source, report *merge.BatchReport) (int64, error) {
	if report == nil {
		return 0, errors.New("nil batch report")
	}
	template := src.Template
	if template == "" {
		template = report.Template
	}

	var batchID int64
	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO batches (
				template, template_digest, data_source,
				generated, skipped, failed, cancelled, started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			template, src.TemplateDigest, src.DataSource,
			report.Generated, report.Skipped, report.Failed, report.Cancelled,
			report.Started.UTC(), report.Finished.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		batchID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO record_outcomes (
				batch_id, record_index, name, file_name, path, status, error,
				replaced, split_tokens, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare outcome insert: %w", err)
		}
		defer stmt.Close()

		for _, res := range report.Results {
			errText := ""
			if res.Err != nil {
				errText = res.Err.Error()
			}
			replaced := 0
			for _, n := range res.Stats.Replaced {
				replaced += n
			}
			if _, err := stmt.ExecContext(ctx,
				batchID, res.Index, res.Name, res.FileName, res.Path, string(res.Status), errText,
				replaced, len(res.Stats.Split), res.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("failed to insert outcome of record %d: %w", res.Index, err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to record batch", zap.Error(err))
		return 0, err
	}

	s.logger.Info("Batch recorded",
		zap.Int64("batch_id", batchID),
		zap.String("template", template),
		zap.Int("records", len(report.Results)))
	return batchID, nil
}

const batchColumns = `id, template, template_digest, data_source,
	generated, skipped, failed, cancelled, started_at, finished_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row scanner) (*Batch, error) {
	var b Batch
	err := row.Scan(
		&b.ID, &b.Template, &b.TemplateDigest, &b.DataSource,
		&b.Generated, &b.Skipped, &b.Failed, &b.Cancelled,
		&b.StartedAt, &b.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBatches returns the most recent batches, newest first.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]*Batch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		s.logger.Error("Failed to list batches", zap.Error(err))
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// GetBatch returns one batch.
func (s *Store) GetBatch(ctx context.Context, id int64) (*Batch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %d: %w", id, err)
	}
	return b, nil
}

// Outcomes returns the record outcomes of a batch in record order.
func (s *Store) Outcomes(ctx context.Context, batchID int64) ([]*RecordOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, batch_id, record_index, name, file_name, path, status, error,
			replaced, split_tokens, duration_ms
		FROM record_outcomes
		WHERE batch_id = ?
		ORDER BY record_index ASC
	`, batchID)
	if err != nil {
		s.logger.Error("Failed to get outcomes", zap.Int64("batch_id", batchID), zap.Error(err))
		return nil, fmt.Errorf("failed to get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*RecordOutcome
	for rows.Next() {
		var o RecordOutcome
		if err := rows.Scan(
			&o.ID, &o.BatchID, &o.RecordIndex, &o.Name, &o.FileName, &o.Path,
			&o.Status, &o.Error, &o.Replaced, &o.SplitTokens, &o.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}
