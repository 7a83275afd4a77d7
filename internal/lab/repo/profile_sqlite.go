package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	errx "github.com/VirtuLab-core-poc-v1/server/internal/core/error"
	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
	"github.com/VirtuLab-core-poc-v1/server/pkg/sqlite"
)

// ProfileSchema creates the tables used by SQLiteProfileStore.
const ProfileSchema = `
CREATE TABLE IF NOT EXISTS students (
	name TEXT PRIMARY KEY,
	xp   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS completions (
	session_id    TEXT PRIMARY KEY,
	experiment_id TEXT NOT NULL,
	student       TEXT NOT NULL REFERENCES students(name),
	reward_xp     INTEGER NOT NULL,
	finished_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_completions_student ON completions(student);
`

// SQLiteProfileStore keeps student XP in a local SQLite database.
type SQLiteProfileStore struct {
	db *sql.DB
}

// OpenSQLiteProfileStore opens the database at cfg.Path and applies ProfileSchema.
func OpenSQLiteProfileStore(ctx context.Context, cfg sqlite.Config) (*SQLiteProfileStore, error) {
	db, err := cfg.Open(ctx, ProfileSchema)
	if err != nil {
		return nil, errx.WrapStore(err)
	}
	return &SQLiteProfileStore{db: db}, nil
}

func (s *SQLiteProfileStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteProfileStore) AwardCompletion(ctx context.Context, c model.Completion) (int, error) {
	if c.StudentName == "" || c.SessionID == "" {
		return 0, errx.New(errx.InvalidCommand, nil, "completion needs a student and a session")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errx.WrapStore(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO students (name, xp) VALUES (?, 0) ON CONFLICT(name) DO NOTHING`, c.StudentName); err != nil {
		return 0, errx.WrapStore(err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO completions (session_id, experiment_id, student, reward_xp, finished_at)
		 VALUES (?, ?, ?, ?, ?) ON CONFLICT(session_id) DO NOTHING`,
		c.SessionID, c.ExperimentID, c.StudentName, c.RewardXP, c.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, errx.WrapStore(err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE students SET xp = xp + ? WHERE name = ?`, c.RewardXP, c.StudentName); err != nil {
			return 0, errx.WrapStore(err)
		}
	}

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT xp FROM students WHERE name = ?`, c.StudentName).Scan(&total); err != nil {
		return 0, errx.WrapStore(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, errx.WrapStore(err)
	}
	return total, nil
}

func (s *SQLiteProfileStore) TotalXP(ctx context.Context, student string) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT xp FROM students WHERE name = ?`, student).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errx.WrapStore(err)
	}
	return total, nil
}

var _ model.ProfileStore = (*SQLiteProfileStore)(nil)
