package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
)

// SQLStore works against both sqlite (modernc) and postgres (pgx); all
// statements use $n placeholders which both drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const questionCols = `id,module,question,options_json,correct_answers_json,allow_multiple,difficulty,image,explanation`

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(sc scanner) (quiz.Question, error) {
	var (
		q               quiz.Question
		optsJSON, cJSON string
		diff            string
	)
	if err := sc.Scan(&q.ID, &q.Module, &q.Text, &optsJSON, &cJSON, &q.AllowMultiple, &diff, &q.ImageURL, &q.Explanation); err != nil {
		return quiz.Question{}, err
	}
	if err := json.Unmarshal([]byte(optsJSON), &q.Options); err != nil {
		return quiz.Question{}, fmt.Errorf("question %d options: %w", q.ID, err)
	}
	if err := json.Unmarshal([]byte(cJSON), &q.CorrectAnswers); err != nil {
		return quiz.Question{}, fmt.Errorf("question %d correct answers: %w", q.ID, err)
	}
	q.Difficulty = quiz.Difficulty(diff)
	return q, nil
}

func questionArgs(q quiz.Question) ([]any, error) {
	oj, err := json.Marshal(q.Options)
	if err != nil {
		return nil, err
	}
	cj, err := json.Marshal(q.CorrectAnswers)
	if err != nil {
		return nil, err
	}
	return []any{q.ID, q.Module, q.Text, string(oj), string(cj), q.AllowMultiple, string(q.Difficulty), q.ImageURL, q.Explanation}, nil
}

func (s *SQLStore) ListQuestions(ctx context.Context) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+questionCols+` FROM questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []quiz.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (quiz.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	return q, err
}

func (s *SQLStore) AddQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	if err := quiz.Validate(q); err != nil {
		return quiz.Question{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return quiz.Question{}, err
	}
	defer tx.Rollback()

	var maxID sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(id) FROM questions`).Scan(&maxID); err != nil {
		return quiz.Question{}, err
	}
	q = q.Clone()
	q.ID = maxID.Int64 + 1
	if err := insertQuestion(ctx, tx, q); err != nil {
		return quiz.Question{}, err
	}
	return q, tx.Commit()
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q quiz.Question) error {
	if err := quiz.Validate(q); err != nil {
		return err
	}
	args, err := questionArgs(q)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET module=$2, question=$3, options_json=$4,
		correct_answers_json=$5, allow_multiple=$6, difficulty=$7, image=$8, explanation=$9 WHERE id=$1`, args...)
	if err != nil {
		return err
	}
	return mustAffect(res, "question", q.ID)
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return mustAffect(res, "question", id)
}

func (s *SQLStore) ReplaceQuestions(ctx context.Context, qs []quiz.Question) error {
	if err := validateAll(qs); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
		return err
	}
	for _, q := range qs {
		if err := insertQuestion(ctx, tx, q); err != nil {
			return fmt.Errorf("insert question %d: %w", q.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ClearQuestions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions`)
	return err
}

func (s *SQLStore) Modules(ctx context.Context) ([]ModuleInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT module, COUNT(*) FROM questions GROUP BY module ORDER BY module`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModuleInfo
	for rows.Next() {
		var m ModuleInfo
		if err := rows.Scan(&m.Name, &m.QuestionCount); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertQuestion(ctx context.Context, tx *sql.Tx, q quiz.Question) error {
	args, err := questionArgs(q)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`, args...)
	return err
}

// ---- scores ----

func (s *SQLStore) AppendScore(ctx context.Context, r leaderboard.ScoreRecord) error {
	if err := leaderboard.Validate(r); err != nil {
		return err
	}
	return insertScore(ctx, s.db, r)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertScore(ctx context.Context, ex execer, r leaderboard.ScoreRecord) error {
	bj, err := json.Marshal(r.Breakdown)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO scores
		(id,name,student_id,module,score,total_questions,percentage,time_limit_minutes,breakdown_json,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		r.ID, r.Name, r.StudentID, r.Module, r.TotalScore, r.MaxScore, r.Percentage,
		r.TimeLimitMinutes, string(bj), r.CreatedAt.UnixMilli())
	return err
}

// ListScores returns rows oldest first. NULL numeric columns come back as
// NaN score or zero total so that leaderboard.Repair can see them.
func (s *SQLStore) ListScores(ctx context.Context) ([]leaderboard.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,name,student_id,module,score,total_questions,percentage,
		time_limit_minutes,breakdown_json,created_at FROM scores ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []leaderboard.ScoreRecord
	for rows.Next() {
		var (
			r            leaderboard.ScoreRecord
			score, pct   sql.NullFloat64
			total        sql.NullInt64
			bj           string
			createdMilli int64
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.StudentID, &r.Module, &score, &total, &pct,
			&r.TimeLimitMinutes, &bj, &createdMilli); err != nil {
			return nil, err
		}
		r.TotalScore = nullFloat(score)
		r.Percentage = nullFloat(pct)
		r.MaxScore = int(total.Int64)
		r.CreatedAt = time.UnixMilli(createdMilli).UTC()
		if bj != "" {
			if err := json.Unmarshal([]byte(bj), &r.Breakdown); err != nil {
				return nil, fmt.Errorf("score %s breakdown: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) ReplaceScores(ctx context.Context, rs []leaderboard.ScoreRecord) error {
	for _, r := range rs {
		if err := leaderboard.Validate(r); err != nil {
			return fmt.Errorf("score %s: %w", r.ID, err)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM scores`); err != nil {
		return err
	}
	for _, r := range rs {
		if err := insertScore(ctx, tx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) ClearScores(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scores`)
	return err
}

// ---- settings ----

func (s *SQLStore) LoadSettings(ctx context.Context) (settings.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id=1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Default(), nil
	}
	if err != nil {
		return settings.Settings{}, err
	}
	st := settings.Default()
	if err := json.Unmarshal([]byte(data), &st); err != nil {
		return settings.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return st.Normalize(), nil
}

func (s *SQLStore) SaveSettings(ctx context.Context, st settings.Settings) error {
	b, err := json.Marshal(st.Normalize())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings (id,data,updated_at) VALUES (1,$1,$2)
		ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=EXCLUDED.updated_at`,
		string(b), time.Now().Unix())
	return err
}

func mustAffect(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

func nullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
