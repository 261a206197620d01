package storage

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnqueueTask inserts a pending task. Missing ID, run time and attempt limit
// are filled with defaults. The stored task is returned.
func (s *Store) EnqueueTask(task Task) (Task, error) {
	now := time.Now().UTC()
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.RunAfter.IsZero() {
		task.RunAfter = now
	}
	if task.MaxAttempts == 0 {
		task.MaxAttempts = 3
	}
	if task.PayloadJSON == "" {
		task.PayloadJSON = "{}"
	}
	task.Status = "pending"
	task.CreatedAt, task.UpdatedAt = now, now

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		task.ID, task.Type, task.PayloadJSON, task.MaxAttempts, formatTime(task.RunAfter), formatTime(now), formatTime(now),
	)
	if err != nil {
		return Task{}, fmt.Errorf("enqueueing task: %w", err)
	}
	return task, nil
}

// ClaimNextTask marks the oldest runnable pending task of one of types as
// running and returns it. It returns nil when nothing is runnable.
func (s *Store) ClaimNextTask(types []string) (*Task, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := formatTime(time.Now())
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM tasks
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]any, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	var (
		task                           Task
		claimed                        bool
		runAfter, createdAt, updatedAt string
		lastError                      sql.NullString
	)
	err := s.inTx(func(tx *sql.Tx) error {
		err := tx.QueryRow(query, args...).Scan(
			&task.ID, &task.Type, &task.PayloadJSON, &task.Status, &task.Attempts, &task.MaxAttempts,
			&runAfter, &createdAt, &updatedAt, &lastError,
		)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("selecting next task: %w", err)
		}

		res, err := tx.Exec(`UPDATE tasks SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, task.ID)
		if err != nil {
			return fmt.Errorf("updating task status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking updated task rows: %w", err)
		}
		claimed = n == 1
		return nil
	})
	if err != nil || !claimed {
		return nil, err
	}

	task.Status = "running"
	task.LastError = lastError.String
	if task.RunAfter, err = parseTime("run_after", runAfter); err != nil {
		return nil, err
	}
	if task.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return nil, err
	}
	if task.UpdatedAt, err = parseTime("updated_at", now); err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *Store) CompleteTask(id string) error {
	res, err := s.db.Exec(`UPDATE tasks SET status = 'completed', updated_at = ? WHERE id = ?`, formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// FailTask records a failed attempt. The task is retried after 2^attempts
// seconds until it reaches its attempt limit, then marked failed.
func (s *Store) FailTask(id string, errMsg string) error {
	return s.inTx(func(tx *sql.Tx) error {
		var attempts, maxAttempts int
		err := tx.QueryRow(`SELECT attempts, max_attempts FROM tasks WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		attempts++

		if attempts >= maxAttempts {
			_, err = tx.Exec(`UPDATE tasks SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
				attempts, errMsg, formatTime(now), id)
		} else {
			backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
			_, err = tx.Exec(`UPDATE tasks SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
				attempts, errMsg, formatTime(now.Add(backoff)), formatTime(now), id)
		}
		return err
	})
}

// GetTask returns a task by ID, mainly so callers can poll its status.
func (s *Store) GetTask(id string) (Task, error) {
	var (
		task                           Task
		runAfter, createdAt, updatedAt string
		lastError                      sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM tasks WHERE id = ?`, id,
	).Scan(&task.ID, &task.Type, &task.PayloadJSON, &task.Status, &task.Attempts, &task.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, err
	}
	task.LastError = lastError.String
	if task.RunAfter, err = parseTime("run_after", runAfter); err != nil {
		return Task{}, err
	}
	if task.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return Task{}, err
	}
	if task.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return Task{}, err
	}
	return task, nil
}
