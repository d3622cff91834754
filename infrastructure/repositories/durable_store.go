// Package repositories implements the durable store over SQLite.
package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"a11ydash/database"
	"a11ydash/domain/accessibility"
	"a11ydash/domain/contracts"
	"a11ydash/logging"
)

// SqliteDurableStore persists task and result records in the two durable
// tables. Saves are whole-record upserts; the task cascade delete runs in
// one write transaction so a partial delete can never be observed.
type SqliteDurableStore struct {
	db     *database.Database
	logger *logging.Logger
}

// NewSqliteDurableStore creates a durable store backed by db.
func NewSqliteDurableStore(db *database.Database) *SqliteDurableStore {
	return &SqliteDurableStore{
		db:     db,
		logger: logging.Default().WithComponent("durable_store"),
	}
}

var _ contracts.DurableStore = (*SqliteDurableStore)(nil)

// SaveTask implements contracts.DurableStore.
func (s *SqliteDurableStore) SaveTask(ctx context.Context, task *accessibility.Task) error {
	ignoreJSON, err := marshalStrings(task.Ignore)
	if err != nil {
		return fmt.Errorf("marshal ignore: %w", err)
	}
	actionsJSON, err := marshalStrings(task.Actions)
	if err != nil {
		return fmt.Errorf("marshal actions: %w", err)
	}
	headersJSON, err := marshalHeaders(task.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	lastResultJSON, err := marshalLastResult(task.LastResult)
	if err != nil {
		return fmt.Errorf("marshal last result: %w", err)
	}

	_, err = s.db.WriteDB().ExecContext(ctx, `
		INSERT INTO tasks (
			id, name, url, standard, ignore_json, timeout_ms, wait_ms,
			actions_json, username, password, headers_json, hide_elements,
			last_result_json, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			standard = excluded.standard,
			ignore_json = excluded.ignore_json,
			timeout_ms = excluded.timeout_ms,
			wait_ms = excluded.wait_ms,
			actions_json = excluded.actions_json,
			username = excluded.username,
			password = excluded.password,
			headers_json = excluded.headers_json,
			hide_elements = excluded.hide_elements,
			last_result_json = excluded.last_result_json,
			updated_at = excluded.updated_at`,
		task.ID, task.Name, task.URL, string(task.Standard),
		ignoreJSON, nullInt64(task.Timeout), nullInt64(task.Wait),
		actionsJSON, nullString(task.Username), nullString(task.Password),
		headersJSON, nullString(task.HideElements), lastResultJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask implements contracts.DurableStore. A missing record is reported
// as a nil task, never an error.
func (s *SqliteDurableStore) GetTask(ctx context.Context, id string) (*accessibility.Task, error) {
	row := s.db.ReadDB().QueryRowContext(ctx, `
		SELECT id, name, url, standard, ignore_json, timeout_ms, wait_ms,
		       actions_json, username, password, headers_json, hide_elements,
		       last_result_json
		FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// GetTasks implements contracts.DurableStore.
func (s *SqliteDurableStore) GetTasks(ctx context.Context) ([]*accessibility.Task, error) {
	rows, err := s.db.ReadDB().QueryContext(ctx, `
		SELECT id, name, url, standard, ignore_json, timeout_ms, wait_ms,
		       actions_json, username, password, headers_json, hide_elements,
		       last_result_json
		FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*accessibility.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask implements contracts.DurableStore. The task row and every
// owned result row are removed in a single transaction; any failure rolls
// the whole delete back and is reported as a transaction error.
func (s *SqliteDurableStore) DeleteTask(ctx context.Context, id string) error {
	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM results WHERE task_id = ?", id); err != nil {
			return fmt.Errorf("delete results for task %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id); err != nil {
			return fmt.Errorf("delete task %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", contracts.ErrTransaction, err)
	}
	return nil
}

// SaveResult implements contracts.DurableStore.
func (s *SqliteDurableStore) SaveResult(ctx context.Context, result *accessibility.Result) error {
	ignoreJSON, err := marshalStrings(result.Ignore)
	if err != nil {
		return fmt.Errorf("marshal ignore: %w", err)
	}
	issues := result.Results
	if issues == nil {
		issues = []accessibility.Issue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}

	_, err = s.db.WriteDB().ExecContext(ctx, `
		INSERT INTO results (
			id, task_id, url, name, standard, date,
			count_error, count_warning, count_notice, ignore_json, issues_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			task_id = excluded.task_id,
			url = excluded.url,
			name = excluded.name,
			standard = excluded.standard,
			date = excluded.date,
			count_error = excluded.count_error,
			count_warning = excluded.count_warning,
			count_notice = excluded.count_notice,
			ignore_json = excluded.ignore_json,
			issues_json = excluded.issues_json`,
		result.ID, result.Task, result.URL, result.Name, string(result.Standard),
		result.Date.UTC().Format(time.RFC3339),
		result.Count.Error, result.Count.Warning, result.Count.Notice,
		ignoreJSON, string(issuesJSON),
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", result.ID, err)
	}
	return nil
}

// GetResultsByTask implements contracts.DurableStore. Ordering is the
// reconciliation layer's concern, not this one's.
func (s *SqliteDurableStore) GetResultsByTask(ctx context.Context, taskID string) ([]*accessibility.Result, error) {
	rows, err := s.db.ReadDB().QueryContext(ctx, `
		SELECT id, task_id, url, name, standard, date,
		       count_error, count_warning, count_notice, ignore_json, issues_json
		FROM results WHERE task_id = ?`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list results for task %s: %w", taskID, err)
	}
	defer rows.Close()

	return collectResults(rows)
}

// CountResultsByTask implements contracts.DurableStore.
func (s *SqliteDurableStore) CountResultsByTask(ctx context.Context, taskID string) (int64, error) {
	var count int64
	err := s.db.ReadDB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM results WHERE task_id = ?", taskID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count results for task %s: %w", taskID, err)
	}
	return count, nil
}

// GetResults implements contracts.DurableStore.
func (s *SqliteDurableStore) GetResults(ctx context.Context) ([]*accessibility.Result, error) {
	rows, err := s.db.ReadDB().QueryContext(ctx, `
		SELECT id, task_id, url, name, standard, date,
		       count_error, count_warning, count_notice, ignore_json, issues_json
		FROM results`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	return collectResults(rows)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*accessibility.Task, error) {
	var task accessibility.Task
	var standard string
	var ignoreJSON, actionsJSON, headersJSON, lastResultJSON sql.NullString
	var username, password, hideElements sql.NullString
	var timeoutMs, waitMs sql.NullInt64

	err := row.Scan(&task.ID, &task.Name, &task.URL, &standard,
		&ignoreJSON, &timeoutMs, &waitMs, &actionsJSON,
		&username, &password, &headersJSON, &hideElements, &lastResultJSON)
	if err != nil {
		return nil, err
	}

	task.Standard = accessibility.Standard(standard)
	task.Timeout = timeoutMs.Int64
	task.Wait = waitMs.Int64
	task.Username = username.String
	task.Password = password.String
	task.HideElements = hideElements.String

	if task.Ignore, err = unmarshalStrings(ignoreJSON); err != nil {
		return nil, fmt.Errorf("unmarshal ignore: %w", err)
	}
	if task.Actions, err = unmarshalStrings(actionsJSON); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	if headersJSON.Valid && headersJSON.String != "" {
		if err := json.Unmarshal([]byte(headersJSON.String), &task.Headers); err != nil {
			return nil, fmt.Errorf("unmarshal headers: %w", err)
		}
	}
	if lastResultJSON.Valid && lastResultJSON.String != "" {
		var summary accessibility.ResultSummary
		if err := json.Unmarshal([]byte(lastResultJSON.String), &summary); err != nil {
			return nil, fmt.Errorf("unmarshal last result: %w", err)
		}
		task.LastResult = &summary
	}

	return &task, nil
}

func collectResults(rows *sql.Rows) ([]*accessibility.Result, error) {
	var results []*accessibility.Result
	for rows.Next() {
		var result accessibility.Result
		var standard, date string
		var ignoreJSON sql.NullString
		var issuesJSON string

		err := rows.Scan(&result.ID, &result.Task, &result.URL, &result.Name,
			&standard, &date,
			&result.Count.Error, &result.Count.Warning, &result.Count.Notice,
			&ignoreJSON, &issuesJSON)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		result.Standard = accessibility.Standard(standard)
		if result.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("parse result date: %w", err)
		}
		if result.Ignore, err = unmarshalStrings(ignoreJSON); err != nil {
			return nil, fmt.Errorf("unmarshal ignore: %w", err)
		}
		if err := json.Unmarshal([]byte(issuesJSON), &result.Results); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}

		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collect results: %w", err)
	}
	return results, nil
}

func marshalStrings(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalStrings(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(ns.String), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func marshalHeaders(headers map[string]string) (sql.NullString, error) {
	if len(headers) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(headers)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalLastResult(summary *accessibility.ResultSummary) (sql.NullString, error) {
	if summary == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(i int64) sql.NullInt64 {
	if i == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: i, Valid: true}
}
