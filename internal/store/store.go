// Package store provides SQLite-backed persistence for Millrun.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/millworks/millrun/internal/models"
)

// Store provides access to the Millrun SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		subtasks TEXT,
		success_metrics TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		type TEXT NOT NULL,
		content TEXT,
		metadata TEXT,
		quality_metrics TEXT,
		version INTEGER NOT NULL DEFAULT 1,
		related_artifacts TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		task_id TEXT NOT NULL,
		completeness INTEGER NOT NULL,
		quality INTEGER NOT NULL,
		efficiency INTEGER NOT NULL,
		innovation INTEGER NOT NULL,
		overall_score INTEGER NOT NULL,
		confidence INTEGER NOT NULL,
		feedback TEXT,
		improvements TEXT,
		next_actions TEXT,
		eval_context TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS memory_items (
		id TEXT PRIMARY KEY,
		category TEXT,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_task_id ON artifacts(task_id);
	CREATE INDEX IF NOT EXISTS idx_evaluations_task_id ON evaluations(task_id);
	CREATE INDEX IF NOT EXISTS idx_memory_items_category ON memory_items(category);
	CREATE INDEX IF NOT EXISTS idx_audit_task_id ON audit(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Task Operations ---

// RegisterTask persists a planner-supplied task so the lookup collaborator
// can resolve it later. The task is stored as supplied; the pipeline never
// mutates it.
func (s *Store) RegisterTask(task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	subtasksJSON, _ := json.Marshal(task.Subtasks)
	metricsJSON, _ := json.Marshal(task.SuccessMetrics)

	_, err := s.db.Exec(
		`INSERT INTO tasks (id, title, description, subtasks, success_metrics, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(subtasksJSON), string(metricsJSON), task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a registered task by ID. Returns nil when absent.
func (s *Store) GetTask(id string) (*models.Task, error) {
	task := &models.Task{}
	var subtasksJSON, metricsJSON sql.NullString

	err := s.db.QueryRow(
		`SELECT id, title, description, subtasks, success_metrics, created_at FROM tasks WHERE id = ?`,
		id,
	).Scan(&task.ID, &task.Title, &task.Description, &subtasksJSON, &metricsJSON, &task.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	if subtasksJSON.Valid && subtasksJSON.String != "" {
		json.Unmarshal([]byte(subtasksJSON.String), &task.Subtasks)
	}
	if metricsJSON.Valid && metricsJSON.String != "" {
		json.Unmarshal([]byte(metricsJSON.String), &task.SuccessMetrics)
	}
	return task, nil
}

// --- Artifact Operations ---

// SaveArtifact persists a produced artifact. Artifacts are immutable, so
// this is insert-only.
func (s *Store) SaveArtifact(a *models.Artifact) error {
	metadataJSON, _ := json.Marshal(a.Metadata)
	relatedJSON, _ := json.Marshal(a.RelatedArtifacts)

	var qualityJSON string
	if a.QualityMetrics != nil {
		data, _ := json.Marshal(a.QualityMetrics)
		qualityJSON = string(data)
	}

	_, err := s.db.Exec(
		`INSERT INTO artifacts (id, task_id, type, content, metadata, quality_metrics, version, related_artifacts, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.Type, a.Content, string(metadataJSON), qualityJSON, a.Version, string(relatedJSON), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// GetArtifactsForTask returns all artifacts produced for a task.
func (s *Store) GetArtifactsForTask(taskID string) ([]models.Artifact, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, type, content, metadata, quality_metrics, version, related_artifacts, created_at, updated_at
		 FROM artifacts WHERE task_id = ? ORDER BY created_at ASC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []models.Artifact
	for rows.Next() {
		var a models.Artifact
		var metadataJSON, qualityJSON, relatedJSON sql.NullString

		if err := rows.Scan(&a.ID, &a.TaskID, &a.Type, &a.Content, &metadataJSON, &qualityJSON, &a.Version, &relatedJSON, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}

		if metadataJSON.Valid && metadataJSON.String != "" {
			json.Unmarshal([]byte(metadataJSON.String), &a.Metadata)
		}
		if qualityJSON.Valid && qualityJSON.String != "" {
			var qm models.QualityMetrics
			if json.Unmarshal([]byte(qualityJSON.String), &qm) == nil {
				a.QualityMetrics = &qm
			}
		}
		if relatedJSON.Valid && relatedJSON.String != "" {
			json.Unmarshal([]byte(relatedJSON.String), &a.RelatedArtifacts)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// --- Evaluation Operations ---

// ArchiveEvaluation persists a completed evaluation. The in-memory ring in
// the engine stays authoritative for the bounded history; this archive is
// for inspection across restarts.
func (s *Store) ArchiveEvaluation(e *models.Evaluation) error {
	improvementsJSON, _ := json.Marshal(e.Improvements)
	nextActionsJSON, _ := json.Marshal(e.NextActions)
	contextJSON, _ := json.Marshal(e.Context)

	_, err := s.db.Exec(
		`INSERT INTO evaluations (id, task_id, completeness, quality, efficiency, innovation, overall_score, confidence, feedback, improvements, next_actions, eval_context, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, e.Scores.Completeness, e.Scores.Quality, e.Scores.Efficiency, e.Scores.Innovation,
		e.OverallScore, e.Confidence, e.Feedback, string(improvementsJSON), string(nextActionsJSON), string(contextJSON), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns archived evaluations, optionally filtered by task,
// newest first.
func (s *Store) ListEvaluations(taskID string, limit int) ([]models.Evaluation, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, task_id, completeness, quality, efficiency, innovation, overall_score, confidence, feedback, improvements, next_actions, eval_context, timestamp FROM evaluations`
	var args []interface{}
	if taskID != "" {
		query += ` WHERE task_id = ?`
		args = append(args, taskID)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var evals []models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		var improvementsJSON, nextActionsJSON, contextJSON sql.NullString

		if err := rows.Scan(&e.ID, &e.TaskID, &e.Scores.Completeness, &e.Scores.Quality, &e.Scores.Efficiency, &e.Scores.Innovation,
			&e.OverallScore, &e.Confidence, &e.Feedback, &improvementsJSON, &nextActionsJSON, &contextJSON, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}

		if improvementsJSON.Valid && improvementsJSON.String != "" {
			json.Unmarshal([]byte(improvementsJSON.String), &e.Improvements)
		}
		if nextActionsJSON.Valid && nextActionsJSON.String != "" {
			json.Unmarshal([]byte(nextActionsJSON.String), &e.NextActions)
		}
		if contextJSON.Valid && contextJSON.String != "" {
			json.Unmarshal([]byte(contextJSON.String), &e.Context)
		}
		evals = append(evals, e)
	}
	return evals, rows.Err()
}

// --- Memory Operations ---

// AddMemory inserts a knowledge-store item.
func (s *Store) AddMemory(content, category string) (*models.MemoryItem, error) {
	now := time.Now().UTC()
	item := &models.MemoryItem{
		ID:        uuid.New().String(),
		Category:  category,
		Content:   content,
		CreatedAt: now,
	}

	_, err := s.db.Exec(
		`INSERT INTO memory_items (id, category, content, created_at) VALUES (?, ?, ?, ?)`,
		item.ID, item.Category, item.Content, item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return item, nil
}

// QueryMemory searches memory items by content.
func (s *Store) QueryMemory(query string) ([]models.MemoryItem, error) {
	rows, err := s.db.Query(
		`SELECT id, category, content, created_at FROM memory_items WHERE content LIKE ? ORDER BY created_at DESC LIMIT 50`,
		"%"+strings.TrimSpace(query)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("query memory: %w", err)
	}
	defer rows.Close()

	var items []models.MemoryItem
	for rows.Next() {
		var item models.MemoryItem
		var category sql.NullString
		if err := rows.Scan(&item.ID, &category, &item.Content, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if category.Valid {
			item.Category = category.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- Audit Operations ---

// WriteAudit writes an audit trail entry.
func (s *Store) WriteAudit(action, inputsHash, outcome, taskID, details string) error {
	_, err := s.db.Exec(
		`INSERT INTO audit (id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), action, inputsHash, outcome, taskID, details, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// CountAudit returns the number of audit entries for an action, for tests
// and diagnostics.
func (s *Store) CountAudit(action string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit WHERE action = ?`, action).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit: %w", err)
	}
	return n, nil
}
