package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"standards-gateway/common"
)

// legalTransitions enumerates the state machine's permitted edges, per
// the diagram in the task lifecycle design: create lands at pending;
// uploading/uploaded/processing/completed/failed follow the happy path
// with failed reachable from uploading or processing.
var legalTransitions = map[string][]string{
	StatusPending:    {StatusUploading},
	StatusUploading:  {StatusUploaded, StatusFailed},
	StatusUploaded:   {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {},
	StatusFailed:     {},
}

func isLegalTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// DefaultTitle formats "<type-display> task – <YYYY-MM-DD HH:MM>".
func DefaultTitle(taskType string, at time.Time) string {
	return fmt.Sprintf("%s task – %s", TaskTypeDisplay(taskType), at.UTC().Format("2006-01-02 15:04"))
}

// CreateTask always lands the new row at pending.
func (s *Store) CreateTask(userID, taskType, title, description string) (*Task, error) {
	now := time.Now().UTC()
	if title == "" {
		title = DefaultTitle(taskType, now)
	}
	t := &Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		TaskType:    taskType,
		Title:       title,
		Description: description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTaskForUser loads a task and checks ownership, returning
// ErrTaskNotFound or ErrNotOwner as appropriate.
func (s *Store) GetTaskForUser(taskID, userID string) (*Task, error) {
	var t Task
	if err := s.db.First(&t, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if t.UserID != userID {
		return nil, ErrNotOwner
	}
	return &t, nil
}

// GetTaskByID loads a task with no ownership check, used only by the
// deliberately-unauthenticated public file-download endpoint.
func (s *Store) GetTaskByID(taskID string) (*Task, error) {
	var t Task
	if err := s.db.First(&t, "id = ?", taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// ListFilter describes the task-listing query parameters.
type ListFilter struct {
	UserID   string
	Statuses []string // already split/trimmed/filtered to known values
	TaskType string
	Page     int
	PerPage  int
}

// knownStatuses backs the "unknown status tokens silently ignored" rule.
var knownStatuses = map[string]bool{
	StatusPending: true, StatusUploading: true, StatusUploaded: true,
	StatusProcessing: true, StatusCompleted: true, StatusFailed: true,
}

// ParseStatusFilter splits a comma-separated, case-sensitive, trimmed
// status list and drops unknown tokens.
func ParseStatusFilter(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if knownStatuses[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// ClampPerPage enforces the [1,100] bound with default 20.
func ClampPerPage(perPage int) int {
	if perPage <= 0 {
		return 20
	}
	if perPage > 100 {
		return 100
	}
	return perPage
}

// ListTasks returns the caller's tasks ordered by created_at DESC, with
// optional multi-status and task-type filters. Unknown status tokens in
// Statuses must already have been dropped by ParseStatusFilter; if every
// token was unknown, Statuses is empty and the filter is treated as
// absent (matches "unknown value ignored as if absent").
func (s *Store) ListTasks(f ListFilter) ([]Task, int64, error) {
	perPage := ClampPerPage(f.PerPage)
	page := f.Page
	if page < 1 {
		page = 1
	}

	q := s.db.Model(&Task{}).Where("user_id = ?", f.UserID)
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.TaskType != "" {
		q = q.Where("task_type = ?", f.TaskType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []Task
	err := q.Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tasks).Error
	return tasks, total, err
}

// Transition advances a task's status inside a row-locked transaction,
// rejecting the move if the task isn't currently in one of `from` or the
// edge isn't legal. This is the single place that prevents lost updates
// across concurrent writers (the state machine guarantees only one writer
// advances a task's status at a time").
func (s *Store) Transition(taskID string, from []string, to string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var t Task
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&t, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		matched := false
		for _, f := range from {
			if t.Status == f {
				matched = true
				break
			}
		}
		if !matched || !isLegalTransition(t.Status, to) {
			return ErrIllegalTransition
		}
		return tx.Model(&Task{}).Where("id = ?", taskID).Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().UTC(),
		}).Error
	})
}

// ForceFail transitions a task straight to failed regardless of its
// current state (except terminal states), used by the terminal-state
// guarantee when a job cannot be launched and by the startup sweeper.
func (s *Store) ForceFail(taskID string) error {
	return s.db.Model(&Task{}).
		Where("id = ? AND status NOT IN ?", taskID, []string{StatusCompleted, StatusFailed}).
		Updates(map[string]interface{}{"status": StatusFailed, "updated_at": time.Now().UTC()}).Error
}

// SweepStaleProcessing flips any task stuck in `processing` longer than
// maxAge to `failed`. Resolves the open question in the design notes:
// there is no cross-restart job tracking, so a restarted process cannot
// tell a genuinely-stuck job from one still running; this sweeper
// trades a small risk of false-failing a slow job for never leaving
// tasks stuck forever.
func (s *Store) SweepStaleProcessing(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res := s.db.Model(&Task{}).
		Where("status = ? AND updated_at < ?", StatusProcessing, cutoff).
		Updates(map[string]interface{}{"status": StatusFailed, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CreateTaskFile inserts a new upload row.
func (s *Store) CreateTaskFile(f *TaskFile) error {
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	return s.db.Create(f).Error
}

// UpdateTaskFile persists mutations to an existing file row (status,
// dify handle, error message).
func (s *Store) UpdateTaskFile(f *TaskFile) error {
	f.UpdatedAt = time.Now().UTC()
	return s.db.Save(f).Error
}

func (s *Store) GetTaskFiles(taskID string) ([]TaskFile, error) {
	var files []TaskFile
	err := s.db.Where("task_id = ?", taskID).Order("created_at ASC").Find(&files).Error
	return files, err
}

func (s *Store) GetTaskFile(taskID, fileID string) (*TaskFile, error) {
	var f TaskFile
	err := s.db.First(&f, "id = ? AND task_id = ?", fileID, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &f, err
}

// CreateTaskResult persists a newly-extracted upstream answer.
func (s *Store) CreateTaskResult(r *TaskResult) error {
	r.CreatedAt = time.Now().UTC()
	return s.db.Create(r).Error
}

// GetTaskResults returns a task's results newest-first.
func (s *Store) GetTaskResults(taskID string) ([]TaskResult, error) {
	var results []TaskResult
	err := s.db.Where("task_id = ?", taskID).Order("created_at DESC").Find(&results).Error
	return results, err
}

func (s *Store) GetLatestTaskResult(taskID string) (*TaskResult, error) {
	results, err := s.GetTaskResults(taskID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (s *Store) GetTaskResult(taskID, resultID string) (*TaskResult, error) {
	var r TaskResult
	err := s.db.First(&r, "id = ? AND task_id = ?", resultID, taskID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &r, err
}

// DeleteTask removes results, then files (and their on-disk blobs), then
// the task row, inside one transaction, an explicit cascade rather than
// ORM delete-cascade magic, per the re-architecture note on ORM lazy
// relations. On-disk deletion errors are logged but do not fail the
// transaction or the API call.
func (s *Store) DeleteTask(taskID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var files []TaskFile
		if err := tx.Where("task_id = ?", taskID).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&TaskResult{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&TaskFile{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Task{}, "id = ?", taskID).Error; err != nil {
			return err
		}
		for _, f := range files {
			if f.FilePath == "" {
				continue
			}
			if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) {
				common.Logger.WithError(err).WithField("file_path", f.FilePath).Warn("failed to delete on-disk file during task deletion")
			}
		}
		return nil
	})
}
