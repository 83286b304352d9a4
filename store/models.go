// Package store persists the gateway's entities (User, Task, TaskFile,
// TaskResult) in PostgreSQL via GORM: a single *gorm.DB handle,
// AutoMigrate at startup, explicit transactions for multi-row mutations
// rather than ORM cascade magic.
package store

import "time"

// Task status values, a closed set enforced by the state machine in
// tasks.go.
const (
	StatusPending    = "pending"
	StatusUploading  = "uploading"
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Upload status values for TaskFile.
const (
	UploadPending  = "pending"
	UploadUploading = "uploading"
	UploadUploaded = "uploaded"
	UploadFailed   = "failed"
)

// User mirrors auth.User for persistence; the store translates between
// the two at its boundary so the auth package has no GORM dependency.
type User struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	Email             string `gorm:"uniqueIndex;size:255;not null"`
	Username          string `gorm:"uniqueIndex;size:50"`
	PasswordHash      string `gorm:"size:255;not null"`
	IsActive          bool   `gorm:"default:true"`
	LastLogin         *time.Time
	ResetToken        string `gorm:"index;size:64"`
	ResetTokenExpires *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Task is the top-level work item a user submits.
type Task struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	UserID      string `gorm:"index;type:varchar(36);not null"`
	TaskType    string `gorm:"size:64;not null"`
	Title       string `gorm:"size:255"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"size:32;not null;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFile is an uploaded document bound to a task.
type TaskFile struct {
	ID               string `gorm:"primaryKey;type:varchar(36)"`
	TaskID           string `gorm:"index;type:varchar(36);not null"`
	UserID           string `gorm:"index;type:varchar(36);not null"`
	OriginalFilename string `gorm:"size:255"`
	StoredFilename   string `gorm:"size:255"`
	FilePath         string `gorm:"size:1024"`
	FileSize         int64
	FileType         string `gorm:"size:128"`
	FileExtension    string `gorm:"size:16"`
	DifyFileID       string `gorm:"size:128"`
	DifyResponseData string `gorm:"type:text"`
	UploadStatus     string `gorm:"size:32;not null"`
	UploadError      string `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TaskResult is the persisted, canonicalised upstream answer for a task
// run.
type TaskResult struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	TaskID         string `gorm:"index;type:varchar(36);not null"`
	UserID         string `gorm:"index;type:varchar(36);not null"`
	MessageID      string `gorm:"size:128"`
	ConversationID string `gorm:"size:128"`
	Mode           string `gorm:"size:32"`
	Answer         string `gorm:"type:text"`
	ResultMetadata string `gorm:"type:text"`
	FullResponse   string `gorm:"type:text"`
	CreatedAt      time.Time
}

// TaskTypeDisplay returns the human label for a task type, used as the
// default title prefix and in dashboard/listing responses.
func TaskTypeDisplay(taskType string) string {
	switch taskType {
	case "standard_interpretation":
		return "标准解读"
	case "standard_recommendation":
		return "标准推荐"
	case "standard_comparison":
		return "标准比对"
	case "standard_international":
		return "国际标准对比"
	case "standard_compliance":
		return "合规性检查"
	case "standard_review":
		return "标准审查"
	default:
		return taskType
	}
}

// StatusDisplay returns the human label for a task status.
func StatusDisplay(status string) string {
	switch status {
	case StatusPending:
		return "待处理"
	case StatusUploading:
		return "上传中"
	case StatusUploaded:
		return "已上传"
	case StatusProcessing:
		return "处理中"
	case StatusCompleted:
		return "已完成"
	case StatusFailed:
		return "失败"
	default:
		return status
	}
}

// PaginationSupportedTypes are the task types the result paginator
// serves; all others must use the plain detail endpoint.
var PaginationSupportedTypes = map[string]bool{
	"standard_review":         true,
	"standard_recommendation": true,
	"standard_compliance":     true,
}
