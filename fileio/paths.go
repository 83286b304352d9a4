// Package fileio manages the gateway's local-disk blob storage: uploaded
// originals and generated exports, laid out under a plain directory
// tree rather than an object store.
package fileio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"standards-gateway/apperr"
	"standards-gateway/config"
)

// MaxUploadSize bounds a single uploaded file.
const MaxUploadSize = 50 * 1024 * 1024 // 50 MiB

// AllowedExtensions is the fixed upload allow-list.
var AllowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "doc": true, "docx": true, "ppt": true, "pptx": true,
	"xls": true, "xlsx": true, "csv": true, "md": true, "json": true, "xml": true,
}

// Paths resolves the on-disk roots for uploads and exports.
type Paths struct {
	uploadDir string
	exportDir string
	tempDir   string
}

func NewPaths(cfg config.StorageConfig) *Paths {
	return &Paths{uploadDir: cfg.UploadDir, exportDir: cfg.ExportDir, tempDir: cfg.TempDir}
}

// ValidateExtension extracts and lower-cases filename's extension,
// rejecting anything outside the allow-list.
func ValidateExtension(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !AllowedExtensions[ext] {
		return "", apperr.Validation("unsupported file extension", map[string]string{"file": filename})
	}
	return ext, nil
}

// SavedUpload describes a file persisted by SaveUpload.
type SavedUpload struct {
	StoredFilename string
	FilePath       string
	FileSize       int64
	FileExtension  string
}

// SaveUpload writes src to <uploads_root>/<YYYY>/<MM>/<DD>/<user_id>/<uuid>.<ext>,
// enforcing MaxUploadSize and the extension allow-list.
func (p *Paths) SaveUpload(userID, originalFilename string, src io.Reader) (*SavedUpload, error) {
	ext, err := ValidateExtension(originalFilename)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dir := filepath.Join(p.uploadDir, now.Format("2006"), now.Format("01"), now.Format("02"), userID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	storedName := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	fullPath := filepath.Join(dir, storedName)

	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	limited := io.LimitReader(src, MaxUploadSize+1)
	n, err := io.Copy(f, limited)
	if err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	if n > MaxUploadSize {
		os.Remove(fullPath)
		return nil, apperr.Validation("file exceeds maximum upload size", map[string]string{"max_bytes": fmt.Sprintf("%d", MaxUploadSize)})
	}

	return &SavedUpload{
		StoredFilename: storedName,
		FilePath:       fullPath,
		FileSize:       n,
		FileExtension:  ext,
	}, nil
}

// ExportPath builds the export target path for a single-result export
// (PDF/Markdown), <exports_root>/<user_id>/task_result_<task_id>_<ts>.<ext>.
func (p *Paths) ExportPath(userID, taskID, ext string, at time.Time) string {
	name := fmt.Sprintf("task_result_%s_%s.%s", taskID, at.Format("20060102_150405"), ext)
	return filepath.Join(p.exportDir, userID, name)
}

// BulkExportPath builds the export target path for the Excel full-result
// export, <exports_root>/<user_id>/task_results_<task_id>_<ts>.xlsx.
func (p *Paths) BulkExportPath(userID, taskID string, at time.Time) string {
	name := fmt.Sprintf("task_results_%s_%s.xlsx", taskID, at.Format("20060102_150405"))
	return filepath.Join(p.exportDir, userID, name)
}

// EnsureExportDir creates the per-user export directory on demand.
func (p *Paths) EnsureExportDir(userID string) error {
	return os.MkdirAll(filepath.Join(p.exportDir, userID), 0755)
}
