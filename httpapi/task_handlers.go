package httpapi

import (
	"net/http"
	"os"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"standards-gateway/apperr"
	"standards-gateway/config"
	"standards-gateway/export"
	"standards-gateway/extract"
	"standards-gateway/store"
	"standards-gateway/upstream"
)

// UploadFile → POST /tasks/upload. One document plus a declared
// task_type; on upstream upload success the task reaches `uploaded`, on
// any failure it reaches `failed`.
func (d *Deps) UploadFile(c echo.Context) error {
	user := CurrentUser(c)
	taskType := c.FormValue("task_type")
	if !validTaskType(taskType) {
		return apperr.Validation("unsupported task_type", map[string]string{"task_type": taskType})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Validation("missing file", map[string]string{"file": "required"})
	}

	task, err := d.Store.CreateTask(user.ID, taskType, c.FormValue("title"), c.FormValue("description"))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create task", err)
	}
	if err := d.Store.Transition(task.ID, []string{store.StatusPending}, store.StatusUploading); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to start upload", err)
	}

	taskFile, uploadErr := d.uploadOneFile(c, task.ID, user.ID, taskType, fh)
	if uploadErr != nil {
		_ = d.Store.ForceFail(task.ID)
		return ok(c, http.StatusOK, "upload failed", map[string]interface{}{
			"task_id": task.ID,
			"status":  store.StatusFailed,
			"error":   uploadErr.Error(),
		})
	}

	if err := d.Store.Transition(task.ID, []string{store.StatusUploading}, store.StatusUploaded); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to finalize upload", err)
	}

	return ok(c, http.StatusCreated, "file uploaded", map[string]interface{}{
		"task_id":  task.ID,
		"status":   store.StatusUploaded,
		"file":     taskFile,
	})
}

// UploadMultiple → POST /tasks/upload-multiple. `standard_comparison`
// requires exactly two files; the task reaches `uploaded` only if every
// file uploaded successfully.
func (d *Deps) UploadMultiple(c echo.Context) error {
	user := CurrentUser(c)
	taskType := c.FormValue("task_type")
	if !validTaskType(taskType) {
		return apperr.Validation("unsupported task_type", map[string]string{"task_type": taskType})
	}

	fh1, err1 := c.FormFile("file1")
	fh2, err2 := c.FormFile("file2")
	if taskType == "standard_comparison" && (err1 != nil || err2 != nil) {
		return apperr.Validation("需要上传两个文件", map[string]string{"file1": "required", "file2": "required"})
	}

	var files []*multipart.FileHeader
	if err1 == nil {
		files = append(files, fh1)
	}
	if err2 == nil {
		files = append(files, fh2)
	}
	if len(files) == 0 {
		return apperr.Validation("at least one file is required", nil)
	}

	task, err := d.Store.CreateTask(user.ID, taskType, c.FormValue("title"), c.FormValue("description"))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to create task", err)
	}
	if err := d.Store.Transition(task.ID, []string{store.StatusPending}, store.StatusUploading); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to start upload", err)
	}

	var succeeded, failed []map[string]interface{}
	anyFailed := false
	for _, fh := range files {
		taskFile, uploadErr := d.uploadOneFile(c, task.ID, user.ID, taskType, fh)
		if uploadErr != nil {
			anyFailed = true
			failed = append(failed, map[string]interface{}{"filename": fh.Filename, "error": uploadErr.Error()})
			continue
		}
		succeeded = append(succeeded, map[string]interface{}{"filename": fh.Filename, "file_id": taskFile.ID})
	}

	if anyFailed {
		_ = d.Store.ForceFail(task.ID)
		return ok(c, http.StatusOK, "upload failed", map[string]interface{}{
			"task_id":   task.ID,
			"status":    store.StatusFailed,
			"succeeded": succeeded,
			"failed":    failed,
		})
	}

	if err := d.Store.Transition(task.ID, []string{store.StatusUploading}, store.StatusUploaded); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to finalize upload", err)
	}

	return ok(c, http.StatusCreated, "files uploaded", map[string]interface{}{
		"task_id":   task.ID,
		"status":    store.StatusUploaded,
		"succeeded": succeeded,
	})
}

// uploadOneFile saves an incoming multipart file to disk, forwards it to
// the Dify file-upload endpoint, and records a TaskFile row either way.
// The upload credential is the task type's own key: the file-upload URL
// is shared across types, but there is no separate upload-only secret.
func (d *Deps) uploadOneFile(c echo.Context, taskID, userID, taskType string, fh *multipart.FileHeader) (*store.TaskFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	saved, err := d.Paths.SaveUpload(userID, fh.Filename, src)
	if err != nil {
		return nil, err
	}

	tf := &store.TaskFile{
		ID:               uuid.New().String(),
		TaskID:           taskID,
		UserID:           userID,
		OriginalFilename: fh.Filename,
		StoredFilename:   saved.StoredFilename,
		FilePath:         saved.FilePath,
		FileSize:         saved.FileSize,
		FileExtension:    saved.FileExtension,
		UploadStatus:     store.UploadUploading,
	}
	if err := d.Store.CreateTaskFile(tf); err != nil {
		return nil, err
	}

	uploadFile, err := os.Open(saved.FilePath)
	if err != nil {
		tf.UploadStatus = store.UploadFailed
		tf.UploadError = err.Error()
		_ = d.Store.UpdateTaskFile(tf)
		return nil, err
	}
	defer uploadFile.Close()

	res, err := upstream.UploadFile(c.Request().Context(), d.Config.DifyFileUploadURL, d.Config.StandardTypes[taskType].Key, userID, fh.Filename, uploadFile)
	if err != nil {
		tf.UploadStatus = store.UploadFailed
		tf.UploadError = err.Error()
		_ = d.Store.UpdateTaskFile(tf)
		return nil, err
	}

	tf.UploadStatus = store.UploadUploaded
	tf.DifyFileID = res.DifyFileID
	tf.DifyResponseData = string(res.ResponseBody)
	if err := d.Store.UpdateTaskFile(tf); err != nil {
		return nil, err
	}
	return tf, nil
}

// StandardProcessing → POST /tasks/standard-processing. Launches the
// async job and returns immediately with a "processing" acknowledgement.
func (d *Deps) StandardProcessing(c echo.Context) error {
	user := CurrentUser(c)

	var body map[string]interface{}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body", nil)
	}
	taskIDVal, _ := body["task_id"].(string)
	if taskIDVal == "" {
		return apperr.Validation("task_id is required", map[string]string{"task_id": "required"})
	}

	task, err := d.Store.GetTaskForUser(taskIDVal, user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	if task.Status != store.StatusUploaded {
		return apperr.Validation("task must be in uploaded status to start processing", map[string]string{"status": task.Status})
	}

	if err := d.Executor.Launch(task, body); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to start processing", err)
	}

	return ok(c, http.StatusOK, "processing", map[string]interface{}{
		"task_id": task.ID,
		"status":  store.StatusProcessing,
	})
}

// ListTasks → GET /tasks.
func (d *Deps) ListTasks(c echo.Context) error {
	user := CurrentUser(c)
	page, _ := strconv.Atoi(c.QueryParam("page"))
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))

	tasks, total, err := d.Store.ListTasks(store.ListFilter{
		UserID:   user.ID,
		Statuses: store.ParseStatusFilter(c.QueryParam("status")),
		TaskType: c.QueryParam("task_type"),
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to list tasks", err)
	}

	perPageClamped := store.ClampPerPage(perPage)
	pageClamped := page
	if pageClamped < 1 {
		pageClamped = 1
	}
	totalPages := (int(total) + perPageClamped - 1) / perPageClamped

	return ok(c, http.StatusOK, "", map[string]interface{}{
		"tasks": tasks,
		"pagination": map[string]interface{}{
			"current_page": pageClamped,
			"per_page":     perPageClamped,
			"total_items":  total,
			"total_pages":  totalPages,
		},
	})
}

// GetTask → GET /tasks/<task_id>.
func (d *Deps) GetTask(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	files, _ := d.Store.GetTaskFiles(task.ID)
	results, _ := d.Store.GetTaskResults(task.ID)
	return ok(c, http.StatusOK, "", map[string]interface{}{
		"task":    task,
		"files":   files,
		"results": results,
	})
}

// DeleteTask → DELETE /tasks/<task_id>.
func (d *Deps) DeleteTask(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	if err := d.Store.DeleteTask(task.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete task", err)
	}
	return ok(c, http.StatusOK, "task deleted", nil)
}

// TaskTypes → GET /tasks/types.
func (d *Deps) TaskTypes(c echo.Context) error {
	out := make([]map[string]string, 0, len(config.AllTaskTypes))
	for _, t := range config.AllTaskTypes {
		out = append(out, map[string]string{"value": t, "label": store.TaskTypeDisplay(t)})
	}
	return ok(c, http.StatusOK, "", out)
}

// Dashboard → GET /tasks/dashboard. Summarises the caller's tasks by
// status and type for the landing page.
func (d *Deps) Dashboard(c echo.Context) error {
	user := CurrentUser(c)
	tasks, total, err := d.Store.ListTasks(store.ListFilter{UserID: user.ID, Page: 1, PerPage: 100})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load dashboard", err)
	}

	byStatus := map[string]int{}
	byType := map[string]int{}
	for _, t := range tasks {
		byStatus[t.Status]++
		byType[t.TaskType]++
	}

	return ok(c, http.StatusOK, "", map[string]interface{}{
		"total_tasks": total,
		"by_status":   byStatus,
		"by_type":     byType,
		"recent":      tasks,
	})
}

// PreviewFile → GET /tasks/<task_id>/files/<file_id>/preview. Authenticated.
func (d *Deps) PreviewFile(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	tf, err := d.Store.GetTaskFile(task.ID, c.Param("file_id"))
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load file", err)
	}
	if tf == nil {
		return ok(c, http.StatusOK, "file not found", nil)
	}
	return c.File(tf.FilePath)
}

// DownloadFile → GET /tasks/<task_id>/files/<file_id>/download. Public:
// deliberately skips the auth middleware per the resolved open question
// in the design notes.
func (d *Deps) DownloadFile(c echo.Context) error {
	task, err := d.Store.GetTaskByID(c.Param("task_id"))
	if err != nil || task == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	tf, err := d.Store.GetTaskFile(task.ID, c.Param("file_id"))
	if err != nil || tf == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.Attachment(tf.FilePath, tf.OriginalFilename)
}

// ExportPDF → GET /tasks/<task_id>/results/<result_id>/export.
func (d *Deps) ExportPDF(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	result, err := d.Store.GetTaskResult(task.ID, c.Param("result_id"))
	if err != nil || result == nil {
		return apperr.New(apperr.KindNotFound, "result not found")
	}

	if err := d.Paths.EnsureExportDir(user.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to prepare export directory", err)
	}
	outPath := d.Paths.ExportPath(user.ID, task.ID, "pdf", time.Now().UTC())
	if err := export.NewPDFExporter().Export(task.Title, result.Answer, outPath); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to render pdf", err)
	}
	return c.Attachment(outPath, filepath.Base(outPath))
}

// ExportMarkdown → GET /tasks/<task_id>/results/<result_id>/export-markdown?format=raw|preview.
// raw serves the cleaned Markdown source; preview serves a standalone
// HTML page rendering it.
func (d *Deps) ExportMarkdown(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}
	result, err := d.Store.GetTaskResult(task.ID, c.Param("result_id"))
	if err != nil || result == nil {
		return apperr.New(apperr.KindNotFound, "result not found")
	}

	format := export.FormatRaw
	if c.QueryParam("format") == "preview" {
		format = export.FormatPreview
	}
	rendered, err := export.Markdown(result.Answer, format, task.Title)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to render markdown", err)
	}

	if format == export.FormatPreview {
		return c.HTML(http.StatusOK, rendered)
	}
	c.Response().Header().Set("Content-Type", "text/markdown; charset=utf-8")
	return c.String(http.StatusOK, rendered)
}

// ResultsPaginated → GET /tasks/<task_id>/results/paginated.
func (d *Deps) ResultsPaginated(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.QueryParam("per_page"))
	perPage = store.ClampPerPage(perPage)
	sortBy := c.QueryParam("sort_by")
	if sortBy == "" {
		sortBy = "sn"
	}
	sortOrder := c.QueryParam("sort_order")
	if sortOrder == "" {
		sortOrder = "asc"
	}

	ctx := c.Request().Context()
	if cached, hit := d.Cache.Get(ctx, task.ID, page, perPage, sortBy, sortOrder); hit {
		return ok(c, http.StatusOK, "", cached)
	}

	latest, err := d.Store.GetLatestTaskResult(task.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load results", err)
	}

	pageResult, err := extract.Paginate(task, latest, page, perPage, sortBy, sortOrder)
	if err != nil {
		return apperr.Validation(err.Error(), nil)
	}
	d.Cache.Set(ctx, task.ID, page, perPage, sortBy, sortOrder, pageResult)
	return ok(c, http.StatusOK, "", pageResult)
}

// ExportExcel → GET /tasks/<task_id>/results/export-excel.
func (d *Deps) ExportExcel(c echo.Context) error {
	user := CurrentUser(c)
	task, err := d.Store.GetTaskForUser(c.Param("task_id"), user.ID)
	if err != nil {
		return taskLookupError(err)
	}

	latest, err := d.Store.GetLatestTaskResult(task.ID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load results", err)
	}
	items, err := extract.AllItems(task, latest, "sn", "asc")
	if err != nil {
		return apperr.Validation(err.Error(), nil)
	}

	if err := d.Paths.EnsureExportDir(user.ID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to prepare export directory", err)
	}
	now := time.Now().UTC()
	outPath := d.Paths.BulkExportPath(user.ID, task.ID, now)

	info := export.TaskInfo{
		ID:              task.ID,
		Title:           task.Title,
		TaskType:        task.TaskType,
		TaskTypeDisplay: store.TaskTypeDisplay(task.TaskType),
		Status:          task.Status,
		StatusDisplay:   store.StatusDisplay(task.Status),
		CreatedAt:       task.CreatedAt.Format("2006-01-02 15:04:05"),
		ExportedAt:      now.Format("2006-01-02 15:04:05"),
	}
	if err := export.Excel(items, info, outPath); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to render excel", err)
	}
	return c.Attachment(outPath, filepath.Base(outPath))
}

func taskLookupError(err error) error {
	switch err {
	case store.ErrTaskNotFound:
		return apperr.New(apperr.KindNotFound, "task not found")
	case store.ErrNotOwner:
		return apperr.New(apperr.KindForbidden, "not the task owner")
	default:
		return apperr.Wrap(apperr.KindInternal, "failed to load task", err)
	}
}

func validTaskType(taskType string) bool {
	for _, t := range config.AllTaskTypes {
		if t == taskType {
			return true
		}
	}
	return false
}
