package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"standards-gateway/apperr"
)

var uploadClient = &http.Client{Timeout: 60 * time.Second}

// UploadResult carries the upstream file handle returned by the file
// upload wire contract.
type UploadResult struct {
	DifyFileID   string
	ResponseBody []byte
}

// UploadFile posts src as multipart/form-data to url, matching the wire
// contract: part `file=(filename, bytes, application/octet-stream)`, part
// `user=<userID>`, `Authorization: Bearer <key>`, no Content-Type override.
func UploadFile(ctx context.Context, url, key, userID, filename string, src io.Reader) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)},
		"Content-Type":        {"application/octet-stream"},
	})
	if err != nil {
		return nil, fmt.Errorf("create multipart file part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("copy upload body: %w", err)
	}
	if err := writer.WriteField("user", userID); err != nil {
		return nil, fmt.Errorf("write user field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := uploadClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamError, "file upload request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamError, "read file upload response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.Upstream(fmt.Sprintf("file upload rejected: %s", truncate(string(respBody), 500)), resp.StatusCode)
	}

	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil || decoded.ID == "" {
		return nil, apperr.Upstream("file upload response missing id", resp.StatusCode)
	}

	return &UploadResult{DifyFileID: decoded.ID, ResponseBody: respBody}, nil
}
