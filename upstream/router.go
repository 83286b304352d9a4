// Package upstream implements the generic request-forwarding layer that
// multiplexes one API surface over the scenario and task-type upstream
// applications: build a request, forward it (or stream it) to whichever
// credential the scenario/task type resolves to, and decode the
// response into a uniform Result.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"standards-gateway/apperr"
	"standards-gateway/common"
	"standards-gateway/config"
)

// APIType enumerates the four upstream surfaces a scenario exposes.
const (
	APIChat            = "chat"
	APIConversations   = "conversations"
	APIMessages        = "messages"
	APIConversationOps = "conversation_ops"
)

var validAPITypes = map[string]bool{
	APIChat: true, APIConversations: true, APIMessages: true, APIConversationOps: true,
}

// Router resolves scenario/task-type credentials and forwards requests.
type Router struct {
	cfg    *config.Config
	client *http.Client
}

func NewRouter(cfg *config.Config) *Router {
	return &Router{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// ResolveScenario validates scenario/apiType and returns the credential
// pair to use, mirroring the source's get_app_config.
func (r *Router) ResolveScenario(scenario, apiType string) (config.UpstreamCredential, string, error) {
	sc, ok := r.cfg.Scenarios[scenario]
	if !ok {
		return config.UpstreamCredential{}, "", apperr.Validation(
			fmt.Sprintf("unsupported scenario: %s", scenario), nil)
	}
	if !validAPITypes[apiType] {
		return config.UpstreamCredential{}, "", apperr.Validation(
			fmt.Sprintf("unsupported api type: %s", apiType), nil)
	}
	switch apiType {
	case APIChat:
		return sc.Chat, sc.Name, nil
	case APIConversations:
		return sc.Conversations, sc.Name, nil
	case APIMessages:
		return sc.Messages, sc.Name, nil
	case APIConversationOps:
		return sc.ConversationOps(), sc.Name, nil
	}
	return config.UpstreamCredential{}, "", apperr.Validation("unsupported api type", nil)
}

// ValidateParams applies the per-api-type rules the source service
// enforces before forwarding: conversations requires `user`, clamps
// `limit` to [1,100] default 20; messages adds conversation_id/first_id.
func ValidateParams(apiType string, params map[string]string) (map[string]string, error) {
	cleaned := map[string]string{}
	switch apiType {
	case APIConversations, APIMessages:
		user := params["user"]
		if user == "" {
			return nil, apperr.Validation("missing required parameter: user", map[string]string{"user": "required"})
		}
		cleaned["user"] = user

		limit := 20
		if v, ok := params["limit"]; ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}
		if limit <= 0 {
			limit = 20
		} else if limit > 100 {
			limit = 100
		}
		cleaned["limit"] = strconv.Itoa(limit)

		if apiType == APIConversations {
			if lastID := params["last_id"]; lastID != "" {
				cleaned["last_id"] = lastID
			}
		}
		if apiType == APIMessages {
			if cid := params["conversation_id"]; cid != "" {
				cleaned["conversation_id"] = cid
			}
			if firstID := params["first_id"]; firstID != "" {
				cleaned["first_id"] = firstID
			}
		}
	}
	return cleaned, nil
}

// Result is the outcome of a non-streaming forward.
type Result struct {
	Success    bool
	Body       interface{}
	StatusCode int
}

// Forward performs a non-streaming request and parses the JSON response,
// matching forward_request's (success, data, status) contract verbatim:
// non-2xx bodies are forwarded as-is (JSON if parseable, else wrapped).
func (r *Router) Forward(ctx context.Context, cred config.UpstreamCredential, method string, query map[string]string, jsonBody interface{}) (*Result, error) {
	req, err := r.buildRequest(ctx, cred, method, query, jsonBody)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamError, "upstream request failed", err)
	}
	defer resp.Body.Close()

	return r.decodeResponse(resp)
}

// decodeResponse reads and JSON-decodes an upstream response body,
// normalizing both the 2xx and error-body cases, shared by Forward and
// ForwardStandardType.
func (r *Router) decodeResponse(resp *http.Response) (*Result, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamError, "failed to read upstream response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var decoded interface{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &decoded); err != nil {
				// DELETE conversation may legitimately return empty/unparseable body on success.
				decoded = map[string]interface{}{}
			}
		} else {
			decoded = map[string]interface{}{}
		}
		return &Result{Success: true, Body: decoded, StatusCode: 200}, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = map[string]interface{}{"error": fmt.Sprintf("upstream returned %d", resp.StatusCode), "detail": truncate(string(raw), 200)}
	}
	return &Result{Success: false, Body: decoded, StatusCode: resp.StatusCode}, nil
}

// Stream performs a streaming request and returns the live response body
// for the caller to copy byte-for-byte; the caller owns closing it.
func (r *Router) Stream(ctx context.Context, cred config.UpstreamCredential, jsonBody interface{}) (*http.Response, error) {
	req, err := r.buildRequest(ctx, cred, http.MethodPost, nil, jsonBody)
	if err != nil {
		return nil, err
	}
	client := &http.Client{} // no fixed timeout: stream lifetime is bound by the upstream
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamError, "upstream stream request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		common.Logger.WithField("status", resp.StatusCode).Warn("upstream stream request failed")
		return nil, apperr.Upstream(truncate(string(raw), 200), resp.StatusCode)
	}
	return resp, nil
}

func (r *Router) buildRequest(ctx context.Context, cred config.UpstreamCredential, method string, query map[string]string, jsonBody interface{}) (*http.Request, error) {
	if cred.URL == "" {
		return nil, apperr.New(apperr.KindInternal, "upstream credential not configured")
	}

	var body io.Reader
	if jsonBody != nil {
		raw, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to encode request body", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, cred.URL, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to build upstream request", err)
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+cred.Key)
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
