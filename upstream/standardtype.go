package upstream

import (
	"context"
	"net"
	"net/http"
	"time"

	"standards-gateway/apperr"
)

// standardTypeClient is long-lived to accommodate slow LLM generations:
// 30s to establish the connection, up to an hour to read the full
// response, no retries. Distinct from the Router's short-lived client
// used for interactive chat/conversations/messages calls.
var standardTypeClient = &http.Client{
	Timeout: 3600 * time.Second,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
	},
}

// ForwardStandardType performs the blocking, non-streaming POST a job
// executor makes against a task type's configured upstream endpoint.
// It reuses Router.buildRequest/decodeResponse's JSON contract but
// substitutes the long-lived client, since a processing job may
// legitimately run for tens of minutes.
func (r *Router) ForwardStandardType(ctx context.Context, taskType string, body interface{}) (*Result, error) {
	cred, ok := r.cfg.StandardTypes[taskType]
	if !ok || cred.URL == "" {
		return nil, apperr.New(apperr.KindInternal, "no upstream configured for task type "+taskType)
	}

	req, err := r.buildRequest(ctx, cred, http.MethodPost, nil, body)
	if err != nil {
		return nil, err
	}

	resp, err := standardTypeClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindUpstreamTimeout, "upstream request timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamError, "upstream request failed", err)
	}
	defer resp.Body.Close()

	return r.decodeResponse(resp)
}
