package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"standards-gateway/apperr"
	"standards-gateway/common"
	"standards-gateway/upstream"
)

// streamCopyBufSize sets the chunk size for the SSE
// proxy loop.
const streamCopyBufSize = 8 * 1024

// ChatSimple → POST /dify/v2/<scenario>/chat-simple. Streams the
// upstream's raw SSE byte stream back verbatim; no framing, heartbeats,
// or error injection.
func (d *Deps) ChatSimple(c echo.Context) error {
	scenario := resolveScenario(c)

	cred, _, err := d.Router.ResolveScenario(scenario, upstream.APIChat)
	if err != nil {
		return err
	}

	var body map[string]interface{}
	_ = c.Bind(&body)

	resp, err := d.Router.Stream(c.Request().Context(), cred, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	buf := make([]byte, streamCopyBufSize)
	if _, err := io.CopyBuffer(c.Response(), resp.Body, buf); err != nil {
		common.Logger.WithError(err).Warn("sse stream copy interrupted")
	}
	c.Response().Flush()
	return nil
}

// Conversations → GET /dify/v2/<scenario>/conversations.
func (d *Deps) Conversations(c echo.Context) error {
	scenario := resolveScenario(c)
	cred, _, err := d.Router.ResolveScenario(scenario, upstream.APIConversations)
	if err != nil {
		return err
	}

	params, err := upstream.ValidateParams(upstream.APIConversations, queryParams(c))
	if err != nil {
		return err
	}

	res, err := d.Router.Forward(c.Request().Context(), cred, http.MethodGet, params, nil)
	if err != nil {
		return err
	}
	return c.JSON(res.StatusCode, res.Body)
}

// Messages → GET /dify/v2/<scenario>/messages.
func (d *Deps) Messages(c echo.Context) error {
	scenario := resolveScenario(c)
	cred, _, err := d.Router.ResolveScenario(scenario, upstream.APIMessages)
	if err != nil {
		return err
	}

	params, err := upstream.ValidateParams(upstream.APIMessages, queryParams(c))
	if err != nil {
		return err
	}

	res, err := d.Router.Forward(c.Request().Context(), cred, http.MethodGet, params, nil)
	if err != nil {
		return err
	}
	return c.JSON(res.StatusCode, res.Body)
}

// RenameConversation → POST /dify/v2/<scenario>/conversations/<id>/name.
func (d *Deps) RenameConversation(c echo.Context) error {
	scenario := resolveScenario(c)

	var body struct {
		Name string `json:"name"`
		User string `json:"user"`
	}
	if err := c.Bind(&body); err != nil {
		return apperr.Validation("invalid request body", nil)
	}

	res, err := d.Router.RenameConversation(c.Request().Context(), scenario, c.Param("id"), body.Name, body.User)
	if err != nil {
		return err
	}
	return c.JSON(res.StatusCode, res.Body)
}

// DeleteConversation → DELETE /dify/v2/<scenario>/conversations/<id>.
// A successful upstream delete is normalised to the fixed
// {success:"true", message:"删除成功"} body, handled inside
// Router.DeleteConversation itself.
func (d *Deps) DeleteConversation(c echo.Context) error {
	scenario := resolveScenario(c)
	res, err := d.Router.DeleteConversation(c.Request().Context(), scenario, c.Param("id"), c.QueryParam("user"))
	if err != nil {
		return err
	}
	return c.JSON(res.StatusCode, res.Body)
}

// Scenarios → GET /dify/v2/scenarios.
func (d *Deps) Scenarios(c echo.Context) error {
	all := upstream.AllScenarios(d.Config)
	out := make([]map[string]string, 0, len(all))
	for key, sc := range all {
		out = append(out, map[string]string{"key": key, "name": sc.Name})
	}
	return ok(c, http.StatusOK, "", out)
}

// ScenarioConfig → GET /dify/v2/<scenario>/config.
func (d *Deps) ScenarioConfig(c echo.Context) error {
	status, err := upstream.ScenarioStatus(d.Config, c.Param("scenario"))
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, "", status)
}

// resolveScenario aliases the legacy non-scenario routes to
// multilingual_qa, logging the deprecation via
// upstream.ResolveLegacyScenario. The :scenario path param is empty
// whenever a legacy route (without a :scenario segment) matches.
func resolveScenario(c echo.Context) string {
	if scenario := c.Param("scenario"); scenario != "" {
		return scenario
	}
	return upstream.ResolveLegacyScenario(c.Request().URL.Path)
}

func queryParams(c echo.Context) map[string]string {
	out := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
