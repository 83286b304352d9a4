package upstream

import (
	"context"
	"fmt"
	"strings"

	"standards-gateway/apperr"
	"standards-gateway/common"
	"standards-gateway/config"
)

// RenameConversation issues PATCH /<conversation_id>/name against the
// conversations credential for the given scenario.
func (r *Router) RenameConversation(ctx context.Context, scenario, conversationID, name, user string) (*Result, error) {
	cred, _, err := r.ResolveScenario(scenario, APIConversationOps)
	if err != nil {
		return nil, err
	}
	cred.URL = joinConversationPath(cred.URL, conversationID, "name")
	return r.Forward(ctx, cred, "POST", nil, map[string]interface{}{"name": name, "user": user})
}

// DeleteConversation issues DELETE /<conversation_id> and normalizes the
// response: the upstream returns {"result":"success"} or an empty body on
// success, which callers translate to {"success":"true","message":"删除成功"}.
func (r *Router) DeleteConversation(ctx context.Context, scenario, conversationID, user string) (*Result, error) {
	cred, _, err := r.ResolveScenario(scenario, APIConversationOps)
	if err != nil {
		return nil, err
	}
	cred.URL = joinConversationPath(cred.URL, conversationID, "")
	res, err := r.Forward(ctx, cred, "DELETE", map[string]string{"user": user}, nil)
	if err != nil {
		return nil, err
	}
	if res.Success {
		res.Body = map[string]interface{}{"success": "true", "message": "删除成功"}
	}
	return res, nil
}

func joinConversationPath(base, conversationID, suffix string) string {
	base = strings.TrimRight(base, "/")
	if suffix == "" {
		return fmt.Sprintf("%s/%s", base, conversationID)
	}
	return fmt.Sprintf("%s/%s/%s", base, conversationID, suffix)
}

// legacyScenario is the scenario every un-prefixed legacy path
// (/chat-simple, /conversations, /messages) aliases to.
const legacyScenario = "multilingual_qa"

// ResolveLegacyScenario logs a deprecation warning and returns the
// scenario a legacy, scenario-less request should be routed to.
func ResolveLegacyScenario(path string) string {
	common.Logger.WithField("path", path).Warn("legacy dify path used without scenario prefix; defaulting to multilingual_qa")
	return legacyScenario
}

// AllScenarios returns every configured scenario in registration order,
// grounded on get_all_scenarios.
func AllScenarios(cfg *config.Config) map[string]config.ScenarioConfig {
	return cfg.Scenarios
}

// ScenarioStatus reports whether a scenario's credentials look usable,
// grounded on get_scenario_status (existence check only, no live probe).
func ScenarioStatus(cfg *config.Config, scenario string) (map[string]interface{}, error) {
	sc, ok := cfg.Scenarios[scenario]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unsupported scenario: %s", scenario), nil)
	}
	configured := sc.Chat.URL != "" && sc.Chat.Key != ""
	return map[string]interface{}{
		"scenario":  scenario,
		"name":      sc.Name,
		"configured": configured,
	}, nil
}
