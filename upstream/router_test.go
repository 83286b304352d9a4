package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"standards-gateway/apperr"
	"standards-gateway/config"
)

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Scenarios: map[string]config.ScenarioConfig{
			"multilingual_qa": {
				Key:  "multilingual_qa",
				Name: "多语言问答",
				Chat: config.UpstreamCredential{URL: upstreamURL + "/chat", Key: "k-chat"},
				Conversations: config.UpstreamCredential{URL: upstreamURL + "/conversations", Key: "k-conv"},
				Messages: config.UpstreamCredential{URL: upstreamURL + "/messages", Key: "k-msg"},
			},
		},
		StandardTypes: map[string]config.UpstreamCredential{
			"standard_review": {URL: upstreamURL + "/review", Key: "k-review"},
		},
	}
}

func TestResolveScenarioUnknown(t *testing.T) {
	r := NewRouter(testConfig("http://unused"))

	if _, _, err := r.ResolveScenario("no_such_scenario", APIChat); err == nil {
		t.Fatal("expected error for unknown scenario")
	} else if ae, ok := apperr.As(err); !ok || ae.Kind != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}

	if _, _, err := r.ResolveScenario("multilingual_qa", "bogus"); err == nil {
		t.Fatal("expected error for unknown api type")
	}
}

func TestResolveScenarioKnown(t *testing.T) {
	r := NewRouter(testConfig("http://unused"))
	cred, name, err := r.ResolveScenario("multilingual_qa", APIChat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "多语言问答" {
		t.Errorf("expected display name, got %s", name)
	}
	if cred.URL != "http://unused/chat" {
		t.Errorf("unexpected chat URL: %s", cred.URL)
	}
}

func TestValidateParamsConversations(t *testing.T) {
	if _, err := ValidateParams(APIConversations, map[string]string{}); err == nil {
		t.Fatal("expected error for missing user")
	}

	cleaned, err := ValidateParams(APIConversations, map[string]string{"user": "u1", "limit": "500"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleaned["limit"] != "100" {
		t.Errorf("expected limit clamped to 100, got %s", cleaned["limit"])
	}

	cleaned, err = ValidateParams(APIConversations, map[string]string{"user": "u1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleaned["limit"] != "20" {
		t.Errorf("expected default limit 20, got %s", cleaned["limit"])
	}
}

func TestValidateParamsMessages(t *testing.T) {
	cleaned, err := ValidateParams(APIMessages, map[string]string{"user": "u1", "conversation_id": "c1", "first_id": "f1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cleaned["conversation_id"] != "c1" || cleaned["first_id"] != "f1" {
		t.Errorf("expected conversation_id/first_id preserved, got %+v", cleaned)
	}
}

func TestForwardSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "Bearer k-chat" {
			t.Errorf("expected bearer auth header, got %s", req.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"answer":"hi"}`))
	}))
	defer server.Close()

	r := NewRouter(testConfig(server.URL))
	cred, _, _ := r.ResolveScenario("multilingual_qa", APIChat)

	res, err := r.Forward(context.Background(), cred, http.MethodPost, nil, map[string]string{"query": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.StatusCode != 200 {
		t.Fatalf("expected success, got %+v", res)
	}
	body, ok := res.Body.(map[string]interface{})
	if !ok || body["answer"] != "hi" {
		t.Errorf("unexpected body: %+v", res.Body)
	}
}

func TestForwardUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer server.Close()

	r := NewRouter(testConfig(server.URL))
	cred, _, _ := r.ResolveScenario("multilingual_qa", APIChat)

	res, err := r.Forward(context.Background(), cred, http.MethodPost, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected forwarded failure, got %+v", res)
	}
}

func TestDeleteConversationNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodDelete {
			t.Errorf("expected DELETE, got %s", req.Method)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"success"}`))
	}))
	defer server.Close()

	r := NewRouter(testConfig(server.URL))
	res, err := r.DeleteConversation(context.Background(), "multilingual_qa", "conv-1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, ok := res.Body.(map[string]interface{})
	if !ok || body["success"] != "true" || body["message"] != "删除成功" {
		t.Errorf("expected normalized delete response, got %+v", res.Body)
	}
}

func TestForwardStandardTypeUnconfigured(t *testing.T) {
	r := NewRouter(testConfig("http://unused"))
	if _, err := r.ForwardStandardType(context.Background(), "standard_compliance", nil); err == nil {
		t.Fatal("expected error for unconfigured task type")
	}
}

func TestForwardStandardTypeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"answer":"[]"}`))
	}))
	defer server.Close()

	r := NewRouter(testConfig(server.URL))
	res, err := r.ForwardStandardType(context.Background(), "standard_review", map[string]string{"inputs": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
}
