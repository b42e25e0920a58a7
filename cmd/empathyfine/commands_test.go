package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/empathyfine/empathyfine/internal/bias"
	"github.com/empathyfine/empathyfine/internal/config"
	"github.com/empathyfine/empathyfine/internal/project"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestProjectCreateRequest(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /projects": `{"name":"my-bot","base_model":"microsoft/DialoGPT-medium","framework":"huggingface"}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/projects", map[string]any{
		"name":        "my-bot",
		"description": "test project",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var cfg project.Config
	if err := decodeJSON(resp, &cfg); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if cfg.Name != "my-bot" {
		t.Errorf("name = %q, want my-bot", cfg.Name)
	}
	if cfg.BaseModel != "microsoft/DialoGPT-medium" {
		t.Errorf("base model = %q", cfg.BaseModel)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["name"] != "my-bot" {
		t.Errorf("body.name = %v, want my-bot", body["name"])
	}
}

func TestProjectCreateMissingArgs(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"project", "create"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing project name")
	}
}

func TestTrainStatusDecoding(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /train/status": `{"state":"running","epoch":2,"total_epochs":3,"step":40,"loss":1.46,"accuracy":0.84,"percent":46}`,
	})

	client := ts.client()
	resp, err := client.get(ctx, "/train/status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var status struct {
		State   string  `json:"state"`
		Epoch   int     `json:"epoch"`
		Loss    float64 `json:"loss"`
		Percent int     `json:"percent"`
	}
	if err := decodeJSON(resp, &status); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if status.State != "running" {
		t.Errorf("state = %q, want running", status.State)
	}
	if status.Epoch != 2 || status.Percent != 46 {
		t.Errorf("epoch/percent = %d/%d, want 2/46", status.Epoch, status.Percent)
	}
}

func TestBiasScanRendering(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /bias/scan": `{"mode":"quick","categories":["gender"],"findings":[{"category":"gender","label":"Gender","score":0.73,"verdict":"detected","breakdown":["Male pronouns: 68%"]}],"recommendations":["Balance gender representation in training data"]}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/bias/scan", map[string]any{"mode": "quick"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report bias.Report
	if err := decodeJSON(resp, &report); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	rendered := report.Render()
	if !strings.Contains(rendered, "✗ Gender Bias Detected (Score: 0.73)") {
		t.Errorf("rendered report missing gender finding:\n%s", rendered)
	}
	if !strings.Contains(rendered, "Scan Mode: quick") {
		t.Errorf("rendered report missing mode:\n%s", rendered)
	}
}

func TestChatTurnDecoding(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /chat": `{"role":"assistant","content":"I hear you, and I'm here for you.","timestamp":"2026-01-01T00:00:00Z","analysis":{"empathy_score":0.6,"dimensions":{"cognitive":0.48,"emotional":0.66,"compassionate":0.54},"detected_emotion":"sad","word_count":8}}`,
	})

	client := ts.client()
	resp, err := client.post(ctx, "/chat", map[string]any{"message": "I feel sad today"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var turn struct {
		Role     string `json:"role"`
		Content  string `json:"content"`
		Analysis *struct {
			EmpathyScore float64 `json:"empathy_score"`
			Emotion      string  `json:"detected_emotion"`
		} `json:"analysis"`
	}
	if err := decodeJSON(resp, &turn); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if turn.Role != "assistant" {
		t.Errorf("role = %q, want assistant", turn.Role)
	}
	if turn.Analysis == nil {
		t.Fatal("expected analysis on assistant turn")
	}
	if turn.Analysis.EmpathyScore != 0.6 {
		t.Errorf("empathy = %v, want 0.6", turn.Analysis.EmpathyScore)
	}
	if turn.Analysis.Emotion != "sad" {
		t.Errorf("emotion = %q, want sad", turn.Analysis.Emotion)
	}
}

func TestStatusCommandStopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestDecodeJSONErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"auth_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/projects")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4600
	cfg.Model.Default = "microsoft/DialoGPT-medium"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4600" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4600 in ShowAll output")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"synonym", []string{"synonym"}},
		{"synonym, paraphrase", []string{"synonym", "paraphrase"}},
	}
	for _, tt := range tests {
		got := splitList(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitList(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
