package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

func TestDecodeCommandUpdateCompanyData(t *testing.T) {
	t.Parallel()

	cmd, err := decodeCommand("update_company_data", `{"esg_certification":"ISO 14067, ISO 14046","esg_certification_count":2}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	update, ok := cmd.(contractx.UpdateCompanyData)
	if !ok {
		t.Fatalf("unexpected command type: %T", cmd)
	}
	if update.Data.ESGCertification != "ISO 14067, ISO 14046" {
		t.Fatalf("unexpected esg: %q", update.Data.ESGCertification)
	}
	if update.Data.ESGCertificationCount == nil || *update.Data.ESGCertificationCount != 2 {
		t.Fatal("esg count not decoded")
	}
}

func TestDecodeCommandCollectProductField(t *testing.T) {
	t.Parallel()

	cmd, err := decodeCommand("collect_product_field", `{"field":"price","value":"1000"}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	collect := cmd.(contractx.CollectProductField)
	if collect.Field != statex.FieldPrice || collect.Value != "1000" {
		t.Fatalf("unexpected command: %+v", collect)
	}
}

func TestDecodeCommandViewDataDefaultsToAll(t *testing.T) {
	t.Parallel()

	cmd, err := decodeCommand("view_data", `{}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cmd.(contractx.ViewData).DataType != contractx.ViewAll {
		t.Fatalf("unexpected scope: %+v", cmd)
	}
}

func TestDecodeCommandErrors(t *testing.T) {
	t.Parallel()

	if _, err := decodeCommand("delete_everything", `{}`); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("unknown tool: %v", err)
	}
	if _, err := decodeCommand("mark_completed", `{broken`); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("broken json: %v", err)
	}
}

func TestExtractionPromptPinsStage(t *testing.T) {
	t.Parallel()

	rec := &statex.Record{CurrentStage: statex.StageESGCertification}
	prompt := extractionPrompt(contractx.OracleRequest{Record: rec})
	if !strings.Contains(prompt, "esg_certification_count") {
		t.Fatalf("esg prompt must demand both params:\n%s", prompt)
	}

	rec = &statex.Record{CurrentStage: statex.StageProduct, CurrentProductField: statex.FieldMainRawMaterials}
	prompt = extractionPrompt(contractx.OracleRequest{
		Record:   rec,
		Products: []statex.Product{{ProductID: "PROD001"}},
	})
	if !strings.Contains(prompt, `field="main_raw_materials"`) {
		t.Fatalf("product prompt must pin the current field:\n%s", prompt)
	}
	if !strings.Contains(prompt, "現有產品ID列表：PROD001") {
		t.Fatalf("product prompt must list existing ids:\n%s", prompt)
	}
}

func newTestOracle(t *testing.T, handler http.HandlerFunc) *ChatOracle {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := openai.NewClient(
		option.WithAPIKey("test"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return NewChatOracle(&client, "gpt-4o-mini")
}

func TestExtractDecodesForcedToolCall(t *testing.T) {
	t.Parallel()

	o := newTestOracle(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ToolChoice any              `json:"tool_choice"`
			Tools      []map[string]any `json:"tools"`
			Messages   []map[string]any `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.ToolChoice != "required" {
			t.Errorf("tool_choice = %v, want required", body.ToolChoice)
		}
		if len(body.Tools) != 1 {
			t.Errorf("industry stage must expose 1 tool, got %d", len(body.Tools))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "已記錄",
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "update_company_data", "arguments": "{\"industry\":\"食品業\"}"}
					}]
				}
			}]
		}`))
	})

	result, err := o.Extract(context.Background(), contractx.OracleRequest{
		Record:      &statex.Record{},
		UserMessage: "我們是食品業",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.Message != "已記錄" {
		t.Fatalf("unexpected message: %q", result.Message)
	}
	if len(result.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(result.Commands))
	}
	update := result.Commands[0].(contractx.UpdateCompanyData)
	if update.Data.Industry != "食品業" {
		t.Fatalf("unexpected industry: %q", update.Data.Industry)
	}
}

func TestExtractNoToolCall(t *testing.T) {
	t.Parallel()

	o := newTestOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "請再說一次"}
			}]
		}`))
	})

	result, err := o.Extract(context.Background(), contractx.OracleRequest{
		Record:      &statex.Record{},
		UserMessage: "嗯",
	})
	if !errors.Is(err, contractx.ErrNoToolCall) {
		t.Fatalf("expected ErrNoToolCall, got %v", err)
	}
	if result.Message != "請再說一次" {
		t.Fatalf("message must survive for logging, got %q", result.Message)
	}
}

func TestExtractTransportFailure(t *testing.T) {
	t.Parallel()

	o := newTestOracle(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	_, err := o.Extract(context.Background(), contractx.OracleRequest{
		Record:      &statex.Record{},
		UserMessage: "我們是食品業",
	})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}
