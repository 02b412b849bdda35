package upload

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	calls     int
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

type fakeBuilder struct {
	model einomodel.ToolCallingChatModel
}

func (f *fakeBuilder) New(ctx context.Context) (einomodel.ToolCallingChatModel, error) {
	return f.model, nil
}

// fakeStore implements only the methods the extractor touches; anything else
// panics through the embedded nil interface.
type fakeStore struct {
	statex.Store

	record   *statex.Record
	products []statex.Product
	messages []statex.Message
	nextID   int64
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx statex.Store) error) error {
	return fn(ctx, s)
}

func (s *fakeStore) RecordBySession(ctx context.Context, sessionID int64) (*statex.Record, error) {
	if s.record == nil {
		return nil, statex.ErrRecordNotFound
	}
	return s.record, nil
}

func (s *fakeStore) ListProducts(ctx context.Context, onboardingID int64) ([]statex.Product, error) {
	return append([]statex.Product(nil), s.products...), nil
}

func (s *fakeStore) FindProduct(ctx context.Context, onboardingID int64, productID string) (*statex.Product, error) {
	for i := range s.products {
		if s.products[i].ProductID == productID {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, statex.ErrProductNotFound
}

func (s *fakeStore) InsertProduct(ctx context.Context, product *statex.Product) error {
	product.ID = s.id()
	s.products = append(s.products, *product)
	return nil
}

func (s *fakeStore) SaveProduct(ctx context.Context, product *statex.Product) error {
	for i := range s.products {
		if s.products[i].ProductID == product.ProductID {
			s.products[i] = *product
			return nil
		}
	}
	return statex.ErrProductNotFound
}

func (s *fakeStore) SaveRecord(ctx context.Context, record *statex.Record) error {
	s.record = record
	return nil
}

func (s *fakeStore) AppendMessage(ctx context.Context, sessionID int64, role, content string) (*statex.Message, error) {
	msg := statex.Message{ID: s.id(), SessionID: sessionID, Role: role, Content: content}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func newTestExtractor(t *testing.T, store *fakeStore, responses ...*schema.Message) *Extractor {
	t.Helper()

	extractor, err := NewExtractor(
		context.Background(),
		store,
		&fakeBuilder{model: &fakeToolCallingModel{responses: responses}},
		"extraction prompt",
	)
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}
	return extractor
}

func textDocument(content string) Document {
	return Document{
		Filename:    "profile.txt",
		ContentType: "text/plain",
		Content:     []byte(content),
	}
}

func toolCall(name, arguments string) schema.ToolCall {
	return schema.ToolCall{
		ID:   "call_1",
		Type: "function",
		Function: schema.FunctionCall{
			Name:      name,
			Arguments: arguments,
		},
	}
}

func TestProcessAppliesCompanyDataAndResyncs(t *testing.T) {
	t.Parallel()

	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7, CurrentStage: statex.StageIndustry}}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("update_company_data", `{"industry":"食品業","capital_amount":5000000}`),
		},
	})

	out, err := extractor.Process(context.Background(), 7, textDocument("公司簡介：本公司從事食品業，資本額五百萬。"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if !out.DataUpdated {
		t.Fatal("expected data updated")
	}
	if store.record.Industry != "食品業" {
		t.Fatalf("industry = %q", store.record.Industry)
	}
	if store.record.CapitalAmount == nil || *store.record.CapitalAmount != 5000000 {
		t.Fatalf("capital = %v", store.record.CapitalAmount)
	}
	if store.record.Stage() != statex.StageInventionPatentCount {
		t.Fatalf("stage = %s, want resync onto first empty field", store.record.Stage())
	}
	if !strings.HasPrefix(out.Message, "✅ 已從文件中擷取並更新公司資料！") {
		t.Fatalf("unexpected message: %q", out.Message)
	}
	if !strings.Contains(out.Message, "發明專利") {
		t.Fatalf("message should re-ask the next field, got %q", out.Message)
	}
}

func TestProcessAddsAndMergesProducts(t *testing.T) {
	t.Parallel()

	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7, CurrentStage: statex.StageProduct}}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("add_product", `{"product_id":"PROD001","product_name":"冷凍水餃","price":"120元/包"}`),
			toolCall("add_product", `{"product_id":"PROD001","product_name":"冷凍水餃","main_raw_materials":"豬肉、麵粉"}`),
		},
	})

	out, err := extractor.Process(context.Background(), 7, textDocument("產品型錄"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out.ProductsAdded != 2 {
		t.Fatalf("products added = %d", out.ProductsAdded)
	}
	if len(store.products) != 1 {
		t.Fatalf("expected one merged row, got %d", len(store.products))
	}
	if store.products[0].Price != "120元/包" || store.products[0].MainRawMaterials != "豬肉、麵粉" {
		t.Fatalf("merge lost fields: %+v", store.products[0])
	}
}

func TestProcessSkipsProductWithoutName(t *testing.T) {
	t.Parallel()

	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7, CurrentStage: statex.StageProduct}}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("add_product", `{"price":"120元"}`),
		},
	})

	out, err := extractor.Process(context.Background(), 7, textDocument("價目表"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out.ProductsAdded != 0 || len(store.products) != 0 {
		t.Fatalf("nameless product must be skipped, got %+v", store.products)
	}
	if !strings.HasPrefix(out.Message, "已處理您的文件，但未能從中擷取到公司資料。") {
		t.Fatalf("unexpected message: %q", out.Message)
	}
}

func TestProcessModelSummaryWinsOverSynthesis(t *testing.T) {
	t.Parallel()

	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7, CurrentStage: statex.StageIndustry}}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role:    schema.Assistant,
		Content: "已從文件擷取產業別為食品業。",
		ToolCalls: []schema.ToolCall{
			toolCall("update_company_data", `{"industry":"食品業"}`),
		},
	})

	out, err := extractor.Process(context.Background(), 7, textDocument("公司簡介"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out.Message != "已從文件擷取產業別為食品業。" {
		t.Fatalf("unexpected message: %q", out.Message)
	}
}

func TestProcessPersistsAssistantMessageWithFilename(t *testing.T) {
	t.Parallel()

	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7, CurrentStage: statex.StageIndustry}}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("update_company_data", `{"industry":"鋼鐵業"}`),
		},
	})

	if _, err := extractor.Process(context.Background(), 7, textDocument("公司簡介")); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(store.messages) != 1 {
		t.Fatalf("expected one stored message, got %d", len(store.messages))
	}
	if store.messages[0].Role != statex.RoleAssistant {
		t.Fatalf("role = %s", store.messages[0].Role)
	}
	if !strings.HasPrefix(store.messages[0].Content, "📄 已處理文件：profile.txt\n\n") {
		t.Fatalf("unexpected stored content: %q", store.messages[0].Content)
	}
}

func TestProcessRejectsUnsupportedContentType(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{}
	store := &fakeStore{record: &statex.Record{ID: 1, SessionID: 7}}
	extractor, err := NewExtractor(context.Background(), store, &fakeBuilder{model: fake}, "extraction prompt")
	if err != nil {
		t.Fatalf("NewExtractor() error = %v", err)
	}

	_, err = extractor.Process(context.Background(), 7, Document{
		Filename:    "archive.zip",
		ContentType: "application/zip",
		Content:     []byte("zzz"),
	})
	if !errors.Is(err, ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
	if fake.calls != 0 {
		t.Fatal("model must not be called for unsupported files")
	}
}

func TestProcessCompletedStageStaysSticky(t *testing.T) {
	t.Parallel()

	record := &statex.Record{ID: 1, SessionID: 7, Industry: "食品業", CurrentStage: statex.StageCompleted}
	store := &fakeStore{record: record}
	extractor := newTestExtractor(t, store, &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			toolCall("update_company_data", `{"capital_amount":1000000}`),
		},
	})

	if _, err := extractor.Process(context.Background(), 7, textDocument("補充資料")); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if store.record.Stage() != statex.StageCompleted {
		t.Fatalf("stage = %s, completed must stay terminal", store.record.Stage())
	}
}
