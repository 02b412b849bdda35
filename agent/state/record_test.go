package state

import (
	"errors"
	"strings"
	"testing"
)

func int64p(v int64) *int64 { return &v }

func filledRecord() *Record {
	return &Record{
		Industry:             "食品業",
		CapitalAmount:        int64p(5000000),
		InventionPatentCount: int64p(3),
		UtilityPatentCount:   int64p(1),
		CertificationCount:   int64p(2),
		ESGCertification:     "ISO 14064, ISO 14067",
	}
}

func TestResyncFirstEmptyFieldWins(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.UtilityPatentCount = nil
	rec.CurrentStage = StageCompleted

	rec.Resync()
	if rec.Stage() != StageUtilityPatentCount {
		t.Fatalf("expected stage %s, got %s", StageUtilityPatentCount, rec.Stage())
	}
}

func TestResyncAllFilledEntersProduct(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.CurrentStage = StageIndustry

	rec.Resync()
	if rec.Stage() != StageProduct {
		t.Fatalf("expected product stage, got %s", rec.Stage())
	}
	if rec.CurrentProductField != FieldProductID {
		t.Fatalf("sub-machine not initialized, field=%s", rec.CurrentProductField)
	}
}

func TestResyncIdempotent(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.Resync()
	rec.CurrentProductField = FieldPrice
	rec.CollectDraftField(FieldPrice, "1000")

	rec.Resync()
	if rec.Stage() != StageProduct {
		t.Fatalf("stage changed on resync: %s", rec.Stage())
	}
	if rec.CurrentProductField != FieldPrice {
		t.Fatalf("sub-machine reset on resync, field=%s", rec.CurrentProductField)
	}
	if rec.CurrentProductDraft[FieldPrice] != "1000" {
		t.Fatal("draft lost on resync")
	}
}

func TestResyncNeverYieldsCompleted(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.CurrentStage = StageCompleted
	rec.Resync()
	if rec.Stage() == StageCompleted {
		t.Fatal("resync must not land on the completed stage")
	}
}

func TestAdvanceStageResetsDraftOnProductEntry(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.CurrentStage = StageESGCertification
	rec.CurrentProductField = FieldTechnicalAdvantages
	rec.CurrentProductDraft = map[ProductField]string{FieldProductID: "stale"}

	if next := rec.AdvanceStage(); next != StageProduct {
		t.Fatalf("expected product stage, got %s", next)
	}
	if rec.CurrentProductField != FieldProductID {
		t.Fatalf("draft pointer not reset: %s", rec.CurrentProductField)
	}
	if len(rec.CurrentProductDraft) != 0 {
		t.Fatalf("draft not cleared: %v", rec.CurrentProductDraft)
	}
}

func TestAdvanceStageCompletedIsTerminal(t *testing.T) {
	t.Parallel()

	rec := &Record{CurrentStage: StageCompleted}
	if next := rec.AdvanceStage(); next != StageCompleted {
		t.Fatalf("completed must be terminal, got %s", next)
	}
}

func TestCollectDraftFieldRejectsWrongField(t *testing.T) {
	t.Parallel()

	rec := &Record{CurrentStage: StageProduct, CurrentProductField: FieldProductID}
	err := rec.CollectDraftField(FieldPrice, "1000")
	if !errors.Is(err, ErrFieldMismatch) {
		t.Fatalf("expected ErrFieldMismatch, got %v", err)
	}
	if len(rec.CurrentProductDraft) != 0 {
		t.Fatal("draft must not change on mismatch")
	}
}

func TestProductDraftLifecycle(t *testing.T) {
	t.Parallel()

	rec := &Record{ID: 7, CurrentStage: StageProduct, CurrentProductField: FieldProductID}
	values := map[ProductField]string{
		FieldProductID:           "PROD001",
		FieldProductName:         "軸承",
		FieldPrice:               "1000",
		FieldMainRawMaterials:    "不鏽鋼",
		FieldProductStandard:     "10mm",
		FieldTechnicalAdvantages: "耐高溫",
	}

	for i, field := range ProductFieldOrder {
		if rec.DraftComplete() {
			t.Fatalf("draft complete too early at %s", field)
		}
		if err := rec.CollectDraftField(field, values[field]); err != nil {
			t.Fatalf("collect %s: %v", field, err)
		}
		if got := rec.DraftFilledCount(); got != i+1 {
			t.Fatalf("filled count after %s: got %d, want %d", field, got, i+1)
		}
		advanced := rec.AdvanceProductField()
		if i < len(ProductFieldOrder)-1 && !advanced {
			t.Fatalf("expected advance after %s", field)
		}
		if i == len(ProductFieldOrder)-1 && advanced {
			t.Fatal("advance past last field must report false")
		}
	}

	product, err := rec.DraftProduct()
	if err != nil {
		t.Fatalf("draft product: %v", err)
	}
	if product.OnboardingID != 7 || product.ProductID != "PROD001" || product.TechnicalAdvantages != "耐高溫" {
		t.Fatalf("unexpected product: %+v", product)
	}

	rec.ResetDraft()
	if _, err := rec.DraftProduct(); !errors.Is(err, ErrDraftIncomplete) {
		t.Fatalf("expected ErrDraftIncomplete after reset, got %v", err)
	}
}

func TestApplyCompanyDataDerivesESGCount(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	supplied := int64(99)
	updated := rec.ApplyCompanyData(CompanyData{
		ESGCertification:      "ISO 14067, ISO 14046",
		ESGCertificationCount: &supplied,
	})
	if !updated {
		t.Fatal("expected update")
	}
	if rec.ESGCertificationCount == nil || *rec.ESGCertificationCount != 2 {
		t.Fatalf("count must be derived from the list, got %v", rec.ESGCertificationCount)
	}
}

func TestApplyCompanyDataCountAloneIgnored(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if rec.ApplyCompanyData(CompanyData{ESGCertificationCount: int64p(5)}) {
		t.Fatal("a bare ESG count must not count as an update")
	}
	if rec.ESGCertificationCount != nil {
		t.Fatalf("bare count must be discarded, got %d", *rec.ESGCertificationCount)
	}
}

func TestCountCertifications(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"ISO 14067, ISO 14046", 2},
		{"ISO 14064；ISO 14067\nISO 14046", 3},
		{"ISO 14064，ISO 14067", 2},
		{"無", 0},
		{"没有", 0},
		{"None", 0},
		{"-", 0},
		{"  ", 0},
		{"ISO 9001", 1},
	}
	for _, tc := range cases {
		if got := CountCertifications(tc.in); got != tc.want {
			t.Fatalf("CountCertifications(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestApplyCompanyAttribute(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if err := rec.ApplyCompanyAttribute("capital_amount", "3000000"); err != nil {
		t.Fatalf("capital_amount: %v", err)
	}
	if rec.CapitalAmount == nil || *rec.CapitalAmount != 3000000 {
		t.Fatalf("unexpected capital: %v", rec.CapitalAmount)
	}

	if err := rec.ApplyCompanyAttribute("esg_certification", "ISO 14064"); err != nil {
		t.Fatalf("esg_certification: %v", err)
	}
	if rec.ESGCertificationCount == nil || *rec.ESGCertificationCount != 1 {
		t.Fatal("esg count not derived through attribute path")
	}

	if err := rec.ApplyCompanyAttribute("founded_year", "1999"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
	if err := rec.ApplyCompanyAttribute("invention_patent_count", "eleven"); !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestProgressAndMissingFields(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.CertificationCount = nil
	rec.ESGCertification = ""

	progress := rec.Progress(2)
	if progress.FieldsCompleted != 4 || progress.TotalFields != 6 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
	if progress.Complete {
		t.Fatal("progress must not be complete")
	}
	if progress.ProductsCount != 2 {
		t.Fatalf("products count: %d", progress.ProductsCount)
	}

	missing := rec.MissingFields()
	if len(missing) != 2 || missing[0] != "公司認證資料" || missing[1] != "ESG相關認證" {
		t.Fatalf("unexpected missing fields: %v", missing)
	}
}

func TestExpectedFieldPerStage(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if rec.ExpectedField() != "industry" || rec.ExpectedTool() != "update_company_data" {
		t.Fatalf("fresh record: field=%s tool=%s", rec.ExpectedField(), rec.ExpectedTool())
	}

	rec.CurrentStage = StageProduct
	rec.CurrentProductField = FieldPrice
	if rec.ExpectedField() != "price" || rec.ExpectedTool() != "collect_product_field" {
		t.Fatalf("product stage: field=%s tool=%s", rec.ExpectedField(), rec.ExpectedTool())
	}
	if rec.ExpectedDisplayName() != "價格" {
		t.Fatalf("display name: %s", rec.ExpectedDisplayName())
	}

	rec.CurrentStage = StageCompleted
	if rec.ExpectedField() != "" || rec.ExpectedTool() != "mark_completed" {
		t.Fatalf("completed stage: field=%s tool=%s", rec.ExpectedField(), rec.ExpectedTool())
	}
}

func TestExportFormatLabels(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.ESGCertificationCount = int64p(2)
	products := []Product{{ProductID: "PROD001", ProductName: "軸承", ProductStandard: "10mm"}}

	exported := rec.ExportFormat(products)
	if exported["產業別"] != "食品業" {
		t.Fatalf("industry label: %v", exported["產業別"])
	}
	if exported["資本總額（以臺幣為單位）"] != rec.CapitalAmount {
		t.Fatal("capital label missing")
	}
	if exported["ESG相關認證資料"] != "ISO 14064, ISO 14067" {
		t.Fatal("esg label missing")
	}

	rows, ok := exported["產品"].([]map[string]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("unexpected products payload: %v", exported["產品"])
	}
	if rows[0]["產品規格(尺寸、精度)"] != "10mm" {
		t.Fatalf("product standard label: %v", rows[0])
	}
}

func TestNextFieldQuestionFollowsOrder(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if q := rec.NextFieldQuestion(nil); !strings.Contains(q, "產業別") {
		t.Fatalf("expected industry question, got %q", q)
	}

	rec = filledRecord()
	rec.InventionPatentCount = nil
	if q := rec.NextFieldQuestion(nil); !strings.Contains(q, "發明專利") || !strings.Contains(q, "20年") {
		t.Fatalf("expected invention patent explainer, got %q", q)
	}

	rec = filledRecord()
	q := rec.NextFieldQuestion(nil)
	if !strings.Contains(q, "基本資料摘要") || !strings.Contains(q, ProductProgress(0)) {
		t.Fatalf("expected handoff summary, got %q", q)
	}

	q = rec.NextFieldQuestion([]Product{{ProductID: "PROD001"}})
	if !strings.Contains(q, "目前已新增 1 個產品") {
		t.Fatalf("expected next-product prompt, got %q", q)
	}
}

func TestReturningGreetingListsMissing(t *testing.T) {
	t.Parallel()

	rec := filledRecord()
	rec.CapitalAmount = nil
	greeting := rec.ReturningGreeting(nil)
	if !strings.Contains(greeting, "歡迎回來") {
		t.Fatalf("unexpected greeting: %q", greeting)
	}
	if !strings.Contains(greeting, "尚未填寫的資料：資本總額") {
		t.Fatalf("missing fields not listed: %q", greeting)
	}
}

func TestCurrentDataSummaryEmpty(t *testing.T) {
	t.Parallel()

	rec := &Record{}
	if got := rec.CurrentDataSummary(nil); got != "尚未收集任何資料" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
