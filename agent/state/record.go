package state

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

var (
	ErrRecordNotFound   = errors.New("onboarding record not found")
	ErrSessionNotFound  = errors.New("chat session not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrFieldMismatch    = errors.New("product field is not the one being collected")
	ErrDraftIncomplete  = errors.New("product draft is incomplete")
	ErrUnknownAttribute = errors.New("unknown company attribute")
)

// Record is the per-session company onboarding record. Exactly one record
// per user carries IsCurrent=true; starting a new session demotes the rest.
type Record struct {
	bun.BaseModel `bun:"table:onboarding_records,alias:r"`

	ID        int64 `bun:"id,pk,autoincrement" json:"id"`
	SessionID int64 `bun:"chat_session_id,notnull,unique" json:"chat_session_id"`
	UserID    int64 `bun:"user_id,notnull" json:"user_id"`

	Industry              string `bun:"industry" json:"industry"`
	CapitalAmount         *int64 `bun:"capital_amount" json:"capital_amount"`
	InventionPatentCount  *int64 `bun:"invention_patent_count" json:"invention_patent_count"`
	UtilityPatentCount    *int64 `bun:"utility_patent_count" json:"utility_patent_count"`
	CertificationCount    *int64 `bun:"certification_count" json:"certification_count"`
	ESGCertificationCount *int64 `bun:"esg_certification_count" json:"esg_certification_count"`
	ESGCertification      string `bun:"esg_certification" json:"esg_certification"`

	CurrentStage        Stage                   `bun:"current_stage,notnull,default:'industry'" json:"current_stage"`
	CurrentProductField ProductField            `bun:"current_product_field,nullzero" json:"current_product_field"`
	CurrentProductDraft map[ProductField]string `bun:"current_product_draft,type:jsonb" json:"current_product_draft"`

	IsCurrent bool `bun:"is_current,notnull,default:true" json:"is_current"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Product is one fully-collected product row. Rows only exist complete; the
// sub-machine accumulates partial data in Record.CurrentProductDraft.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID           int64  `bun:"id,pk,autoincrement" json:"id"`
	OnboardingID int64  `bun:"onboarding_id,notnull" json:"onboarding_id"`
	ProductID    string `bun:"product_id" json:"product_id"`
	ProductName  string `bun:"product_name" json:"product_name"`
	Price        string `bun:"price" json:"price"`

	MainRawMaterials    string `bun:"main_raw_materials" json:"main_raw_materials"`
	ProductStandard     string `bun:"product_standard" json:"product_standard"`
	TechnicalAdvantages string `bun:"technical_advantages" json:"technical_advantages"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// CompanyData is a partial update of the scalar company attributes. A nil
// pointer / empty string means "not provided". Counts supplied for ESG are
// ignored; the stored count is always derived from the certification string.
type CompanyData struct {
	Industry              string
	CapitalAmount         *int64
	InventionPatentCount  *int64
	UtilityPatentCount    *int64
	CertificationCount    *int64
	ESGCertification      string
	ESGCertificationCount *int64
}

func (r *Record) Stage() Stage {
	if r == nil || r.CurrentStage == "" {
		return StageIndustry
	}
	return r.CurrentStage
}

func (r *Record) productField() ProductField {
	if r.CurrentProductField == "" {
		return FieldProductID
	}
	return r.CurrentProductField
}

// ExpectedField returns the field the extraction model should fill on the
// next turn, or "" once the record is completed.
func (r *Record) ExpectedField() string {
	switch r.Stage() {
	case StageProduct:
		return string(r.productField())
	case StageCompleted:
		return ""
	default:
		return r.Stage().Attribute()
	}
}

// ExpectedTool returns the tool the extraction model is expected to call at
// the current stage.
func (r *Record) ExpectedTool() string {
	switch r.Stage() {
	case StageProduct:
		return "collect_product_field"
	case StageCompleted:
		return "mark_completed"
	default:
		return "update_company_data"
	}
}

// ExpectedDisplayName returns the Chinese label for the field the user is
// being asked for.
func (r *Record) ExpectedDisplayName() string {
	if r.Stage() == StageProduct {
		return r.productField().DisplayName()
	}
	return r.Stage().DisplayName()
}

// AdvanceStage moves the stage machine forward one step. Entering the
// product stage initializes the product sub-machine. No-op at COMPLETED.
func (r *Record) AdvanceStage() Stage {
	next := r.Stage().next()
	if next == r.Stage() {
		return r.Stage()
	}
	r.CurrentStage = next
	if next == StageProduct {
		r.resetDraft()
	}
	return next
}

// Resync recomputes the stage from the populated attributes: the first
// empty attribute in order wins, otherwise the product stage. It is a pure
// function of the data, so it is idempotent, and it never yields COMPLETED;
// completion is only reachable through an explicit mark_completed.
func (r *Record) Resync() {
	switch {
	case r.Industry == "":
		r.CurrentStage = StageIndustry
	case r.CapitalAmount == nil:
		r.CurrentStage = StageCapitalAmount
	case r.InventionPatentCount == nil:
		r.CurrentStage = StageInventionPatentCount
	case r.UtilityPatentCount == nil:
		r.CurrentStage = StageUtilityPatentCount
	case r.CertificationCount == nil:
		r.CurrentStage = StageCertificationCount
	case r.ESGCertification == "":
		r.CurrentStage = StageESGCertification
	default:
		r.CurrentStage = StageProduct
		if r.CurrentProductField == "" {
			r.resetDraft()
		}
	}
}

// CollectDraftField stores one value in the product draft. Only the field
// currently being collected is accepted; anything else is a schema drift
// from the model and must not touch the draft.
func (r *Record) CollectDraftField(field ProductField, value string) error {
	if !ValidProductField(field) {
		return fmt.Errorf("%w: %s", ErrFieldMismatch, field)
	}
	if field != r.productField() {
		return fmt.Errorf("%w: got %s, collecting %s", ErrFieldMismatch, field, r.productField())
	}
	if r.CurrentProductDraft == nil {
		r.CurrentProductDraft = make(map[ProductField]string, len(ProductFieldOrder))
	}
	r.CurrentProductDraft[field] = value
	return nil
}

// AdvanceProductField moves to the next product field. Returns false when
// the current field was the last one.
func (r *Record) AdvanceProductField() bool {
	next, ok := r.productField().next()
	if !ok {
		return false
	}
	r.CurrentProductField = next
	return true
}

// DraftComplete reports whether all six product fields are filled.
func (r *Record) DraftComplete() bool {
	for _, field := range ProductFieldOrder {
		if strings.TrimSpace(r.CurrentProductDraft[field]) == "" {
			return false
		}
	}
	return true
}

// DraftFilledCount returns how many product fields are filled so far.
func (r *Record) DraftFilledCount() int {
	n := 0
	for _, field := range ProductFieldOrder {
		if strings.TrimSpace(r.CurrentProductDraft[field]) != "" {
			n++
		}
	}
	return n
}

// DraftProduct materializes the draft into a product row. The draft must be
// complete.
func (r *Record) DraftProduct() (Product, error) {
	if !r.DraftComplete() {
		return Product{}, ErrDraftIncomplete
	}
	return Product{
		OnboardingID:        r.ID,
		ProductID:           r.CurrentProductDraft[FieldProductID],
		ProductName:         r.CurrentProductDraft[FieldProductName],
		Price:               r.CurrentProductDraft[FieldPrice],
		MainRawMaterials:    r.CurrentProductDraft[FieldMainRawMaterials],
		ProductStandard:     r.CurrentProductDraft[FieldProductStandard],
		TechnicalAdvantages: r.CurrentProductDraft[FieldTechnicalAdvantages],
	}, nil
}

// ResetDraft restarts the product sub-machine for the next product.
func (r *Record) ResetDraft() {
	r.resetDraft()
}

func (r *Record) resetDraft() {
	r.CurrentProductField = FieldProductID
	r.CurrentProductDraft = make(map[ProductField]string, len(ProductFieldOrder))
}

// ApplyCompanyData writes the provided attributes onto the record and
// reports whether anything changed. The ESG pair updates atomically: the
// stored count is derived from the certification string, and a count passed
// on its own is discarded.
func (r *Record) ApplyCompanyData(data CompanyData) bool {
	updated := false

	if data.Industry != "" {
		r.Industry = data.Industry
		updated = true
	}
	if data.CapitalAmount != nil {
		r.CapitalAmount = data.CapitalAmount
		updated = true
	}
	if data.InventionPatentCount != nil {
		r.InventionPatentCount = data.InventionPatentCount
		updated = true
	}
	if data.UtilityPatentCount != nil {
		r.UtilityPatentCount = data.UtilityPatentCount
		updated = true
	}
	if data.CertificationCount != nil {
		r.CertificationCount = data.CertificationCount
		updated = true
	}
	if data.ESGCertification != "" {
		count := int64(CountCertifications(data.ESGCertification))
		r.ESGCertification = data.ESGCertification
		r.ESGCertificationCount = &count
		updated = true
	}

	return updated
}

// ApplyCompanyAttribute coerces a single string value onto the named
// attribute. Used by the update_company_field correction path.
func (r *Record) ApplyCompanyAttribute(field string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: empty value for %s", ErrUnknownAttribute, field)
	}

	switch field {
	case "industry":
		r.ApplyCompanyData(CompanyData{Industry: value})
	case "capital_amount":
		n, err := parseAmount(value)
		if err != nil {
			return err
		}
		r.ApplyCompanyData(CompanyData{CapitalAmount: &n})
	case "invention_patent_count":
		n, err := parseAmount(value)
		if err != nil {
			return err
		}
		r.ApplyCompanyData(CompanyData{InventionPatentCount: &n})
	case "utility_patent_count":
		n, err := parseAmount(value)
		if err != nil {
			return err
		}
		r.ApplyCompanyData(CompanyData{UtilityPatentCount: &n})
	case "certification_count":
		n, err := parseAmount(value)
		if err != nil {
			return err
		}
		r.ApplyCompanyData(CompanyData{CertificationCount: &n})
	case "esg_certification":
		r.ApplyCompanyData(CompanyData{ESGCertification: value})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, field)
	}

	return nil
}

func parseAmount(value string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%d", &n); err != nil {
		var f float64
		if _, ferr := fmt.Sscanf(strings.TrimSpace(value), "%g", &f); ferr != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrUnknownAttribute, value)
		}
		n = int64(f)
	}
	return n, nil
}

var certSeparators = regexp.MustCompile(`[,，;；\n]+`)

var emptyCertAnswers = map[string]bool{
	"無":    true,
	"没有":   true,
	"none": true,
	"-":    true,
}

// CountCertifications counts certifications in a separator-delimited list.
// "no certifications" answers count as zero.
func CountCertifications(certifications string) int {
	trimmed := strings.TrimSpace(certifications)
	if trimmed == "" || emptyCertAnswers[strings.ToLower(trimmed)] {
		return 0
	}

	count := 0
	for _, part := range certSeparators.Split(trimmed, -1) {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}

// Progress is the 6-field completion state of the company attributes.
// ESG counts as one field; products are tracked separately.
type Progress struct {
	FieldsCompleted int  `json:"fields_completed"`
	TotalFields     int  `json:"total_fields"`
	ProductsCount   int  `json:"products_count"`
	Complete        bool `json:"company_info_complete"`
}

func (r *Record) Progress(productsCount int) Progress {
	done := 0
	if r.Industry != "" {
		done++
	}
	if r.CapitalAmount != nil {
		done++
	}
	if r.InventionPatentCount != nil {
		done++
	}
	if r.UtilityPatentCount != nil {
		done++
	}
	if r.CertificationCount != nil {
		done++
	}
	if r.ESGCertification != "" {
		done++
	}

	return Progress{
		FieldsCompleted: done,
		TotalFields:     len(stageAttribute),
		ProductsCount:   productsCount,
		Complete:        done == len(stageAttribute),
	}
}

// MissingFields lists the Chinese labels of company attributes still empty.
func (r *Record) MissingFields() []string {
	var missing []string
	if r.Industry == "" {
		missing = append(missing, "產業別")
	}
	if r.CapitalAmount == nil {
		missing = append(missing, "資本總額")
	}
	if r.InventionPatentCount == nil {
		missing = append(missing, "發明專利數量")
	}
	if r.UtilityPatentCount == nil {
		missing = append(missing, "新型專利數量")
	}
	if r.CertificationCount == nil {
		missing = append(missing, "公司認證資料")
	}
	if r.ESGCertification == "" {
		missing = append(missing, "ESG相關認證")
	}
	return missing
}

// ExportFormat renders the record and its products with the fixed export
// labels consumed by the downstream platform.
func (r *Record) ExportFormat(products []Product) map[string]any {
	exported := make([]map[string]any, 0, len(products))
	for _, p := range products {
		exported = append(exported, map[string]any{
			"產品ID":        p.ProductID,
			"產品名稱":        p.ProductName,
			"價格":          p.Price,
			"主要原料":        p.MainRawMaterials,
			"產品規格(尺寸、精度)": p.ProductStandard,
			"技術優勢":        p.TechnicalAdvantages,
		})
	}

	return map[string]any{
		"產業別":          r.Industry,
		"資本總額（以臺幣為單位）": r.CapitalAmount,
		"發明專利數量":       r.InventionPatentCount,
		"新型專利數量":       r.UtilityPatentCount,
		"公司認證資料數量":     r.CertificationCount,
		"ESG相關認證資料數量":  r.ESGCertificationCount,
		"ESG相關認證資料":    r.ESGCertification,
		"產品":           exported,
	}
}
