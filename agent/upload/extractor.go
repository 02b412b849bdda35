// Package upload turns an uploaded document into onboarding data: docconv
// pulls the text out of the file, one broad-schema model call extracts
// whatever company attributes and products the text carries, and the results
// land on the session's record the same way a conversational turn would.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
	toolx "github.com/kaiyuanlo/onboarding-copilot/agent/tool"
	openaix "github.com/kaiyuanlo/onboarding-copilot/pkg/openai"
)

var (
	ErrUnsupportedFile = errors.New("upload: unsupported file type")
	ErrEmptyDocument   = errors.New("upload: no text extracted from document")
)

// extractTextLimit caps how much document text reaches the model. Counted in
// runes so a CJK document is not cut mid-character.
const extractTextLimit = 4000

var supportedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"image/jpeg": {},
	"image/png":  {},
	"text/plain": {},
}

// Document is one uploaded file.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Result reports what the document contributed to the record.
type Result struct {
	Message       string
	DataUpdated   bool
	ProductsAdded int
	TextLength    int
	Progress      statex.Progress
}

// Extractor runs the document extraction path. Unlike the conversational
// oracle it never forces a tool: a brochure may mention three products and no
// company data, or the other way around, so the model decides per call.
type Extractor struct {
	store        statex.Store
	model        einomodel.ToolCallingChatModel
	systemPrompt string
}

func NewExtractor(ctx context.Context, store statex.Store, builder openaix.LLMBuilder, systemPrompt string) (*Extractor, error) {
	if store == nil {
		return nil, errors.New("upload: state store is required")
	}
	if builder == nil {
		return nil, errors.New("upload: model builder is required")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, errors.New("upload: system prompt is required")
	}

	chatModel, err := builder.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: build extraction model: %v", contractx.ErrModelInvoke, err)
	}
	toolModel, err := chatModel.WithTools(toolx.ForUpload())
	if err != nil {
		return nil, fmt.Errorf("%w: bind extraction tools: %v", contractx.ErrModelInvoke, err)
	}

	return &Extractor{
		store:        store,
		model:        toolModel,
		systemPrompt: systemPrompt,
	}, nil
}

// Process extracts the document and applies what the model found to the
// session's record. The model call runs outside the transaction; only the
// apply-and-persist step is transactional.
func (e *Extractor) Process(ctx context.Context, sessionID int64, doc Document) (Result, error) {
	text, err := extractText(doc)
	if err != nil {
		return Result{}, err
	}

	msg, err := e.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(e.systemPrompt),
		schema.UserMessage("請從以下文件內容擷取公司資料：\n\n" + text),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: document extraction: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return Result{}, fmt.Errorf("%w: empty extraction response", contractx.ErrModelInvoke)
	}

	var out Result
	out.TextLength = len([]rune(text))

	err = e.store.RunInTx(ctx, func(ctx context.Context, tx statex.Store) error {
		record, err := tx.RecordBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		products, err := tx.ListProducts(ctx, record.ID)
		if err != nil {
			return err
		}

		for _, call := range msg.ToolCalls {
			switch call.Function.Name {
			case contractx.ToolUpdateCompanyData:
				updated, err := applyCompanyData(record, call.Function.Arguments)
				if err != nil {
					log.Warn().Err(err).Str("file", doc.Filename).Msg("dropping company data from document")
					continue
				}
				if updated {
					out.DataUpdated = true
				}

			case "add_product":
				added, err := applyProduct(ctx, tx, record, &products, call.Function.Arguments)
				if err != nil {
					log.Warn().Err(err).Str("file", doc.Filename).Msg("dropping product from document")
					continue
				}
				if added {
					out.ProductsAdded++
				}

			default:
				log.Warn().Str("tool", call.Function.Name).Msg("unknown tool call from document extraction")
			}
		}

		if out.DataUpdated && record.Stage() != statex.StageCompleted {
			record.Resync()
		}
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		out.Message = composeMessage(strings.TrimSpace(msg.Content), record, products, out)
		out.Progress = record.Progress(len(products))

		_, err = tx.AppendMessage(ctx, sessionID, statex.RoleAssistant,
			fmt.Sprintf("📄 已處理文件：%s\n\n%s", doc.Filename, out.Message))
		return err
	})
	if err != nil {
		return Result{}, err
	}

	return out, nil
}

func extractText(doc Document) (string, error) {
	contentType := strings.TrimSpace(doc.ContentType)
	if _, ok := supportedContentTypes[contentType]; !ok {
		return "", fmt.Errorf("%w: %s（支援 PDF, DOCX, JPG, PNG, TXT）", ErrUnsupportedFile, contentType)
	}

	res, err := docconv.Convert(bytes.NewReader(doc.Content), contentType, true)
	if err != nil {
		return "", fmt.Errorf("upload: convert %s: %w", doc.Filename, err)
	}

	text := strings.TrimSpace(res.Body)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Filename)
	}

	runes := []rune(text)
	if len(runes) > extractTextLimit {
		text = string(runes[:extractTextLimit])
	}
	return text, nil
}

// applyCompanyData applies whatever attributes the document yielded. No stage
// pinning here: a registration document legitimately fills fields the
// conversation has not reached yet.
func applyCompanyData(record *statex.Record, arguments string) (bool, error) {
	var args struct {
		Industry              string `json:"industry"`
		CapitalAmount         *int64 `json:"capital_amount"`
		InventionPatentCount  *int64 `json:"invention_patent_count"`
		UtilityPatentCount    *int64 `json:"utility_patent_count"`
		CertificationCount    *int64 `json:"certification_count"`
		ESGCertification      string `json:"esg_certification"`
		ESGCertificationCount *int64 `json:"esg_certification_count"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return false, fmt.Errorf("%w: update_company_data arguments: %v", contractx.ErrSchemaViolation, err)
	}

	return record.ApplyCompanyData(statex.CompanyData{
		Industry:              args.Industry,
		CapitalAmount:         args.CapitalAmount,
		InventionPatentCount:  args.InventionPatentCount,
		UtilityPatentCount:    args.UtilityPatentCount,
		CertificationCount:    args.CertificationCount,
		ESGCertification:      args.ESGCertification,
		ESGCertificationCount: args.ESGCertificationCount,
	}), nil
}

func applyProduct(ctx context.Context, store statex.Store, record *statex.Record, products *[]statex.Product, arguments string) (bool, error) {
	var args struct {
		ProductID           string `json:"product_id"`
		ProductName         string `json:"product_name"`
		Price               string `json:"price"`
		MainRawMaterials    string `json:"main_raw_materials"`
		ProductStandard     string `json:"product_standard"`
		TechnicalAdvantages string `json:"technical_advantages"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return false, fmt.Errorf("%w: add_product arguments: %v", contractx.ErrSchemaViolation, err)
	}
	if strings.TrimSpace(args.ProductName) == "" {
		return false, nil
	}
	if args.ProductID == "" {
		args.ProductID = fmt.Sprintf("DOC-%03d", len(*products)+1)
	}

	product := statex.Product{
		OnboardingID:        record.ID,
		ProductID:           args.ProductID,
		ProductName:         args.ProductName,
		Price:               args.Price,
		MainRawMaterials:    args.MainRawMaterials,
		ProductStandard:     args.ProductStandard,
		TechnicalAdvantages: args.TechnicalAdvantages,
	}

	existing, err := store.FindProduct(ctx, record.ID, product.ProductID)
	if err != nil && !errors.Is(err, statex.ErrProductNotFound) {
		return false, err
	}
	if existing == nil {
		if err := store.InsertProduct(ctx, &product); err != nil {
			return false, err
		}
		*products = append(*products, product)
		return true, nil
	}

	mergeProduct(existing, product)
	if err := store.SaveProduct(ctx, existing); err != nil {
		return false, err
	}
	for i := range *products {
		if (*products)[i].ProductID == existing.ProductID {
			(*products)[i] = *existing
		}
	}
	return true, nil
}

func mergeProduct(dst *statex.Product, src statex.Product) {
	if src.ProductName != "" {
		dst.ProductName = src.ProductName
	}
	if src.Price != "" {
		dst.Price = src.Price
	}
	if src.MainRawMaterials != "" {
		dst.MainRawMaterials = src.MainRawMaterials
	}
	if src.ProductStandard != "" {
		dst.ProductStandard = src.ProductStandard
	}
	if src.TechnicalAdvantages != "" {
		dst.TechnicalAdvantages = src.TechnicalAdvantages
	}
}

// composeMessage keeps the model's own summary when it wrote one; otherwise
// a confirmation is synthesized and the next question re-asked, so the upload
// hands the user back into the conversation.
func composeMessage(modelText string, record *statex.Record, products []statex.Product, out Result) string {
	if modelText != "" {
		return modelText
	}

	var confirmation string
	switch {
	case out.DataUpdated && out.ProductsAdded > 0:
		confirmation = fmt.Sprintf("✅ 已從文件中擷取並更新公司資料，並新增 %d 個產品！\n\n", out.ProductsAdded)
	case out.DataUpdated:
		confirmation = "✅ 已從文件中擷取並更新公司資料！\n\n"
	case out.ProductsAdded > 0:
		confirmation = fmt.Sprintf("✅ 已從文件中新增 %d 個產品！\n\n", out.ProductsAdded)
	default:
		confirmation = "已處理您的文件，但未能從中擷取到公司資料。\n\n"
	}

	return confirmation + record.NextFieldQuestion(products)
}
