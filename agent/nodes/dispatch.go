package turnnode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// Dispatch applies the oracle's commands in call order against the stage
// machine. Commands that drift outside the stage's rules are dropped, not
// fatal: the model is untrusted input.
func Dispatch(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.RetryReply != "" {
		return in, nil
	}

	for _, cmd := range in.Commands {
		switch c := cmd.(type) {
		case contractx.UpdateCompanyData:
			data := restrictToStage(c.Data, in.Record.Stage())
			if in.Record.ApplyCompanyData(data) {
				in.DataUpdated = true
				in.Record.AdvanceStage()
			}

		case contractx.CollectProductField:
			if in.Record.Stage() != statex.StageProduct {
				log.Warn().
					Str("stage", string(in.Record.Stage())).
					Msg("dropping collect_product_field outside product stage")
				continue
			}
			if c.Value == "" {
				continue
			}
			if err := in.Record.CollectDraftField(c.Field, c.Value); err != nil {
				log.Warn().Err(err).
					Str("field", string(c.Field)).
					Msg("dropping off-field product value")
				continue
			}
			in.ProductFieldCollected = true
			if in.Record.DraftComplete() {
				product, err := in.Record.DraftProduct()
				if err != nil {
					return nil, err
				}
				if err := flushProduct(ctx, in, store, product); err != nil {
					return nil, err
				}
				in.ProductJustSaved = true
				in.Record.ResetDraft()
			} else {
				in.Record.AdvanceProductField()
			}

		case contractx.AddCompleteProduct:
			if stage := in.Record.Stage(); stage != statex.StageProduct && stage != statex.StageCompleted {
				log.Warn().
					Str("stage", string(stage)).
					Msg("dropping add_complete_product before product stage")
				continue
			}
			if missing := c.Missing(); len(missing) > 0 {
				in.BulkMissing = missing
				continue
			}
			if err := flushProduct(ctx, in, store, c.Product(in.Record.ID)); err != nil {
				return nil, err
			}
			in.ProductJustSaved = true
			in.Record.ResetDraft()

		case contractx.UpdateProduct:
			if c.ProductID == "" || c.Value == "" || !statex.ValidProductField(c.Field) || c.Field == statex.FieldProductID {
				continue
			}
			product, err := store.FindProduct(ctx, in.Record.ID, c.ProductID)
			if errors.Is(err, statex.ErrProductNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			setProductField(product, c.Field, c.Value)
			if err := store.SaveProduct(ctx, product); err != nil {
				return nil, err
			}
			replaceProduct(in.Products, *product)
			in.DataUpdated = true

		case contractx.UpdateCompanyField:
			if err := in.Record.ApplyCompanyAttribute(c.Field, c.Value); err != nil {
				log.Warn().Err(err).Str("field", c.Field).Msg("dropping company field update")
				continue
			}
			in.DataUpdated = true

		case contractx.ViewData:
			in.ViewDataRequested = true
			in.ViewDataResponse = renderView(in, c.DataType)

		case contractx.MarkCompleted:
			if stage := in.Record.Stage(); stage != statex.StageProduct && stage != statex.StageCompleted {
				log.Warn().
					Str("stage", string(stage)).
					Msg("dropping mark_completed before product stage")
				continue
			}
			if !c.Completed {
				continue
			}
			if err := store.SetSessionStatus(ctx, in.Session.ID, statex.SessionCompleted); err != nil {
				return nil, err
			}
			in.Record.CurrentStage = statex.StageCompleted
			in.Completed = true
		}
	}

	return in, nil
}

// restrictToStage drops attributes outside the stage's pinned field so a
// roaming model cannot fill fields ahead of the machine. update_company_data
// only exists on company-stage menus; at PRODUCT or COMPLETED the whole
// payload is schema drift and nothing survives, otherwise an off-menu call
// could walk PRODUCT into COMPLETED without mark_completed.
func restrictToStage(data statex.CompanyData, stage statex.Stage) statex.CompanyData {
	switch stage {
	case statex.StageIndustry:
		return statex.CompanyData{Industry: data.Industry}
	case statex.StageCapitalAmount:
		return statex.CompanyData{CapitalAmount: data.CapitalAmount}
	case statex.StageInventionPatentCount:
		return statex.CompanyData{InventionPatentCount: data.InventionPatentCount}
	case statex.StageUtilityPatentCount:
		return statex.CompanyData{UtilityPatentCount: data.UtilityPatentCount}
	case statex.StageCertificationCount:
		return statex.CompanyData{CertificationCount: data.CertificationCount}
	case statex.StageESGCertification:
		return statex.CompanyData{ESGCertification: data.ESGCertification}
	default:
		return statex.CompanyData{}
	}
}

// flushProduct inserts a product row, or merges onto the existing row when
// the product id already exists. Merging keeps old values for fields the new
// data leaves empty.
func flushProduct(ctx context.Context, in *GraphState, store statex.Store, product statex.Product) error {
	existing, err := store.FindProduct(ctx, in.Record.ID, product.ProductID)
	if err != nil && !errors.Is(err, statex.ErrProductNotFound) {
		return err
	}

	if existing == nil {
		if err := store.InsertProduct(ctx, &product); err != nil {
			return err
		}
		in.Products = append(in.Products, product)
		return nil
	}

	mergeProduct(existing, product)
	if err := store.SaveProduct(ctx, existing); err != nil {
		return err
	}
	replaceProduct(in.Products, *existing)
	return nil
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

func setProductField(product *statex.Product, field statex.ProductField, value string) {
	switch field {
	case statex.FieldProductName:
		product.ProductName = value
	case statex.FieldPrice:
		product.Price = value
	case statex.FieldMainRawMaterials:
		product.MainRawMaterials = value
	case statex.FieldProductStandard:
		product.ProductStandard = value
	case statex.FieldTechnicalAdvantages:
		product.TechnicalAdvantages = value
	}
}

func replaceProduct(products []statex.Product, updated statex.Product) {
	for i := range products {
		if products[i].ProductID == updated.ProductID {
			products[i] = updated
			return
		}
	}
}

func renderView(in *GraphState, dataType string) string {
	var body string
	switch dataType {
	case contractx.ViewCompany:
		body = in.Record.CompanySummary()
	case contractx.ViewProducts:
		body = statex.ProductsSummary(in.Products)
		if body == "" {
			body = "目前尚未新增任何產品。"
		}
	default:
		body = in.Record.CompanySummary() + "\n\n" + statex.ProductsSummary(in.Products)
	}
	return strings.TrimRight(body, "\n") + "\n\n還需要修改資料嗎？或說「完成」結束。"
}
