package oracle

import (
	"encoding/json"
	"fmt"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

func decodeCommand(name, arguments string) (contractx.Command, error) {
	switch name {
	case contractx.ToolUpdateCompanyData:
		var args struct {
			Industry              string `json:"industry"`
			CapitalAmount         *int64 `json:"capital_amount"`
			InventionPatentCount  *int64 `json:"invention_patent_count"`
			UtilityPatentCount    *int64 `json:"utility_patent_count"`
			CertificationCount    *int64 `json:"certification_count"`
			ESGCertification      string `json:"esg_certification"`
			ESGCertificationCount *int64 `json:"esg_certification_count"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.UpdateCompanyData{Data: statex.CompanyData{
			Industry:              args.Industry,
			CapitalAmount:         args.CapitalAmount,
			InventionPatentCount:  args.InventionPatentCount,
			UtilityPatentCount:    args.UtilityPatentCount,
			CertificationCount:    args.CertificationCount,
			ESGCertification:      args.ESGCertification,
			ESGCertificationCount: args.ESGCertificationCount,
		}}, nil

	case contractx.ToolCollectProductField:
		var args struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.CollectProductField{
			Field: statex.ProductField(args.Field),
			Value: args.Value,
		}, nil

	case contractx.ToolAddCompleteProduct:
		var args struct {
			ProductID           string `json:"product_id"`
			ProductName         string `json:"product_name"`
			Price               string `json:"price"`
			MainRawMaterials    string `json:"main_raw_materials"`
			ProductStandard     string `json:"product_standard"`
			TechnicalAdvantages string `json:"technical_advantages"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.AddCompleteProduct{
			ProductID:           args.ProductID,
			ProductName:         args.ProductName,
			Price:               args.Price,
			MainRawMaterials:    args.MainRawMaterials,
			ProductStandard:     args.ProductStandard,
			TechnicalAdvantages: args.TechnicalAdvantages,
		}, nil

	case contractx.ToolUpdateProduct:
		var args struct {
			ProductID string `json:"product_id"`
			Field     string `json:"field"`
			Value     string `json:"value"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.UpdateProduct{
			ProductID: args.ProductID,
			Field:     statex.ProductField(args.Field),
			Value:     args.Value,
		}, nil

	case contractx.ToolUpdateCompanyField:
		var args struct {
			Field string `json:"field"`
			Value string `json:"value"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.UpdateCompanyField{Field: args.Field, Value: args.Value}, nil

	case contractx.ToolViewData:
		var args struct {
			DataType string `json:"data_type"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		if args.DataType == "" {
			args.DataType = contractx.ViewAll
		}
		return contractx.ViewData{DataType: args.DataType}, nil

	case contractx.ToolMarkCompleted:
		var args struct {
			Completed bool `json:"completed"`
		}
		if err := unmarshalArgs(name, arguments, &args); err != nil {
			return nil, err
		}
		return contractx.MarkCompleted{Completed: args.Completed}, nil
	}

	return nil, fmt.Errorf("%w: unknown tool %q", contractx.ErrSchemaViolation, name)
}

func unmarshalArgs(name, arguments string, target any) error {
	if err := json.Unmarshal([]byte(arguments), target); err != nil {
		return fmt.Errorf("%w: tool=%s arguments: %v", contractx.ErrSchemaViolation, name, err)
	}
	return nil
}
