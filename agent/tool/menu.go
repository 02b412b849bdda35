package tool

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// The chat path forces a tool call, so the menu is the entire action space
// of the model for a turn. Company stages expose exactly one tool with one
// pinned attribute; the product stage pins the field enum to the single
// field being collected.

func function(name, description string, properties map[string]any, required []string) openai.ChatCompletionToolParam {
	return openai.ChatCompletionToolParam{
		Function: shared.FunctionDefinitionParam{
			Name:        name,
			Description: openai.String(description),
			Parameters: shared.FunctionParameters{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

func updateProductTool() openai.ChatCompletionToolParam {
	return function(contractx.ToolUpdateProduct,
		"更新現有產品的資訊（當使用者說要修改、更新某個產品時使用）",
		map[string]any{
			"product_id": map[string]any{"type": "string", "description": "要更新的產品ID"},
			"field": map[string]any{
				"type":        "string",
				"description": "要更新的欄位",
				"enum":        []string{"product_name", "price", "main_raw_materials", "product_standard", "technical_advantages"},
			},
			"value": map[string]any{"type": "string", "description": "新的值"},
		},
		[]string{"product_id", "field", "value"})
}

func addCompleteProductTool() openai.ChatCompletionToolParam {
	return function(contractx.ToolAddCompleteProduct,
		"當使用者一次提供完整產品資訊時使用（包含所有6個欄位）",
		map[string]any{
			"product_id":           map[string]any{"type": "string", "description": "產品ID"},
			"product_name":         map[string]any{"type": "string", "description": "產品名稱"},
			"price":                map[string]any{"type": "string", "description": "價格"},
			"main_raw_materials":   map[string]any{"type": "string", "description": "主要原料"},
			"product_standard":     map[string]any{"type": "string", "description": "產品規格"},
			"technical_advantages": map[string]any{"type": "string", "description": "技術優勢"},
		},
		[]string{"product_id", "product_name", "price", "main_raw_materials", "product_standard", "technical_advantages"})
}

func updateCompanyFieldTool() openai.ChatCompletionToolParam {
	return function(contractx.ToolUpdateCompanyField,
		"更新公司基本資料的某個欄位（當使用者說要修改公司資本額、專利數量等基本資料時使用）",
		map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "要更新的欄位",
				"enum":        []string{"industry", "capital_amount", "invention_patent_count", "utility_patent_count", "certification_count", "esg_certification"},
			},
			"value": map[string]any{"type": "string", "description": "新的值"},
		},
		[]string{"field", "value"})
}

func viewDataTool() openai.ChatCompletionToolParam {
	return function(contractx.ToolViewData,
		"當使用者要求「列出」、「顯示」、「查看」公司資料或產品資料時使用",
		map[string]any{
			"data_type": map[string]any{
				"type":        "string",
				"description": "要查看的資料類型",
				"enum":        []string{contractx.ViewCompany, contractx.ViewProducts, contractx.ViewAll},
			},
		},
		[]string{"data_type"})
}

func markCompletedTool(description string) openai.ChatCompletionToolParam {
	return function(contractx.ToolMarkCompleted, description,
		map[string]any{
			"completed": map[string]any{"type": "boolean"},
		},
		[]string{"completed"})
}

func collectProductFieldTool(field statex.ProductField) openai.ChatCompletionToolParam {
	return function(contractx.ToolCollectProductField,
		fmt.Sprintf("收集產品的 %s（當使用者只提供單一欄位時使用）", field.DisplayName()),
		map[string]any{
			"field": map[string]any{
				"type":        "string",
				"description": "欄位名稱",
				"enum":        []string{string(field)},
			},
			"value": map[string]any{
				"type":        "string",
				"description": fmt.Sprintf("使用者提供的%s", field.DisplayName()),
			},
		},
		[]string{"field", "value"})
}

var companyStageProperty = map[statex.Stage]struct {
	name string
	spec map[string]any
}{
	statex.StageIndustry: {"industry",
		map[string]any{"type": "string", "description": "產業別"}},
	statex.StageCapitalAmount: {"capital_amount",
		map[string]any{"type": "integer", "description": "資本總額（臺幣）"}},
	statex.StageInventionPatentCount: {"invention_patent_count",
		map[string]any{"type": "integer", "description": "發明專利數量"}},
	statex.StageUtilityPatentCount: {"utility_patent_count",
		map[string]any{"type": "integer", "description": "新型專利數量"}},
	statex.StageCertificationCount: {"certification_count",
		map[string]any{"type": "integer", "description": "公司認證數量（不含ESG）"}},
}

// ForStage returns the tool menu pinned to the record's current stage.
func ForStage(rec *statex.Record) []openai.ChatCompletionToolParam {
	switch stage := rec.Stage(); stage {
	case statex.StageProduct:
		field := statex.ProductField(rec.ExpectedField())
		return []openai.ChatCompletionToolParam{
			collectProductFieldTool(field),
			addCompleteProductTool(),
			updateProductTool(),
			updateCompanyFieldTool(),
			viewDataTool(),
			markCompletedTool("僅當使用者明確說「完成」、「結束」、「不用了」時調用"),
		}
	case statex.StageCompleted:
		return []openai.ChatCompletionToolParam{
			updateCompanyFieldTool(),
			updateProductTool(),
			addCompleteProductTool(),
			viewDataTool(),
			markCompletedTool("確認完成資料收集"),
		}
	case statex.StageESGCertification:
		return []openai.ChatCompletionToolParam{
			function(contractx.ToolUpdateCompanyData,
				fmt.Sprintf("更新 %s", stage.DisplayName()),
				map[string]any{
					"esg_certification":       map[string]any{"type": "string", "description": "ESG認證列表"},
					"esg_certification_count": map[string]any{"type": "integer", "description": "ESG認證數量"},
				},
				[]string{"esg_certification", "esg_certification_count"}),
		}
	default:
		prop := companyStageProperty[stage]
		return []openai.ChatCompletionToolParam{
			function(contractx.ToolUpdateCompanyData,
				fmt.Sprintf("更新 %s", stage.DisplayName()),
				map[string]any{prop.name: prop.spec},
				[]string{prop.name}),
		}
	}
}

// ForUpload returns the broad menu used on the document path, where a single
// call may fill many attributes at once. The upload model runs with auto
// tool choice through eino, hence the different schema type.
func ForUpload() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: contractx.ToolUpdateCompanyData,
			Desc: "從文件內容擷取到公司基本資料時使用，可一次更新多個欄位",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"industry":                {Type: schema.String, Desc: "產業別"},
				"capital_amount":          {Type: schema.Integer, Desc: "資本總額（臺幣）"},
				"invention_patent_count":  {Type: schema.Integer, Desc: "發明專利數量"},
				"utility_patent_count":    {Type: schema.Integer, Desc: "新型專利數量"},
				"certification_count":     {Type: schema.Integer, Desc: "公司認證數量（不含ESG）"},
				"esg_certification":       {Type: schema.String, Desc: "ESG認證列表"},
				"esg_certification_count": {Type: schema.Integer, Desc: "ESG認證數量"},
			}),
		},
		{
			Name: "add_product",
			Desc: "從文件內容擷取到產品資訊時使用，每個產品調用一次",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"product_id":           {Type: schema.String, Desc: "產品ID"},
				"product_name":         {Type: schema.String, Desc: "產品名稱", Required: true},
				"price":                {Type: schema.String, Desc: "價格"},
				"main_raw_materials":   {Type: schema.String, Desc: "主要原料"},
				"product_standard":     {Type: schema.String, Desc: "產品規格"},
				"technical_advantages": {Type: schema.String, Desc: "技術優勢"},
			}),
		},
	}
}
