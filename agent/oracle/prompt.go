package oracle

import (
	"fmt"
	"strings"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// The extraction prompt is pinned to the stage the same way the tool menu
// is: it names the one field being collected and the judgment rules for
// choosing between tools, so the model never roams ahead of the machine.

var stageHints = map[statex.Stage]string{
	statex.StageIndustry:             "例如：食品業、鋼鐵業、電子業、資訊服務業等",
	statex.StageCapitalAmount:        "請轉換為臺幣數字，例如「500萬」→ 5000000",
	statex.StageInventionPatentCount: "請擷取數量，例如「5個」→ 5",
	statex.StageUtilityPatentCount:   "請擷取數量，例如「3個」→ 3",
	statex.StageCertificationCount:   "不包括ESG認證，例如 ISO 9001, HACCP 等的數量",
	statex.StageESGCertification:     "如 ISO 14064, ISO 14067 等，需同時提供認證列表和數量",
}

func extractionPrompt(req contractx.OracleRequest) string {
	rec := req.Record

	var productIDs []string
	for _, p := range req.Products {
		if p.ProductID != "" {
			productIDs = append(productIDs, p.ProductID)
		}
	}
	productsContext := ""
	if len(productIDs) > 0 {
		productsContext = fmt.Sprintf("\n現有產品ID列表：%s", strings.Join(productIDs, ", "))
	}

	switch rec.Stage() {
	case statex.StageProduct:
		return productPrompt(rec, productsContext)
	case statex.StageCompleted:
		return completedPrompt(productsContext)
	default:
		return companyPrompt(rec, req.Products)
	}
}

func productPrompt(rec *statex.Record, productsContext string) string {
	field := statex.ProductField(rec.ExpectedField())

	draftSummary := ""
	if len(rec.CurrentProductDraft) > 0 {
		var b strings.Builder
		b.WriteString("\n目前產品草稿：\n")
		for _, f := range statex.ProductFieldOrder {
			if v, ok := rec.CurrentProductDraft[f]; ok {
				fmt.Fprintf(&b, "  • %s: %s\n", f.DisplayName(), v)
			}
		}
		draftSummary = b.String()
	}

	return fmt.Sprintf(`你是一個資料擷取助理。

🎯 目前正在收集的欄位：**%s**
📦 產品進度：【%d/6 已填寫】
%s%s

🔧 可用的工具：
1. **collect_product_field** - 當使用者只提供單一欄位時使用
2. **add_complete_product** - 當使用者一次提供完整產品資訊（6個欄位全部）時使用
3. **update_product** - 當使用者說要「修改」、「更新」、「更改」某個產品時使用
4. **update_company_field** - 當使用者說要「修改」、「更新」公司基本資料（如資本額、專利數量等）時使用
5. **view_data** - 當使用者說「列出」、「顯示」、「查看」資料時使用
6. **mark_completed** - 當使用者說「完成」、「結束」、「不用了」時使用

⚠️ 重要判斷規則：
- 如果使用者說「列出」、「顯示」、「查看」公司資料 → 使用 view_data(data_type="company")
- 如果使用者說「列出」、「顯示」、「查看」產品資料 → 使用 view_data(data_type="products")
- 如果使用者說「列出」、「顯示」、「查看」全部資料 → 使用 view_data(data_type="all")
- 如果使用者說要修改「公司資料」、「資本額」、「專利」等基本資料 → 使用 update_company_field
  - field 可選：industry, capital_amount, invention_patent_count, utility_patent_count, certification_count, esg_certification
  - 例如「資本額改為300萬」→ update_company_field(field="capital_amount", value="3000000")
- 如果使用者說「修改」、「更新」、「更改」某產品的某欄位 → 使用 update_product
- 如果使用者訊息包含「產品ID」+「產品名稱」+「價格」+「主要原料」+「規格」+「技術優勢」→ 使用 add_complete_product
- 如果使用者只提供單一值（回答當前問題）→ 使用 collect_product_field，field="%s"
- 如果使用者回答「-」、「無」、「沒有」→ 使用 collect_product_field，value="-"

回覆時請友善確認已記錄的資訊。`,
		field.DisplayName(), rec.DraftFilledCount(), draftSummary, productsContext, string(field))
}

func completedPrompt(productsContext string) string {
	return fmt.Sprintf(`你是一個資料收集助理。使用者已完成基本資料收集。
%s

🔧 可用的工具：
1. **update_company_field** - 當使用者說要「修改」、「更新」公司基本資料時使用
   - 可更新欄位：industry, capital_amount, invention_patent_count, utility_patent_count, certification_count, esg_certification
2. **update_product** - 當使用者說要「修改」、「更新」某個產品時使用
   - 需要指定 product_id 和要更新的 field
3. **add_complete_product** - 當使用者要新增產品時使用
4. **view_data** - 當使用者說「列出」、「顯示」、「查看」資料時使用
5. **mark_completed** - 當使用者確認完成時使用

⚠️ 重要判斷規則：
- 如果使用者說「列出」、「顯示」、「查看」公司資料 → 使用 view_data(data_type="company")
- 如果使用者說「列出」、「顯示」、「查看」產品資料 → 使用 view_data(data_type="products")
- 如果使用者說「列出」、「顯示」、「查看」全部資料 → 使用 view_data(data_type="all")
- 如果使用者說「修改產品X的價格為Y」→ 使用 update_product(product_id="X", field="price", value="Y")
- 如果使用者說「修改資本額為Y」→ 使用 update_company_field(field="capital_amount", value="Y")
- 如果使用者說「新增產品」並提供完整資訊 → 使用 add_complete_product
- 如果使用者說「完成」、「結束」→ 使用 mark_completed

回覆時請友善確認已更新的資訊，並顯示更新後的值。`, productsContext)
}

func companyPrompt(rec *statex.Record, products []statex.Product) string {
	stage := rec.Stage()
	progress := rec.Progress(len(products))

	esgNote := ""
	if stage == statex.StageESGCertification {
		esgNote = "\n⚠️ ESG認證特別注意：必須同時傳回 esg_certification（認證列表字串）和 esg_certification_count（認證數量）\n"
	}

	return fmt.Sprintf(`你是一個資料擷取助理。

🎯 目前正在收集的欄位：**%s**
📊 基本資料進度：【%d/6 已完成】

⚠️ 重要規則：
1. 你必須調用 update_company_data 函數
2. 只擷取 %s 這一個欄位
3. 不要填寫或猜測其他欄位
4. %s
5. 如果使用者回答「無」、「沒有」、「0」，設置對應的值（字串設為「無」，數字設為 0）
%s
回覆時請友善確認已記錄的資訊，並顯示進度。`,
		stage.DisplayName(), progress.FieldsCompleted, stage.Attribute(), stageHints[stage], esgNote)
}
