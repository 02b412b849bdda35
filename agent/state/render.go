package state

import (
	"fmt"
	"strconv"
	"strings"
)

// Rendering of the Chinese-facing reply fragments. Every deterministic reply
// the bot sends is assembled from these helpers, so wording lives in one
// place.

const divider = "━━━━━━━━━━━━━━━"

// String renders the long progress banner with the remaining-items count.
func (p Progress) String() string {
	remaining := p.TotalFields - p.FieldsCompleted
	return fmt.Sprintf("【進度：%d/%d 已完成，還剩 %d 項】", p.FieldsCompleted, p.TotalFields, remaining)
}

// Short renders the compact progress banner.
func (p Progress) Short() string {
	return fmt.Sprintf("【進度：%d/%d 已完成】", p.FieldsCompleted, p.TotalFields)
}

// ProductProgress renders the product sub-machine banner.
func ProductProgress(filled int) string {
	return fmt.Sprintf("【產品進度：%d/%d 已填寫】", filled, len(ProductFieldOrder))
}

func renderCount(v *int64) string {
	if v == nil {
		return "未填寫"
	}
	return strconv.FormatInt(*v, 10)
}

func renderText(v string) string {
	if v == "" {
		return "未填寫"
	}
	return v
}

// CompanySummary renders the boxed company attribute summary.
func (r *Record) CompanySummary() string {
	if r == nil {
		return "尚未有公司基本資料。"
	}

	var b strings.Builder
	b.WriteString("\n" + divider + "\n🏢 公司基本資料：\n" + divider + "\n")
	fmt.Fprintf(&b, "  • 產業別：%s\n", renderText(r.Industry))
	fmt.Fprintf(&b, "  • 資本總額：%s\n", renderCount(r.CapitalAmount))
	fmt.Fprintf(&b, "  • 發明專利數量：%s\n", renderCount(r.InventionPatentCount))
	fmt.Fprintf(&b, "  • 新型專利數量：%s\n", renderCount(r.UtilityPatentCount))
	fmt.Fprintf(&b, "  • 公司認證資料數量：%s\n", renderCount(r.CertificationCount))
	fmt.Fprintf(&b, "  • ESG相關認證數量：%s\n", renderCount(r.ESGCertificationCount))
	fmt.Fprintf(&b, "  • ESG相關認證資料：%s\n", renderText(r.ESGCertification))
	return b.String()
}

// ProductsSummary renders the boxed list of saved products, or "" when none
// exist yet.
func ProductsSummary(products []Product) string {
	if len(products) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n📦 已記錄的產品列表（共 %d 個）：\n%s\n", divider, len(products), divider)
	for i, p := range products {
		name := p.ProductName
		if name == "" {
			name = "未命名"
		}
		fmt.Fprintf(&b, "\n**產品 %d**：%s\n", i+1, name)
		fmt.Fprintf(&b, "  • 產品ID：%s\n", orDash(p.ProductID))
		fmt.Fprintf(&b, "  • 價格：%s\n", orDash(p.Price))
		fmt.Fprintf(&b, "  • 主要原料：%s\n", orDash(p.MainRawMaterials))
		fmt.Fprintf(&b, "  • 規格：%s\n", orDash(p.ProductStandard))
		fmt.Fprintf(&b, "  • 技術優勢：%s\n", orDash(p.TechnicalAdvantages))
	}
	return b.String()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

// CurrentDataSummary renders the plain-text data dump used both in the menu
// replies and as grounding context for the extraction model.
func (r *Record) CurrentDataSummary(products []Product) string {
	if r == nil {
		return "尚未收集任何資料"
	}

	var lines []string
	if r.Industry != "" {
		lines = append(lines, fmt.Sprintf("產業別: %s", r.Industry))
	}
	if r.CapitalAmount != nil {
		lines = append(lines, fmt.Sprintf("資本總額: %d 臺幣", *r.CapitalAmount))
	}
	if r.InventionPatentCount != nil {
		lines = append(lines, fmt.Sprintf("發明專利: %d件", *r.InventionPatentCount))
	}
	if r.UtilityPatentCount != nil {
		lines = append(lines, fmt.Sprintf("新型專利: %d件", *r.UtilityPatentCount))
	}
	if r.CertificationCount != nil {
		lines = append(lines, fmt.Sprintf("公司認證資料: %d份", *r.CertificationCount))
	}
	if r.ESGCertificationCount != nil {
		lines = append(lines, fmt.Sprintf("ESG認證數量: %d份", *r.ESGCertificationCount))
	}
	if r.ESGCertification != "" {
		lines = append(lines, fmt.Sprintf("ESG認證: %s", r.ESGCertification))
	}

	if len(products) > 0 {
		lines = append(lines, fmt.Sprintf("\n產品數量: %d個", len(products)))
		lines = append(lines, "產品明細:")
		for i, p := range products {
			detail := []string{fmt.Sprintf("  產品 %d:", i+1)}
			if p.ProductID != "" {
				detail = append(detail, fmt.Sprintf("    - 產品ID: %s", p.ProductID))
			}
			if p.ProductName != "" {
				detail = append(detail, fmt.Sprintf("    - 產品名稱: %s", p.ProductName))
			}
			if p.Price != "" {
				detail = append(detail, fmt.Sprintf("    - 價格: %s", p.Price))
			}
			if p.MainRawMaterials != "" {
				detail = append(detail, fmt.Sprintf("    - 主要原料: %s", p.MainRawMaterials))
			}
			if p.ProductStandard != "" {
				detail = append(detail, fmt.Sprintf("    - 產品規格: %s", p.ProductStandard))
			}
			if p.TechnicalAdvantages != "" {
				detail = append(detail, fmt.Sprintf("    - 技術優勢: %s", p.TechnicalAdvantages))
			}
			lines = append(lines, strings.Join(detail, "\n"))
		}
	}

	if len(lines) == 0 {
		return "尚未收集任何資料"
	}
	return strings.Join(lines, "\n")
}

// NextFieldQuestion renders the question for the first missing field, the
// basic-data summary handoff once all six attributes are filled, or the
// next-product prompt when products already exist.
func (r *Record) NextFieldQuestion(products []Product) string {
	progress := r.Progress(len(products)).Short()

	switch {
	case r.Industry == "":
		return progress + "\n請問您的公司所屬產業別是什麼？（例如：食品業、鋼鐵業、電子業等）"
	case r.CapitalAmount == nil:
		return progress + "\n請問您的公司資本總額是多少？（以臺幣為單位）"
	case r.InventionPatentCount == nil:
		return progress + "\n請問貴公司有多少**發明專利**？（請提供數量）\n\n" +
			"💡 發明專利是什麼？\n發明專利是保護「技術方案」的專利，包括產品發明（如新材料、新裝置）或方法發明（如製程、配方）。保護期限為20年，是技術創新能力的重要指標。"
	case r.UtilityPatentCount == nil:
		return progress + "\n請問貴公司有多少**新型專利**？（請提供數量）\n\n" +
			"💡 新型專利是什麼？\n新型專利是保護產品「形狀、構造」的專利，例如機械結構改良、零件設計等。保護期限為10年，審查較快速，重視產品外觀或結構的創新。"
	case r.CertificationCount == nil:
		return progress + "\n請問貴公司有多少公司認證資料？（不包括ESG認證，例如：ISO 9001、HACCP等）"
	case r.ESGCertification == "":
		return progress + "\n請列出貴公司所有ESG相關認證（例如：ISO 14064, ISO 14067, ISO 14046）。如果沒有，請回答「無」。"
	}

	if len(products) == 0 {
		return fmt.Sprintf(`🎉 太好了！基本資料已收集完成 %s

%s
📋 基本資料摘要
%s
• 產業別：%s
• 資本額：%s 臺幣
• 發明專利：%s 件
• 新型專利：%s 件
• 公司認證：%s 項
• ESG認證：%s

接下來請提供產品資訊，讓【推薦引擎】能幫助您曝光產品。

我會逐一詢問每個產品的詳細資訊（共6項）：
• 產品ID → 產品名稱 → 價格 → 主要原料 → 規格 → 技術優勢
（如果有多個產品，建議直接跟著格式上傳檔案）

請先提供第一個產品的**產品ID**（例如：PROD001）
%s`,
			progress, divider, divider,
			renderText(r.Industry),
			renderCount(r.CapitalAmount),
			renderCount(r.InventionPatentCount),
			renderCount(r.UtilityPatentCount),
			renderCount(r.CertificationCount),
			renderText(r.ESGCertification),
			ProductProgress(0))
	}

	return fmt.Sprintf("📦 目前已新增 %d 個產品。%s%s\n\n"+
		"還有其他產品要新增嗎？如要新增，請提供新產品的**產品ID** 開始流程或直接上傳文件 （PDF、Word）皆可。\n"+
		"如果資料已完成，請告訴我「完成」。\n\n"+
		"💡 產品資訊越完整，【推薦引擎】越能精準幫您媒合商機！",
		len(products), progress, ProductsSummary(products))
}

// ReturningGreeting renders the greeting for a user with existing data,
// including the progress box and the 5-option menu.
func (r *Record) ReturningGreeting(products []Product) string {
	progress := r.Progress(len(products))

	missing := r.MissingFields()
	missingStr := ""
	if len(missing) > 0 {
		missingStr = fmt.Sprintf("\n\n⚠️ 尚未填寫的資料：%s", strings.Join(missing, ", "))
	}

	return fmt.Sprintf(`您好！歡迎回來！👋

%s
📊 資料填寫進度：%s
%s
• 產業別：%s
• 資本額：%s 臺幣
• 發明專利：%s 件
• 新型專利：%s 件
• 公司認證：%s 項
• ESG認證：%s
• 產品數量：%d 項%s

💡 完整資料可解鎖平臺功能：
   • 【推薦引擎】- 曝光產品、尋找合作夥伴
   • 【補助引擎】- 協助申請政府補助案

%s
請問您想要：

1️⃣ 更新資料 - 修改或補充現有資料
2️⃣ 新增產品 - 新增更多產品資訊
3️⃣ 上傳文件 - 上傳文件來更新資訊
4️⃣ 查看完整資料 - 查看所有已填寫的資料
5️⃣ 重新開始 - 清空資料重新填寫

請輸入數字（1-5）或直接說明您的需求。`,
		divider, progress.Short(), divider,
		renderText(r.Industry),
		renderCount(r.CapitalAmount),
		renderCount(r.InventionPatentCount),
		renderCount(r.UtilityPatentCount),
		renderCount(r.CertificationCount),
		renderText(r.ESGCertification),
		len(products), missingStr,
		divider)
}
