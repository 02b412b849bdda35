package turnnode

import (
	"fmt"
	"strings"
)

var (
	menuStartWords    = []string{"1", "填寫", "填写", "開始", "开始"}
	menuProgressWords = []string{"2", "進度", "进度", "查看進度"}
	menuDataWords     = []string{"3", "已填", "查看資料", "查看数据"}
)

func matchMenu(text string, words []string) bool {
	for _, word := range words {
		if strings.Contains(text, word) {
			return true
		}
	}
	return false
}

// FirstTurnMenu answers the very first message of a session without calling
// the model: menu keyword replies, or the greeting when nothing matches.
func FirstTurnMenu(in *GraphState, greetingNew string) (*GraphState, error) {
	text := strings.ToLower(strings.TrimSpace(in.Text))

	switch {
	case matchMenu(text, menuStartWords):
		in.Reply = "太好了！讓我們開始收集您的公司資料。\n\n請問您的公司所屬產業別是什麼？（例如：食品業、鋼鐵業、電子業等）"

	case matchMenu(text, menuProgressWords):
		progress := in.Record.Progress(len(in.Products))
		in.Reply = fmt.Sprintf("📊 資料填寫進度：\n\n已完成欄位：%d/%d\n產品數量：%d 個\n\n%s\n\n您想繼續填寫資料嗎？（是/否）",
			progress.FieldsCompleted, progress.TotalFields, progress.ProductsCount,
			in.Record.CurrentDataSummary(in.Products))

	case matchMenu(text, menuDataWords):
		in.Reply = fmt.Sprintf("📋 目前已填寫的資料：\n\n%s\n\n您想繼續填寫資料嗎？（是/否）",
			in.Record.CurrentDataSummary(in.Products))

	default:
		in.Reply = initialGreeting(in, greetingNew)
	}

	return in, nil
}

func initialGreeting(in *GraphState, greetingNew string) string {
	if in.Record != nil && in.Record.Industry != "" {
		return in.Record.ReturningGreeting(in.Products)
	}
	return greetingNew
}
