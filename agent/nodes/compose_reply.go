package turnnode

import (
	"fmt"
	"strings"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// ComposeReply synthesizes the assistant reply from the dispatch outcome.
// Priority: menu > retry > view > completed > oracle text > product saved >
// data updated > product field collected > next-question fallback.
func ComposeReply(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Reply != "" {
		return in, nil
	}

	switch {
	case in.RetryReply != "":
		in.Reply = in.RetryReply

	case in.ViewDataRequested:
		in.Reply = in.ViewDataResponse

	case in.Completed:
		if in.OracleMessage != "" {
			in.Reply = in.OracleMessage
		} else {
			in.Reply = "感謝您完成資料收集！您的公司資料已成功儲存。"
		}

	case in.OracleMessage != "":
		in.Reply = in.OracleMessage

	case in.ProductJustSaved:
		in.Reply = fmt.Sprintf("✅ 產品已成功新增！\n\n%s\n\n還有其他產品要新增嗎？請提供新產品的**產品ID**，或說「完成」結束。",
			strings.TrimSpace(statex.ProductsSummary(in.Products)))

	case in.DataUpdated:
		in.Reply = dataUpdatedReply(in)

	case len(in.BulkMissing) > 0:
		in.Reply = fmt.Sprintf("⚠️ 產品資料不完整，缺少：%s。請補齊後再提供一次完整的產品資訊。",
			strings.Join(in.BulkMissing, "、"))

	case in.ProductFieldCollected:
		field := statex.ProductField(in.Record.ExpectedField())
		in.Reply = fmt.Sprintf("✅ 已記錄！%s\n\n請提供 **%s**",
			statex.ProductProgress(in.Record.DraftFilledCount()), field.DisplayName())

	default:
		in.Reply = in.Record.NextFieldQuestion(in.Products)
	}

	return in, nil
}

func dataUpdatedReply(in *GraphState) string {
	if in.EntryStage == statex.StageCompleted {
		return fmt.Sprintf("✅ 已更新資料！\n\n%s\n\n%s\n\n還需要修改其他資料嗎？或說「完成」結束。",
			strings.TrimSpace(in.Record.CurrentDataSummary(nil)),
			strings.TrimSpace(statex.ProductsSummary(in.Products)))
	}

	progress := in.Record.Progress(len(in.Products))
	stageName := in.EntryStage.DisplayName()
	remaining := progress.TotalFields - progress.FieldsCompleted

	var confirmation string
	switch {
	case progress.Complete:
		confirmation = fmt.Sprintf("✅ 已記錄 %s！\n\n", stageName)
	case progress.FieldsCompleted >= progress.TotalFields-2:
		confirmation = fmt.Sprintf("✅ 已記錄 %s！%s再 %d 項就完成基本資料了！\n\n",
			stageName, progress.Short(), remaining)
	default:
		confirmation = fmt.Sprintf("✅ 已記錄 %s！%s\n\n", stageName, progress.String())
	}

	return confirmation + in.Record.NextFieldQuestion(in.Products)
}
