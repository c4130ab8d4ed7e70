package generation

import (
	"fmt"
	"strings"

	"github.com/18061718791/AITestCraft-sub000/internal/ingestion"
)

const defaultSystemPrompt = `你是一名资深软件测试工程师。根据用户给出的需求，设计完整、可执行的测试内容。
覆盖正常流程、边界值、异常输入和权限场景。只输出结果，不要解释。`

func userPrompt(req Request) string {
	var b strings.Builder
	switch req.Kind {
	case KindCases:
		fmt.Fprintf(&b, "请为以下需求编写测试用例，使用 Markdown 表格输出，列依次为：%s。\n",
			strings.Join(ingestion.Columns, "、"))
		b.WriteString("优先级使用 高/中/低，状态统一填写 待执行，标签用英文逗号分隔。\n")
	default:
		b.WriteString("请为以下需求列出测试点，每行一条，以 \"- \" 开头，按功能模块分组。\n")
	}
	b.WriteString("\n需求：\n")
	b.WriteString(req.Requirement)
	return b.String()
}
