package pipeline

import (
	"fmt"
	"strings"

	"github.com/smallnest/campusrag/rag"
)

// buildKBContext assembles the prompt context: a knowledge-base block whose
// KBn labels follow retrieval rank order, and an optional web block labeled
// WEB1. Both empty yields an empty context, which downstream stages accept.
func buildKBContext(ragContext string, sources []rag.Source, extra string) string {
	hasRAG := strings.TrimSpace(ragContext) != ""
	hasExtra := strings.TrimSpace(extra) != ""
	if !hasRAG && !hasExtra {
		return ""
	}

	var blocks []string

	if hasRAG {
		labeled := sources
		if len(labeled) > maxCitedSources {
			labeled = labeled[:maxCitedSources]
		}
		lines := make([]string, len(labeled))
		for i, s := range labeled {
			title := s.Question
			if title == "" {
				title = s.ID
			}
			lines[i] = fmt.Sprintf("KB%d: %s", i+1, title)
		}

		blocks = append(blocks, fmt.Sprintf(`## Knowledge Base Context

下面是从校园知识库检索到的参考资料（请优先使用并在回答中引用 [KB1]/[KB2]...）：

%s

可用引用标签：
%s`, ragContext, strings.Join(lines, "\n")))
	}

	if hasExtra {
		web := extra
		if runes := []rune(web); len(runes) > maxWebContext {
			web = string(runes[:maxWebContext])
		}

		blocks = append(blocks, fmt.Sprintf(`## Web Context

下面是联网搜索到的补充背景信息（可能不完全可靠；涉及校园具体规定仍以学校官方为准）：

%s

可用引用标签：
WEB1`, web))
	}

	return strings.Join(blocks, "\n\n")
}
