package jira

import (
	"fmt"
	"strings"
)

// The Atlassian Document Format (ADF) handling is split into a typed block
// intermediate representation with two inverse halves: ParseBlocks /
// RenderText read an upstream document into plain text, and BlocksFromText /
// BuildDocument turn plain text (with -/• bullet lines) back into the typed
// node structure JIRA requires for rich-text fields.

// BlockKind discriminates the block union.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindBulletList
	KindOrderedList
)

// Block is one top-level unit of a rich-text document.
type Block struct {
	Kind BlockKind
	// Text is set for paragraphs.
	Text string
	// Items is set for lists.
	Items []string
}

// ParseBlocks walks a raw ADF document into the block IR. Unknown node
// types are skipped; their nested text is not recovered.
func ParseBlocks(doc map[string]any) []Block {
	if doc == nil {
		return nil
	}
	content, _ := doc["content"].([]any)
	blocks := make([]Block, 0, len(content))
	for _, rawNode := range content {
		node, ok := rawNode.(map[string]any)
		if !ok {
			continue
		}
		switch node["type"] {
		case "paragraph":
			if text := textRuns(node); text != "" {
				blocks = append(blocks, Block{Kind: KindParagraph, Text: text})
			}
		case "bulletList":
			if items := listItems(node); len(items) > 0 {
				blocks = append(blocks, Block{Kind: KindBulletList, Items: items})
			}
		case "orderedList":
			if items := listItems(node); len(items) > 0 {
				blocks = append(blocks, Block{Kind: KindOrderedList, Items: items})
			}
		}
	}
	return blocks
}

// textRuns concatenates the text runs directly under a node.
func textRuns(node map[string]any) string {
	content, _ := node["content"].([]any)
	var sb strings.Builder
	for _, rawRun := range content {
		run, ok := rawRun.(map[string]any)
		if !ok {
			continue
		}
		if run["type"] == "text" {
			if text, ok := run["text"].(string); ok {
				sb.WriteString(text)
			}
		}
	}
	return sb.String()
}

// listItems flattens listItem nodes to their paragraph text.
func listItems(node map[string]any) []string {
	content, _ := node["content"].([]any)
	items := make([]string, 0, len(content))
	for _, rawItem := range content {
		item, ok := rawItem.(map[string]any)
		if !ok || item["type"] != "listItem" {
			continue
		}
		inner, _ := item["content"].([]any)
		var parts []string
		for _, rawPara := range inner {
			para, ok := rawPara.(map[string]any)
			if !ok {
				continue
			}
			if text := textRuns(para); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			items = append(items, strings.Join(parts, " "))
		}
	}
	return items
}

// RenderText flattens blocks to display text: bullets get a "• " prefix,
// ordered items an "N. " prefix.
func RenderText(blocks []Block) string {
	var lines []string
	for _, block := range blocks {
		switch block.Kind {
		case KindParagraph:
			lines = append(lines, block.Text)
		case KindBulletList:
			for _, item := range block.Items {
				lines = append(lines, "• "+item)
			}
		case KindOrderedList:
			for i, item := range block.Items {
				lines = append(lines, fmt.Sprintf("%d. %s", i+1, item))
			}
		}
	}
	return strings.Join(lines, "\n")
}

// ExtractText is the read path used by formatters: raw document in, display
// text out.
func ExtractText(doc map[string]any) string {
	return RenderText(ParseBlocks(doc))
}

// BlocksFromText parses plain text into the block IR. Consecutive lines
// starting with "-" or "•" group into one bullet list; everything else
// becomes a paragraph per line. Blank lines separate groups.
func BlocksFromText(text string) []Block {
	var blocks []Block
	var bullets []string

	flushBullets := func() {
		if len(bullets) > 0 {
			blocks = append(blocks, Block{Kind: KindBulletList, Items: bullets})
			bullets = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			flushBullets()
			continue
		}
		if item, ok := bulletItem(line); ok {
			bullets = append(bullets, item)
			continue
		}
		flushBullets()
		blocks = append(blocks, Block{Kind: KindParagraph, Text: line})
	}
	flushBullets()
	return blocks
}

func bulletItem(line string) (string, bool) {
	for _, prefix := range []string{"- ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

// BuildDocument converts plain text into the full ADF document JIRA accepts
// for rich-text fields.
func BuildDocument(text string) map[string]any {
	blocks := BlocksFromText(text)
	content := make([]any, 0, len(blocks))
	for _, block := range blocks {
		switch block.Kind {
		case KindParagraph:
			content = append(content, paragraphNode(block.Text))
		case KindBulletList:
			content = append(content, listNode("bulletList", block.Items))
		case KindOrderedList:
			content = append(content, listNode("orderedList", block.Items))
		}
	}
	if len(content) == 0 {
		content = append(content, paragraphNode(""))
	}
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": content,
	}
}

func paragraphNode(text string) map[string]any {
	runs := []any{}
	if text != "" {
		runs = append(runs, map[string]any{"type": "text", "text": text})
	}
	return map[string]any{"type": "paragraph", "content": runs}
}

func listNode(kind string, items []string) map[string]any {
	content := make([]any, 0, len(items))
	for _, item := range items {
		content = append(content, map[string]any{
			"type":    "listItem",
			"content": []any{paragraphNode(item)},
		})
	}
	return map[string]any{"type": kind, "content": content}
}
