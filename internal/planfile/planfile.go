// Package planfile parses plan.md, a GitHub-flavored markdown checklist
// grouped into phases by level-2 headings.
package planfile

import (
	"os"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/reportbuilder/internal/foundation/errors"
)

// Item is one checklist entry from the plan. PhaseNumber is the 1-based
// ordinal of the level-2 heading the item appears under; items before the
// first heading get phase 0 and an empty phase name.
type Item struct {
	Phase       string
	PhaseNumber int
	Description string
	Checked     bool
}

// Parse extracts checklist items from markdown source in document order.
// Only task-list entries ("- [ ]" / "- [x]") become items; plain list
// entries and other markdown constructs are ignored.
func Parse(src []byte) []Item {
	md := goldmark.New(goldmark.WithExtensions(extension.TaskList))
	root := md.Parser().Parse(text.NewReader(src))

	items := []Item{}
	phase := ""
	phaseNumber := 0

	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			if node.Level == 2 {
				phaseNumber++
				phase = strings.TrimSpace(textOf(node, src))
			}
		case *east.TaskCheckBox:
			parent := node.Parent()
			if parent == nil {
				return gmast.WalkContinue, nil
			}
			items = append(items, Item{
				Phase:       phase,
				PhaseNumber: phaseNumber,
				Description: strings.TrimSpace(textOf(parent, src)),
				Checked:     node.IsChecked,
			})
		}
		return gmast.WalkContinue, nil
	})

	return items
}

// ParseFile reads and parses a plan document from disk.
func ParseFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingFileError(path).Build()
		}
		return nil, errors.FileSystemError("failed to read plan file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	return Parse(data), nil
}

// textOf collects the literal text under a node. The checkbox node itself
// carries no text, so calling this on its parent block yields the item
// description.
func textOf(n gmast.Node, src []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(child gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(src))
		case *gmast.String:
			sb.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return sb.String()
}
