package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// AXNode is one node of an accessibility tree parsed from an ARIA snapshot.
type AXNode struct {
	Role     string            `json:"role"`
	Name     string            `json:"name,omitempty"`
	Value    string            `json:"value,omitempty"`
	Props    map[string]string `json:"props,omitempty"`
	Children []*AXNode         `json:"children,omitempty"`
}

// structural roles that carry no meaning on their own.
var plainRoles = set("generic", "none", "presentation", "group", "list", "listitem", "paragraph", "document", "rowgroup")

type axSnapshotParams struct {
	TabTarget
	InterestingOnly *bool  `json:"interesting_only"`
	RootSelector    string `json:"root_selector"`
	Timeout         int    `json:"timeout"`
}

type ariaSnapshotParams struct {
	TabTarget
	Selector string `json:"selector"`
	Timeout  int    `json:"timeout"`
}

func (s *toolset) accessibilityTools() []tools.Tool {
	return []tools.Tool{
		tools.New("get_accessibility_snapshot",
			"Capture the accessibility tree as roles, names, values and states. Usually far more compact than HTML.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"interesting_only": tools.Boolean("Drop purely structural nodes (default true)"),
				"root_selector":    tools.String("Limit the tree to this element"),
				"timeout":          tools.Timeout(),
			}), nil),
			s.getAccessibilitySnapshot),

		tools.New("get_aria_snapshot",
			"Return the ARIA snapshot of the page or one element as YAML.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"selector": tools.String("Limit the snapshot to this element (defaults to body)"),
				"timeout":  tools.Timeout(),
			}), nil),
			s.getAriaSnapshot),
	}
}

// ariaSnapshot returns the YAML snapshot of selector, or of body.
func (s *toolset) ariaSnapshot(ctx context.Context, target TabTarget, selector string, timeout int) (*Tab, string, error) {
	if selector == "" {
		selector = "body"
	}
	tab, loc, err := s.element(target, selector)
	if err != nil {
		return nil, "", err
	}
	ms := s.t.action(timeout)
	if err := present(ctx, tab, loc, selector, ms); err != nil {
		return nil, "", err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
	defer cancel()
	snap, err := call(ctx, tab, func() (string, error) { return loc.AriaSnapshot() })
	return tab, snap, err
}

func (s *toolset) getAriaSnapshot(ctx context.Context, p ariaSnapshotParams) (any, error) {
	tab, snap, err := s.ariaSnapshot(ctx, p.TabTarget, p.Selector, p.Timeout)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": tab.Page.URL(), "snapshot": snap}, nil
}

func (s *toolset) getAccessibilitySnapshot(ctx context.Context, p axSnapshotParams) (any, error) {
	tab, snap, err := s.ariaSnapshot(ctx, p.TabTarget, p.RootSelector, p.Timeout)
	if err != nil {
		return nil, err
	}
	nodes, err := ParseAriaSnapshot(snap)
	if err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "parse aria snapshot")
	}
	if p.InterestingOnly == nil || *p.InterestingOnly {
		nodes = prune(nodes)
	}
	var b strings.Builder
	for _, n := range nodes {
		formatNode(&b, n, 0)
	}
	return map[string]any{
		"url":       tab.Page.URL(),
		"formatted": strings.TrimRight(b.String(), "\n"),
		"nodes":     nodes,
	}, nil
}

// ParseAriaSnapshot turns playwright's YAML ARIA snapshot into a tree.
func ParseAriaSnapshot(snapshot string) ([]*AXNode, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(snapshot), &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("unexpected snapshot root kind %d", root.Kind)
	}
	return axChildren(root, nil), nil
}

// axChildren converts a sequence into nodes. Property entries such as
// "/url: ..." are recorded on parent instead.
func axChildren(seq *yaml.Node, parent *AXNode) []*AXNode {
	var out []*AXNode
	for _, item := range seq.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, parseAXHeader(item.Value))
		case yaml.MappingNode:
			for i := 0; i+1 < len(item.Content); i += 2 {
				key, val := item.Content[i].Value, item.Content[i+1]
				if strings.HasPrefix(key, "/") {
					if parent != nil && val.Kind == yaml.ScalarNode {
						if parent.Props == nil {
							parent.Props = map[string]string{}
						}
						parent.Props[strings.TrimPrefix(key, "/")] = val.Value
					}
					continue
				}
				n := parseAXHeader(key)
				switch val.Kind {
				case yaml.ScalarNode:
					if n.Role == "text" && n.Name == "" {
						n.Name = val.Value
					} else {
						n.Value = val.Value
					}
				case yaml.SequenceNode:
					n.Children = axChildren(val, n)
				}
				out = append(out, n)
			}
		}
	}
	return out
}

// parseAXHeader parses `role "name" [attr] [attr=value]`.
func parseAXHeader(h string) *AXNode {
	h = strings.TrimSpace(h)
	n := &AXNode{}
	role, rest, _ := strings.Cut(h, " ")
	n.Role = role
	rest = strings.TrimSpace(rest)

	if strings.HasPrefix(rest, `"`) {
		if end := closingQuote(rest); end > 0 {
			if name, err := strconv.Unquote(rest[:end+1]); err == nil {
				n.Name = name
			} else {
				n.Name = rest[1:end]
			}
			rest = strings.TrimSpace(rest[end+1:])
		}
	} else if strings.HasPrefix(rest, "/") {
		// regex names are kept verbatim
		if end := strings.LastIndex(rest, "/"); end > 0 {
			n.Name = rest[:end+1]
			rest = strings.TrimSpace(rest[end+1:])
		}
	}

	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}
		k, v, ok := strings.Cut(rest[1:end], "=")
		if !ok {
			v = "true"
		}
		if n.Props == nil {
			n.Props = map[string]string{}
		}
		n.Props[k] = v
		rest = strings.TrimSpace(rest[end+1:])
	}
	return n
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// prune removes unnamed structural nodes, hoisting their children.
func prune(nodes []*AXNode) []*AXNode {
	var out []*AXNode
	for _, n := range nodes {
		n.Children = prune(n.Children)
		if plainRoles[n.Role] && n.Name == "" && n.Value == "" && len(n.Props) == 0 {
			out = append(out, n.Children...)
			continue
		}
		out = append(out, n)
	}
	return out
}

func formatNode(b *strings.Builder, n *AXNode, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("[" + n.Role + "]")
	if n.Name != "" {
		b.WriteString(" " + strconv.Quote(n.Name))
	}
	if n.Value != "" {
		b.WriteString(" value=" + n.Value)
	}
	for _, k := range []string{"level", "checked", "disabled", "expanded", "pressed", "selected", "url"} {
		if v, ok := n.Props[k]; ok {
			b.WriteString(" " + k + "=" + v)
		}
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		formatNode(b, c, depth+1)
	}
}
