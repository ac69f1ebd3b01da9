package rules

import (
	"errors"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/scan-io-git/permscan/internal/source"
	scanerrors "github.com/scan-io-git/permscan/pkg/shared/errors"
)

// KeyValueNode matches mapping entries of a parsed YAML document whose key and
// scalar value equal the configured tokens, ignoring case. Every document of a
// multi-document stream is inspected.
type KeyValueNode struct {
	Key   string
	Value string
}

// NewKeyValueNode creates a structural matcher for key: value.
func NewKeyValueNode(key, value string) *KeyValueNode {
	return &KeyValueNode{Key: key, Value: value}
}

// Kind implements Matcher.
func (m *KeyValueNode) Kind() string { return "yaml" }

// Match parses f and reports the position of each matching key.
func (m *KeyValueNode) Match(f *source.File) ([]Hit, error) {
	dec := yaml.NewDecoder(strings.NewReader(f.Content()))

	byLine := make(map[int]Hit)
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, scanerrors.NewDecodeError(f.Path, "invalid YAML document", err)
		}
		m.walk(&doc, byLine)
	}

	hits := make([]Hit, 0, len(byLine))
	for _, h := range byLine {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Line < hits[j].Line })
	return hits, nil
}

func (m *KeyValueNode) walk(n *yaml.Node, byLine map[int]Hit) {
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			m.walk(c, byLine)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i], n.Content[i+1]
			if m.matches(key, val) {
				hit := Hit{
					Line:      key.Line,
					Column:    key.Column,
					EndColumn: endColumn(key, val),
				}
				if prev, ok := byLine[hit.Line]; !ok || hit.Column < prev.Column {
					byLine[hit.Line] = hit
				}
			}
			m.walk(val, byLine)
		}
	}
}

func (m *KeyValueNode) matches(key, val *yaml.Node) bool {
	return key.Kind == yaml.ScalarNode && val.Kind == yaml.ScalarNode &&
		strings.EqualFold(key.Value, m.Key) && strings.EqualFold(val.Value, m.Value)
}

// endColumn covers the value when it sits on the key's line, otherwise just the key.
func endColumn(key, val *yaml.Node) int {
	if val.Line == key.Line && val.Column >= key.Column {
		width := utf8.RuneCountInString(val.Value)
		if val.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
			width += 2
		}
		return val.Column + width
	}
	return key.Column + utf8.RuneCountInString(key.Value)
}
