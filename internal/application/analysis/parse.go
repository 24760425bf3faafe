package analysis

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
)

var (
	// ErrNotMapping is returned when the model output parses but is not a key/value document.
	ErrNotMapping = errors.New("model output is not a mapping")
	// ErrMultipleDocuments is returned when the output holds more than one YAML document.
	ErrMultipleDocuments = errors.New("expected a single document in the model output")
	// ErrNonFinite is returned for .inf or .nan values, which JSON cannot carry.
	ErrNonFinite = errors.New("model output holds a non-finite number")
)

const maxDepth = 64

// StripFences removes a leading ```lang line and a trailing ``` from model output.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseOutput parses fenced or bare YAML/JSON into a result mapping, keeping
// the key order of the document.
func ParseOutput(text string) (*domain.Result, error) {
	dec := yaml.NewDecoder(strings.NewReader(StripFences(text)))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: got an empty document", ErrNotMapping)
		}
		return nil, err
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, ErrMultipleDocuments
	}

	root := resolve(&doc)
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = resolve(root.Content[0])
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: got %s", ErrNotMapping, root.ShortTag())
	}
	v, err := convert(root, 0)
	if err != nil {
		return nil, err
	}
	return v.(*domain.Result), nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func convert(n *yaml.Node, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New("model output is nested too deeply")
	}
	n = resolve(n)
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return convert(n.Content[0], depth+1)
	case yaml.MappingNode:
		out := domain.NewResult()
		if err := mergeInto(out, n, depth); err != nil {
			return nil, err
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := convert(c, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return nil, fmt.Errorf("%w: %s at line %d", ErrNonFinite, n.Value, n.Line)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unexpected YAML node at line %d", n.Line)
}

// mergeInto copies the pairs of mapping n into out. "<<" merge keys only fill
// fields the mapping does not set itself.
func mergeInto(out *domain.Result, n *yaml.Node, depth int) error {
	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if isMerge(key) {
			merges = append(merges, val)
			continue
		}
		v, err := convert(val, depth+1)
		if err != nil {
			return err
		}
		out.Set(keyString(key), v)
	}
	for _, m := range merges {
		m = resolve(m)
		sources := []*yaml.Node{m}
		if m.Kind == yaml.SequenceNode {
			sources = m.Content
		}
		for _, src := range sources {
			v, err := convert(src, depth+1)
			if err != nil {
				return err
			}
			sub, ok := v.(*domain.Result)
			if !ok {
				return fmt.Errorf("merge key at line %d does not point to a mapping", m.Line)
			}
			for _, k := range sub.Keys() {
				if _, exists := out.Get(k); !exists {
					val, _ := sub.Get(k)
					out.Set(k, val)
				}
			}
		}
	}
	return nil
}

func isMerge(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Value == "<<" && n.ShortTag() == "!!merge"
}

func keyString(n *yaml.Node) string {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode {
		return n.Value
	}
	var v any
	if err := n.Decode(&v); err == nil {
		return fmt.Sprint(v)
	}
	return n.Value
}
