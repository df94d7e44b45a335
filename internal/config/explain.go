package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/evepreview/internal/profile"
)

// Explain returns the effective value at a YAML path such as
// "global.capture.workers" or "profiles[0].thumbnail.opacity", and where it
// was set. An empty Source.File means the built-in default applies.
func Explain(res *LoadResult, path string) (any, profile.Source, error) {
	if res == nil || res.Config == nil {
		return nil, profile.Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, profile.Source{}, fmt.Errorf("path is empty")
	}

	var root yaml.Node
	if err := root.Encode(res.Config); err != nil {
		return nil, profile.Source{}, fmt.Errorf("failed to encode config: %w", err)
	}
	node, err := lookupNode(&root, path)
	if err != nil {
		return nil, profile.Source{}, err
	}
	var value any
	if err := node.Decode(&value); err != nil {
		return nil, profile.Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return value, res.Sources[path], nil
}

func lookupNode(root *yaml.Node, path string) (*yaml.Node, error) {
	node := root
	for _, seg := range splitPath(path) {
		if idx, ok := seg.index(); ok {
			if node.Kind != yaml.SequenceNode || idx < 0 || idx >= len(node.Content) {
				return nil, fmt.Errorf("unknown path %q", path)
			}
			node = node.Content[idx]
			continue
		}
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == string(seg) {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return nil, fmt.Errorf("unknown path %q", path)
		}
		node = next
	}
	return node, nil
}

type pathSegment string

func (s pathSegment) index() (int, bool) {
	if !strings.HasPrefix(string(s), "[") || !strings.HasSuffix(string(s), "]") {
		return 0, false
	}
	n, err := strconv.Atoi(string(s[1 : len(s)-1]))
	return n, err == nil
}

// splitPath turns "profiles[0].name" into ["profiles", "[0]", "name"].
func splitPath(path string) []pathSegment {
	var out []pathSegment
	for _, part := range strings.Split(path, ".") {
		for part != "" {
			i := strings.IndexByte(part, '[')
			switch {
			case i < 0:
				out = append(out, pathSegment(part))
				part = ""
			case i > 0:
				out = append(out, pathSegment(part[:i]))
				part = part[i:]
			default:
				j := strings.IndexByte(part, ']')
				if j < 0 {
					out = append(out, pathSegment(part))
					part = ""
					continue
				}
				out = append(out, pathSegment(part[:j+1]))
				part = part[j+1:]
			}
		}
	}
	return out
}
