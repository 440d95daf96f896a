// Package importer reads story lists from JSON or YAML documents and turns
// them into schedule requests.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderramin/timeboxer/internal/domain"
	"github.com/alexanderramin/timeboxer/internal/normalize"
	"gopkg.in/yaml.v3"
)

// StoryFile is the top-level input document. The HTTP request body uses the
// same shape.
type StoryFile struct {
	StartTime    string                `json:"startTime,omitempty"`
	Stories      []StoryImport         `json:"stories"`
	StoryMapping []domain.StoryMapping `json:"storyMapping,omitempty"`
}

type StoryImport struct {
	Title             string       `json:"title"`
	Summary           string       `json:"summary,omitempty"`
	Icon              string       `json:"icon,omitempty"`
	EstimatedDuration *int         `json:"estimatedDuration,omitempty"`
	StoryType         string       `json:"storyType,omitempty"`
	Category          string       `json:"category,omitempty"`
	ProjectType       string       `json:"projectType,omitempty"`
	Tasks             []TaskImport `json:"tasks"`
}

type TaskImport struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	Duration     *int   `json:"duration,omitempty"`
	TaskCategory string `json:"taskCategory,omitempty"`
	IsFrog       bool   `json:"isFrog,omitempty"`
	IsFlexible   bool   `json:"isFlexible,omitempty"`
	ProjectType  string `json:"projectType,omitempty"`
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file extension. Anything
// that is not .yaml or .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadStoryFile reads and parses a story document from disk.
func LoadStoryFile(path string) (*StoryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// Parse decodes a story document. Field aliases ("type", "project", "name")
// are rewritten to their canonical names before decoding, and three root
// shapes are accepted: the canonical object, a bare story array, and a
// single story object.
func Parse(data []byte, format Format) (*StoryFile, error) {
	var raw any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decoding json: %w", err)
		}
	}

	root, err := canonicalRoot(raw)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so both formats share the struct tags.
	buf, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("re-encoding document: %w", err)
	}
	var f StoryFile
	if err := json.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("decoding stories: %w", err)
	}
	return &f, nil
}

func canonicalRoot(raw any) (map[string]any, error) {
	var root map[string]any
	switch v := raw.(type) {
	case []any:
		root = map[string]any{"stories": v}
	case map[string]any:
		if _, ok := v["stories"]; ok {
			root = v
		} else if _, ok := v["tasks"]; ok {
			root = map[string]any{"stories": []any{v}}
		} else {
			return nil, fmt.Errorf("document has no stories")
		}
	default:
		return nil, fmt.Errorf("document root must be an object or array, got %T", raw)
	}

	list, ok := root["stories"].([]any)
	if !ok {
		return nil, fmt.Errorf("stories must be an array")
	}
	out := make(map[string]any, len(root))
	for k, v := range root {
		out[k] = v
	}
	stories := make([]any, len(list))
	for i, s := range list {
		if m, ok := s.(map[string]any); ok {
			stories[i] = normalize.StoryAliases(m)
			continue
		}
		stories[i] = s
	}
	out["stories"] = stories
	return out, nil
}
