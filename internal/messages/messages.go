// Package messages holds the user-facing text templates.
package messages

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var raw []byte

type Catalog struct {
	Errors struct {
		Default          string `yaml:"default"`
		AnalysisFailed   string `yaml:"analysisFailed"`
		GenerationFailed string `yaml:"generationFailed"`
		InvalidResponse  string `yaml:"invalidResponse"`
	} `yaml:"errors"`
	Input struct {
		MinCharsWarning string `yaml:"minCharsWarning"`
		ViewPastBriefs  string `yaml:"viewPastBriefs"`
	} `yaml:"input"`
	Analysis struct {
		LevelUpDetail string `yaml:"levelUpDetail"`
	} `yaml:"analysis"`
	Questions struct {
		QuestionLabel string `yaml:"questionLabel"`
	} `yaml:"questions"`
	Output struct {
		CopiedAlert string `yaml:"copiedAlert"`
		SharedAlert string `yaml:"sharedAlert"`
	} `yaml:"output"`
	Briefs struct {
		EmptyState string `yaml:"emptyState"`
		Untitled   string `yaml:"untitled"`
	} `yaml:"briefs"`
}

var catalog = mustLoad(raw)

func mustLoad(data []byte) *Catalog {
	c, err := Load(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Load parses a catalog document.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	return &c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	return catalog
}

// Format substitutes {key} placeholders. Arguments are key, value pairs.
func Format(template string, kv ...any) string {
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(kv[i])+"}", fmt.Sprint(kv[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func AnalysisFailed(err error) string {
	return Format(catalog.Errors.AnalysisFailed, "error", err.Error())
}

func GenerationFailed(err error) string {
	return Format(catalog.Errors.GenerationFailed, "error", err.Error())
}
