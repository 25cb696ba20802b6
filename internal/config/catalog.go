package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultSuggestedQuestions seed the conversation before the first turn.
var defaultSuggestedQuestions = []string{
	"このデータではどのような質問ができますか？",
	"データの概要を教えてください",
	"最新のトレンドを分析してください",
}

// Catalog lists the semantic models the analyst can be pointed at and
// the starter questions offered before the first turn. Model paths use
// the <DATABASE>.<SCHEMA>.<STAGE>/<FILE> stage form.
type Catalog struct {
	Models             []string `yaml:"models"`
	SuggestedQuestions []string `yaml:"suggested_questions"`
}

// LoadCatalog reads the YAML semantic model catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse model catalog: %w", err)
	}
	if len(catalog.Models) == 0 {
		return nil, errors.New("model catalog lists no semantic models")
	}
	if len(catalog.SuggestedQuestions) == 0 {
		catalog.SuggestedQuestions = defaultSuggestedQuestions
	}
	return &catalog, nil
}

// ModelName returns the file portion of a semantic model path for
// display.
func ModelName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
