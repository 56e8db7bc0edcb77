package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

// PromptsConfig contains all prompt configurations loaded from YAML
type PromptsConfig struct {
	Extraction ExtractionPrompts `yaml:"extraction"`
}

// ExtractionPrompts contains the extraction model prompts
type ExtractionPrompts struct {
	// Candidates has {{now}}, {{weekday}}, {{year}} and {{corpus}} placeholders
	Candidates string `yaml:"candidates"`
	// Request has {{now}}, {{weekday}}, {{intent}} and {{text}} placeholders
	Request string `yaml:"request"`
}

// LoadPromptsConfig loads prompts configuration from YAML file
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/schedule-bridge/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		if b, err := os.ReadFile(p); err == nil {
			data, loadedPath = b, p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No prompts.yaml found, using defaults")
		return DefaultPromptsConfig(), nil
	}

	fmt.Printf("[Config] Loading prompts from: %s\n", loadedPath)

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse prompts.yaml: %w", err)
	}

	config.fillDefaults()
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig()

	if c.Extraction.Candidates == "" {
		c.Extraction.Candidates = defaults.Extraction.Candidates
	}
	if c.Extraction.Request == "" {
		c.Extraction.Request = defaults.Extraction.Request
	}
}

// ToExtractionPrompts converts to the usecase prompt set
func (c *PromptsConfig) ToExtractionPrompts() usecase.ExtractionPrompts {
	return usecase.ExtractionPrompts{
		Extract: c.Extraction.Candidates,
		Request: c.Extraction.Request,
	}
}

// DefaultPromptsConfig returns the default prompts configuration
func DefaultPromptsConfig() *PromptsConfig {
	return &PromptsConfig{
		Extraction: ExtractionPrompts{
			Candidates: usecase.DefaultExtractionPrompts.Extract,
			Request:    usecase.DefaultExtractionPrompts.Request,
		},
	}
}
