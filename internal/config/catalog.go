package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kalani-ai/kalani/pkg/models"
)

// workersFile is the on-disk shape of the worker catalog file.
type workersFile struct {
	Workers []models.WorkerDefinition `yaml:"workers"`
}

// rulesFile is the on-disk shape of the routing rule file.
type rulesFile struct {
	Rules []models.RoutingRule `yaml:"rules"`
}

// LoadWorkers parses worker definitions from a YAML file. Structural
// validation (duplicate ids, malformed capability sets) happens in the
// catalog; this only translates the file into the internal model.
func LoadWorkers(path string) ([]models.WorkerDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workers file: %w", err)
	}

	var f workersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &models.ConfigurationError{Source: path, Reason: err.Error()}
	}
	if len(f.Workers) == 0 {
		return nil, &models.ConfigurationError{Source: path, Reason: "no workers defined"}
	}
	return f.Workers, nil
}

// LoadRules parses routing rules from a YAML file. The order in the
// file is preserved; it decides ties between equal-priority rules.
func LoadRules(path string) ([]models.RoutingRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &models.ConfigurationError{Source: path, Reason: err.Error()}
	}
	return f.Rules, nil
}
