// Package config provides configuration loading for entity schemas.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pulsecrm/pulse/pkg/models"
)

// EntityConfigFile represents the structure of the entities.yaml file.
type EntityConfigFile struct {
	Entities []EntitySchemaFile `yaml:"entities"`
}

// EntitySchemaFile represents one entity type in the YAML file. A type
// matching a built-in entity extends it with additional fields; an unknown
// type is registered as a new custom entity.
type EntitySchemaFile struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// LoadEntityConfig reads the YAML file and applies its entity schemas to
// the registry.
func LoadEntityConfig(filepath string, registry *models.EntityRegistry) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read entity config file %s: %w", filepath, err)
	}

	var file EntityConfigFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse entity config file %s: %w", filepath, err)
	}

	return ApplyEntityConfig(file, registry)
}

// ApplyEntityConfig registers every entity from the config, merging fields
// into already-registered schemas.
func ApplyEntityConfig(file EntityConfigFile, registry *models.EntityRegistry) error {
	for _, entry := range file.Entities {
		if entry.Name == "" {
			return fmt.Errorf("entity config entry is missing a name: %w", models.ErrConfiguration)
		}

		if len(entry.Fields) == 0 {
			return fmt.Errorf("entity %q declares no fields: %w", entry.Name, models.ErrConfiguration)
		}

		fields := make(map[string]struct{}, len(entry.Fields))

		if existing, err := registry.Schema(entry.Name); err == nil {
			for name := range existing.Fields {
				fields[name] = struct{}{}
			}
		}

		for _, name := range entry.Fields {
			if name == "" {
				return fmt.Errorf("entity %q declares an empty field name: %w", entry.Name, models.ErrConfiguration)
			}

			fields[name] = struct{}{}
		}

		registry.Register(&models.EntitySchema{
			Name:   entry.Name,
			Fields: fields,
		})
	}

	return nil
}
