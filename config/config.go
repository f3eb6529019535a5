// Package config defines the structures to configure a filter pipeline run.
package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/imagefilter/logging"
)

// Config describes a complete run: where the image comes from, where the result goes, how
// windowed steps are split across bands, and the steps themselves.
type Config struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	Bands    int    `json:"bands,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
	Pipeline []Step `json:"pipeline"`

	ConfigFilePath string `json:"-"`
}

// Step is a single named filter and its attributes.
type Step struct {
	Type       string       `json:"type"`
	Attributes AttributeMap `json:"attributes,omitempty"`
}

// AttributeMap holds the loosely typed attributes of a step as read from JSON.
type AttributeMap map[string]interface{}

// Has reports whether name was given.
func (am AttributeMap) Has(name string) bool {
	_, has := am[name]
	return has
}

// DecodeAttributes decodes am into a new T using T's json tags. Unknown attributes are an error
// so typos in a config do not silently fall back to defaults.
func DecodeAttributes[T any](am AttributeMap) (*T, error) {
	var out T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(am)); err != nil {
		return nil, err
	}
	return &out, nil
}

// BandCount is the number of bands windowed steps are split into; an unset value means one.
func (c *Config) BandCount() int {
	if c.Bands <= 0 {
		return 1
	}
	return c.Bands
}

// Level returns the configured log level, defaulting to INFO.
func (c *Config) Level() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	return logging.LevelFromString(c.LogLevel)
}

// Validate ensures all parts of the config are valid. Step types are checked by the pipeline
// that builds them.
func (c *Config) Validate(path string) error {
	if c.Bands < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("bands must not be negative, got %d", c.Bands))
	}
	if c.Workers < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if _, err := c.Level(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if len(c.Pipeline) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "pipeline")
	}
	for idx, step := range c.Pipeline {
		if err := step.Validate(fmt.Sprintf("%s.pipeline.%d", path, idx)); err != nil {
			return err
		}
	}
	return nil
}

// Validate ensures the step names a type.
func (s *Step) Validate(path string) error {
	if s.Type == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "type")
	}
	return nil
}
