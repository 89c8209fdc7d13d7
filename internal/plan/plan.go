package plan

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_plan.yaml
var defaultPlanYAML []byte

// Exercise is one entry of a training day.
type Exercise struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	Description string `yaml:"description" json:"description"`
}

// Day is one day of the weekly plan. Days with SkipStats set (rest days) are
// shown but do not count towards weekly completion.
type Day struct {
	Name      string     `yaml:"name" json:"name" validate:"required"`
	Title     string     `yaml:"title" json:"title"`
	SkipStats bool       `yaml:"skip_stats" json:"skipStats"`
	Exercises []Exercise `yaml:"exercises" json:"exercises" validate:"dive"`
}

// Plan is the weekly training plan, Monday first.
type Plan struct {
	Days []Day `yaml:"days" json:"days" validate:"required,min=1,max=7,dive"`
}

// Default returns the built-in plan.
func Default() *Plan {
	p, err := Parse(defaultPlanYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in plan is invalid: %v", err))
	}
	return p
}

// Load reads a plan from a YAML file.
func Load(path string) (*Plan, error) {
	if path == "" {
		return nil, errors.New("plan file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a YAML plan. Unknown keys are rejected.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks field constraints and rejects duplicate day names.
func (p *Plan) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	seen := make(map[string]struct{}, len(p.Days))
	for _, d := range p.Days {
		key := strings.ToLower(strings.TrimSpace(d.Name))
		if _, dup := seen[key]; dup {
			return fmt.Errorf("invalid plan: duplicate day %q", d.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Exercises returns every exercise name in plan order, without duplicates.
func (p *Plan) Exercises() []string {
	var names []string
	seen := map[string]struct{}{}
	for _, d := range p.Days {
		for _, e := range d.Exercises {
			if _, ok := seen[e.Name]; ok {
				continue
			}
			seen[e.Name] = struct{}{}
			names = append(names, e.Name)
		}
	}
	return names
}
