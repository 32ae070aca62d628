package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vsinha/prodplan/pkg/domain/entities"
)

// MachineSpec is one machine entry of the policy file
type MachineSpec struct {
	ID            string   `yaml:"id" validate:"required"`
	DailyCapacity float64  `yaml:"daily_capacity" validate:"gt=0"`
	Eligible      []string `yaml:"eligible"`
}

// PolicyFile is the YAML layout: planning policy fields at the top level plus an
// optional machine table
type PolicyFile struct {
	Policy   entities.PlanningPolicy `yaml:",inline"`
	Machines []MachineSpec           `yaml:"machines"`
}

var (
	specValidator     *validator.Validate
	specValidatorOnce sync.Once
)

// LoadPolicy reads a policy file. An empty path yields the defaults and no machines.
func LoadPolicy(path string) (*PolicyFile, error) {
	if path == "" {
		return &PolicyFile{Policy: entities.DefaultPolicy()}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	file, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return file, nil
}

// ParsePolicy decodes YAML over the default policy and validates the result
func ParsePolicy(data []byte) (*PolicyFile, error) {
	file := &PolicyFile{Policy: entities.DefaultPolicy()}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	specValidatorOnce.Do(func() {
		specValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	for i, spec := range file.Machines {
		if err := specValidator.Struct(spec); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				msgs := make([]string, 0, len(verrs))
				for _, fe := range verrs {
					msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
				}
				return nil, fmt.Errorf("invalid machine %d: %s", i+1, strings.Join(msgs, "; "))
			}
			return nil, err
		}
	}
	if err := file.Policy.Validate(); err != nil {
		return nil, err
	}
	return file, nil
}

// MachineTable converts the machine entries into entities
func (f *PolicyFile) MachineTable() ([]entities.Machine, error) {
	machines := make([]entities.Machine, 0, len(f.Machines))
	seen := make(map[string]struct{}, len(f.Machines))
	for _, spec := range f.Machines {
		id := strings.TrimSpace(spec.ID)
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate machine id: %s", id)
		}
		seen[id] = struct{}{}

		eligible := make([]entities.ProductCode, len(spec.Eligible))
		for i, code := range spec.Eligible {
			eligible[i] = entities.ProductCode(strings.TrimSpace(code))
		}
		m, err := entities.NewMachine(entities.MachineID(id), decimal.NewFromFloat(spec.DailyCapacity), eligible)
		if err != nil {
			return nil, fmt.Errorf("invalid machine %s: %w", id, err)
		}
		machines = append(machines, *m)
	}
	return machines, nil
}
