// Package award decides which usage milestones to celebrate.
package award

import (
	_ "embed"
	"fmt"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var bundled []byte

// Criterion is what a definition's threshold is compared against.
type Criterion string

// CriterionRecordsCreated compares against the usage counter.
const CriterionRecordsCreated Criterion = "records_created"

// Definition is a static milestone. ID doubles as the display name.
type Definition struct {
	ID          string    `yaml:"id" json:"id"`
	Description string    `yaml:"description" json:"description"`
	Icon        string    `yaml:"icon" json:"icon"`
	Color       string    `yaml:"color" json:"color"`
	Criterion   Criterion `yaml:"criterion" json:"criterion"`
	Threshold   int64     `yaml:"threshold" json:"threshold"`
}

// Validate validates a single definition.
func (d *Definition) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.ID, validation.Required),
		validation.Field(&d.Criterion, validation.Required, validation.In(CriterionRecordsCreated)),
		validation.Field(&d.Threshold, validation.Required, validation.Min(int64(1))),
	)
}

// Catalog is the ordered list of award definitions.
type Catalog struct {
	Definitions []Definition `yaml:"awards"`
}

// Validate checks every definition, id uniqueness and strictly ascending
// thresholds.
func (c *Catalog) Validate() error {
	if len(c.Definitions) == 0 {
		return fmt.Errorf("award: catalog is empty")
	}
	ids := make(map[string]struct{}, len(c.Definitions))
	for i := range c.Definitions {
		d := &c.Definitions[i]
		if err := d.Validate(); err != nil {
			return fmt.Errorf("award: definition %d (%q): %w", i, d.ID, err)
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("award: duplicate id %q", d.ID)
		}
		ids[d.ID] = struct{}{}
		if i > 0 && d.Threshold <= c.Definitions[i-1].Threshold {
			return fmt.Errorf("award: %q threshold %d is not above %d", d.ID, d.Threshold, c.Definitions[i-1].Threshold)
		}
	}
	return nil
}

// Lookup returns the definition with the given id.
func (c *Catalog) Lookup(id string) (Definition, bool) {
	for _, d := range c.Definitions {
		if d.ID == id {
			return d, true
		}
	}
	return Definition{}, false
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("award: parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadCatalog loads the catalog at path, or the bundled one when path is
// empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(bundled)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("award: read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// MustLoadCatalog is LoadCatalog that panics. A broken catalog is a build
// defect, not a runtime condition.
func MustLoadCatalog(path string) *Catalog {
	c, err := LoadCatalog(path)
	if err != nil {
		panic(fmt.Sprintf("failed to load award catalog: %v", err))
	}
	return c
}
