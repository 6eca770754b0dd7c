// Package plans holds the subscription plan catalog and the per-plan resource limits.
package plans

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultCatalog []byte

// Resource names a plan-limited resource.
type Resource string

const (
	ResourceUsers    Resource = "users"
	ResourceProducts Resource = "products"
	ResourceTables   Resource = "tables"
	ResourceInvoices Resource = "invoices_per_month"
)

var ErrUnknownPlan = errors.New("unknown plan")

// Limits caps the resources of a tenant. Zero means unlimited.
type Limits struct {
	DisplayName         string `yaml:"display_name" json:"display_name"`
	MaxUsers            int    `yaml:"max_users" json:"max_users"`
	MaxProducts         int    `yaml:"max_products" json:"max_products"`
	MaxTables           int    `yaml:"max_tables" json:"max_tables"`
	MaxInvoicesPerMonth int    `yaml:"max_invoices_per_month" json:"max_invoices_per_month"`
}

// Max returns the cap for resource.
func (l Limits) Max(resource Resource) int {
	switch resource {
	case ResourceUsers:
		return l.MaxUsers
	case ResourceProducts:
		return l.MaxProducts
	case ResourceTables:
		return l.MaxTables
	case ResourceInvoices:
		return l.MaxInvoicesPerMonth
	}
	return 0
}

// Allows reports whether one more resource can be created when current already exist.
func (l Limits) Allows(resource Resource, current int) bool {
	max := l.Max(resource)
	return max == 0 || current < max
}

// Catalog is the set of plans a tenant can be on.
type Catalog struct {
	Default string            `yaml:"default"`
	Plans   map[string]Limits `yaml:"plans"`
}

// Get returns the limits of plan name.
func (c *Catalog) Get(name string) (Limits, error) {
	limits, ok := c.Plans[name]
	if !ok {
		return Limits{}, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
	}
	return limits, nil
}

// Has reports whether name is a known plan.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Plans[name]
	return ok
}

// Names lists the plan names in alphabetical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Plans))
	for name := range c.Plans {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	if len(c.Plans) == 0 {
		return nil, errors.New("plan catalog defines no plans")
	}
	for name, l := range c.Plans {
		if l.MaxUsers < 0 || l.MaxProducts < 0 || l.MaxTables < 0 || l.MaxInvoicesPerMonth < 0 {
			return nil, fmt.Errorf("plan %q has a negative limit", name)
		}
	}
	if c.Default == "" {
		c.Default = c.Names()[0]
	}
	if !c.Has(c.Default) {
		return nil, fmt.Errorf("%w: default plan %q", ErrUnknownPlan, c.Default)
	}
	return &c, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the catalog from path, or returns the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog %s: %w", path, err)
	}
	return Parse(data)
}
