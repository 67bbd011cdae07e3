package plans

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultCatalog []byte

// Catalog is an immutable, validated set of plans plus the alias index used to
// translate billing-side plan names into canonical ids.
type Catalog struct {
	plans   map[ID]Plan
	order   []ID
	aliases map[string]ID
}

type catalogFile struct {
	Plans []Plan `yaml:"plans"`
}

// Default returns the built-in catalog. It panics if the embedded file is
// invalid, which only a broken build can cause.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("plans: embedded catalog: %v", err))
	}
	return c
}

// LoadFile reads and validates a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToReadCatalog, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	return New(f.Plans...)
}

// New validates plans and builds the alias index. Every catalog must define
// free, pro and premium; free must be finite; an alias may name only one plan.
// A plan's own id always resolves to itself.
func New(list ...Plan) (*Catalog, error) {
	c := &Catalog{
		plans:   make(map[ID]Plan, len(list)),
		aliases: make(map[string]ID),
	}

	for _, p := range list {
		if p.ID == "" {
			return nil, errors.Join(ErrInvalidCatalog, errors.New("plan without id"))
		}
		if _, dup := c.plans[p.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicatePlan, p.ID)
		}
		if p.AppLimit < 0 && int64(p.AppLimit) != Unlimited {
			return nil, fmt.Errorf("%w: %s has %d", ErrInvalidLimit, p.ID, p.AppLimit)
		}
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)

		for _, alias := range append([]string{string(p.ID)}, p.Aliases...) {
			if owner, ok := c.aliases[alias]; ok && owner != p.ID {
				return nil, fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateAlias, alias, owner, p.ID)
			}
			c.aliases[alias] = p.ID
		}
	}

	for _, required := range []ID{Free, Pro, Premium} {
		if _, ok := c.plans[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingPlan, required)
		}
	}
	if c.plans[Free].IsUnlimited() {
		return nil, fmt.Errorf("%w: free plan must be limited", ErrInvalidLimit)
	}

	return c, nil
}

// Get returns the plan with the given id.
func (c *Catalog) Get(id ID) (Plan, error) {
	p, ok := c.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return p, nil
}

// Resolve maps a billing-side name to its canonical plan id.
func (c *Catalog) Resolve(alias string) (ID, bool) {
	id, ok := c.aliases[alias]
	return id, ok
}

// Aliases returns every name that resolves to id, the id itself first.
func (c *Catalog) Aliases(id ID) []string {
	p, ok := c.plans[id]
	if !ok {
		return nil
	}
	out := []string{string(id)}
	for _, a := range p.Aliases {
		if a != string(id) && !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// List returns plans in catalog order.
func (c *Catalog) List() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}
