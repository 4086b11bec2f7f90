package valueobject

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kitchenledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Common unit codes. Codes are lower case after normalisation.
const (
	UnitKG  = "kg"
	UnitG   = "g"
	UnitL   = "l"
	UnitML  = "ml"
	UnitPCS = "pcs"
)

var unitAliases = map[string]string{
	"kilogram":   UnitKG,
	"kilograms":  UnitKG,
	"kgs":        UnitKG,
	"gr":         UnitG,
	"gram":       UnitG,
	"grams":      UnitG,
	"liter":      UnitL,
	"litre":      UnitL,
	"liters":     UnitL,
	"milliliter": UnitML,
	"millilitre": UnitML,
	"pc":         UnitPCS,
	"piece":      UnitPCS,
	"pieces":     UnitPCS,
}

// NormalizeUnit trims and lower-cases a unit code and resolves known aliases.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := unitAliases[u]; ok {
		return canonical
	}
	return u
}

type unitPair struct {
	from string
	to   string
}

// UnitRegistry holds explicit conversion factors keyed by (from, to).
// A quantity q in unit "from" equals q*factor in unit "to".
// Equal units always convert with factor 1; any other pair that was
// not registered is an error rather than a silent identity.
type UnitRegistry struct {
	mu      sync.RWMutex
	factors map[unitPair]decimal.Decimal
}

// NewUnitRegistry creates an empty registry
func NewUnitRegistry() *UnitRegistry {
	return &UnitRegistry{factors: make(map[unitPair]decimal.Decimal)}
}

// DefaultUnitRegistry returns a registry with mass and volume conversions
// used by kitchen recipes.
func DefaultUnitRegistry() *UnitRegistry {
	r := NewUnitRegistry()
	_ = r.Register(UnitKG, UnitG, decimal.NewFromInt(1000))
	_ = r.Register(UnitL, UnitML, decimal.NewFromInt(1000))
	return r
}

// Register adds a conversion and its inverse.
func (r *UnitRegistry) Register(from, to string, factor decimal.Decimal) error {
	from, to = NormalizeUnit(from), NormalizeUnit(to)
	if from == "" || to == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "unit code cannot be empty")
	}
	if from == to {
		return shared.NewDomainError(shared.CodeInvalidInput, "cannot register a conversion from a unit to itself")
	}
	if !factor.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidInput, "conversion factor must be positive")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factors[unitPair{from, to}] = factor
	r.factors[unitPair{to, from}] = decimal.NewFromInt(1).Div(factor)
	return nil
}

// Factor returns the multiplier converting quantities from one unit to another.
func (r *UnitRegistry) Factor(from, to string) (decimal.Decimal, error) {
	from, to = NormalizeUnit(from), NormalizeUnit(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	r.mu.RLock()
	factor, ok := r.factors[unitPair{from, to}]
	r.mu.RUnlock()
	if !ok {
		return decimal.Zero, shared.NewDomainError(
			shared.CodeUnitConversionUnknown,
			fmt.Sprintf("no conversion from %q to %q", from, to),
		)
	}
	return factor, nil
}

// Convert converts quantity between units.
func (r *UnitRegistry) Convert(quantity decimal.Decimal, from, to string) (decimal.Decimal, error) {
	factor, err := r.Factor(from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return quantity.Mul(factor), nil
}

// CanConvert reports whether a conversion between the units is known
func (r *UnitRegistry) CanConvert(from, to string) bool {
	_, err := r.Factor(from, to)
	return err == nil
}
