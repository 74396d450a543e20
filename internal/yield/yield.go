// Package yield computes maximum buildable unit counts from zoning base
// codes and lot areas, including the SB-9 statutory override for
// single-family zones.
package yield

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealscout-cli/internal/zoning"
)

// Default computation bounds. The unit ceiling is a business-imposed limit
// reflecting practical development scale, not a zoning law.
const (
	DefaultSqftPerUnit = 5000.0
	DefaultMinUnits    = 1.0
	DefaultMaxUnits    = 20.0
)

// SB-9 lot-area thresholds (sqft) and the unit counts they grant on
// R1-family lots.
const (
	sb9FourplexLotSqft = 2400.0
	sb9TriplexLotSqft  = 1000.0

	sb9FourplexUnits = 4.0
	sb9TriplexUnits  = 3.0
	sb9DuplexUnits   = 2.0
)

// defaultTable maps base zone codes to required land area per dwelling unit
// (sqft/unit) for the City of Los Angeles.
var defaultTable = map[zoning.BaseCode]float64{
	"A1": 108900, "A2": 43560,
	"RE40": 40000, "RE20": 20000, "RE15": 15000, "RE11": 11000, "RE9": 9000,
	"RS": 7500,
	"R1": 5000, "R1V": 5000, "R1F": 5000, "R1R": 5000, "R1H": 5000,
	"RU": 3500, "RZ2.5": 2500, "RZ3": 3000, "RZ4": 4000,
	"RW1": 2300, "R2": 2500, "RW2": 2300,
	"RD1.5": 1500, "RD2": 2000, "RD3": 3000, "RD4": 4000, "RD5": 5000, "RD6": 6000,
	"RMP": 20000,
	"R3": 800, "RAS3": 800, "R4": 400, "RAS4": 400, "R5": 200,
	"C1": 800, "C1.5": 800, "C2": 400, "C4": 400, "C5": 400, "CM": 800, "CR": 400,
	"MR1": 400, "M1": 400, "MR2": 200, "M2": 200,
}

// Result is the outcome of one yield computation.
type Result struct {
	Base             zoning.BaseCode
	SqftPerUnit      float64
	MaxUnits         float64
	OverrideApplied  bool
	DensityDefaulted bool
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithDefaultDensity sets the sqft/unit fallback for unknown base codes.
func WithDefaultDensity(sqft float64) Option {
	return func(c *Calculator) { c.defaultDensity = sqft }
}

// WithUnitBounds sets the clamp range for the generic density computation.
func WithUnitBounds(min, max float64) Option {
	return func(c *Calculator) { c.minUnits, c.maxUnits = min, max }
}

// WithSB9 toggles the statutory single-family override.
func WithSB9(enabled bool) Option {
	return func(c *Calculator) { c.sb9 = enabled }
}

// WithTable replaces density table entries. Entries merge over the built-in
// table so a partial override only touches the codes it names.
func WithTable(table map[zoning.BaseCode]float64) Option {
	return func(c *Calculator) {
		for k, v := range table {
			c.table[k] = v
		}
	}
}

// Calculator computes buildable yield. It holds only read-only state and is
// safe for concurrent use.
type Calculator struct {
	table          map[zoning.BaseCode]float64
	defaultDensity float64
	minUnits       float64
	maxUnits       float64
	sb9            bool
}

// NewCalculator creates a Calculator with the built-in density table.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		table:          make(map[zoning.BaseCode]float64, len(defaultTable)),
		defaultDensity: DefaultSqftPerUnit,
		minUnits:       DefaultMinUnits,
		maxUnits:       DefaultMaxUnits,
		sb9:            true,
	}
	for k, v := range defaultTable {
		c.table[k] = v
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compute produces the yield for a base code and lot area. Unknown codes
// fall back to the default density and are flagged, never an error.
func (c *Calculator) Compute(base zoning.BaseCode, lotSqft float64) Result {
	sqftPerUnit, known := c.table[base]
	if !known {
		sqftPerUnit = c.defaultDensity
	}

	res := Result{
		Base:             base,
		SqftPerUnit:      sqftPerUnit,
		DensityDefaulted: !known,
	}

	// SB-9 replaces the density figure outright for R1-family lots; its
	// output is in range by construction, so it bypasses the clamp.
	if c.sb9 && base.IsR1Family() {
		res.MaxUnits = sb9Units(lotSqft)
		res.OverrideApplied = true
		return res
	}

	res.MaxUnits = clamp(lotSqft/sqftPerUnit, c.minUnits, c.maxUnits)
	return res
}

func sb9Units(lotSqft float64) float64 {
	switch {
	case lotSqft >= sb9FourplexLotSqft:
		return sb9FourplexUnits
	case lotSqft >= sb9TriplexLotSqft:
		return sb9TriplexUnits
	default:
		return sb9DuplexUnits
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LoadTable reads a density table override from a YAML file mapping base
// codes to sqft/unit values. Non-positive values are rejected.
func LoadTable(path string) (map[zoning.BaseCode]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "yield: read table %s", path)
	}

	var raw map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "yield: decode table %s", path)
	}

	table := make(map[zoning.BaseCode]float64, len(raw))
	for code, sqft := range raw {
		if sqft <= 0 {
			return nil, eris.Errorf("yield: table entry %s: sqft/unit must be > 0, got %v", code, sqft)
		}
		table[zoning.Normalize(code)] = sqft
	}
	return table, nil
}
