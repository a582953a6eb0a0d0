package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file. These correspond to the
// build-time constants of the classic coarse-graining codes; here they
// are a single immutable value read at startup and validated before
// anything runs.
type Parameters struct {
	Title string `yaml:"Title"`

	Cartesian           bool `yaml:"CARTESIAN"`
	PeriodicX           bool `yaml:"PERIODIC_X"`
	PeriodicY           bool `yaml:"PERIODIC_Y"`
	UniformLatGrid      bool `yaml:"UNIFORM_LAT_GRID"`
	UniformLonGrid      bool `yaml:"UNIFORM_LON_GRID"`
	FullLonSpan         bool `yaml:"FULL_LON_SPAN"`
	MinimalOutput       bool `yaml:"MINIMAL_OUTPUT"`
	NoFullOutputs       bool `yaml:"NO_FULL_OUTPUTS"`
	ApplyPostprocess    bool `yaml:"APPLY_POSTPROCESS"`
	DoOkuboWeiss        bool `yaml:"DO_OKUBOWEISS_ANALYSIS"`
	CompPiHelmholtz     bool `yaml:"COMP_PI_HELMHOLTZ"`
	ExtendDomainToPoles bool `yaml:"EXTEND_DOMAIN_TO_POLES"`

	DiffOrd   int     `yaml:"DiffOrd"`
	FillValue float64 `yaml:"fill_value"`
	Rho0      float64 `yaml:"rho0"`
	REarth    float64 `yaml:"R_earth"`

	KernelType string `yaml:"KernelType"`

	// FilterScales are the coarse-graining length scales in metres.
	FilterScales []float64 `yaml:"FilterScales"`
}

// NewDefault carries the conventional constants for global oceanic
// fields on a periodic 1-degree-style grid.
func NewDefault() *Parameters {
	return &Parameters{
		Title:          "oceansieve",
		PeriodicX:      true,
		UniformLatGrid: true,
		UniformLonGrid: true,
		FullLonSpan:    true,
		DiffOrd:        2,
		FillValue:      -32767.,
		Rho0:           1025.,
		REarth:         6371.e3,
		KernelType:     "tanh-ramp",
	}
}

func (ip *Parameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return err
	}
	return ip.Validate()
}

// Validate enforces the configuration invariants that the original
// codes checked with static assertions.
func (ip *Parameters) Validate() error {
	if ip.PeriodicY && !ip.UniformLatGrid {
		return fmt.Errorf("PERIODIC_Y requires UNIFORM_LAT_GRID")
	}
	if ip.NoFullOutputs && !ip.ApplyPostprocess {
		return fmt.Errorf("NO_FULL_OUTPUTS requires APPLY_POSTPROCESS, otherwise no outputs are produced")
	}
	if ip.NoFullOutputs && !ip.MinimalOutput {
		return fmt.Errorf("NO_FULL_OUTPUTS implies MINIMAL_OUTPUT")
	}
	if ip.Cartesian {
		return fmt.Errorf("CARTESIAN mode targets planar test boxes and is not supported by the spherical engine")
	}
	if ip.DiffOrd < 2 {
		return fmt.Errorf("DiffOrd must be at least 2, have %d", ip.DiffOrd)
	}
	for _, s := range ip.FilterScales {
		if s <= 0 {
			return fmt.Errorf("filter scales must be positive, have %g", s)
		}
	}
	return nil
}

func (ip *Parameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	fmt.Printf("[%d]\t\t\t\t= Differentiation order\n", ip.DiffOrd)
	fmt.Printf("%8.5g\t\t= rho0\n", ip.Rho0)
	fmt.Printf("%8.5g\t\t= R_earth\n", ip.REarth)
	fmt.Printf("%8.5g\t\t= fill_value\n", ip.FillValue)
	fmt.Printf("[%s]\t\t= Kernel\n", ip.KernelType)
	flags := map[string]bool{
		"PERIODIC_X":             ip.PeriodicX,
		"PERIODIC_Y":             ip.PeriodicY,
		"UNIFORM_LAT_GRID":       ip.UniformLatGrid,
		"UNIFORM_LON_GRID":       ip.UniformLonGrid,
		"FULL_LON_SPAN":          ip.FullLonSpan,
		"MINIMAL_OUTPUT":         ip.MinimalOutput,
		"NO_FULL_OUTPUTS":        ip.NoFullOutputs,
		"APPLY_POSTPROCESS":      ip.ApplyPostprocess,
		"DO_OKUBOWEISS_ANALYSIS": ip.DoOkuboWeiss,
		"COMP_PI_HELMHOLTZ":      ip.CompPiHelmholtz,
		"EXTEND_DOMAIN_TO_POLES": ip.ExtendDomainToPoles,
	}
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-24s = %v\n", k, flags[k])
	}
	fmt.Printf("FilterScales = %v\n", ip.FilterScales)
}
