// Package config holds the YAML configuration surface of the coupled
// solver and the periodicity analysis. Settings carry their defaults
// through unmarshalling, so absent keys never alias meaningful zero
// values (a Newmark beta of 0 selects explicit integration and must be
// distinguishable from "not set").
package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// LinearSolverSettings selects the linear solver used for the interface
// condensation solve. An empty SolverType means "fastest available
// direct solver".
type LinearSolverSettings struct {
	SolverType string `yaml:"solver_type"`
}

// MapperSettings configures the interface correspondence operator.
type MapperSettings struct {
	MapperType                       string `yaml:"mapper_type"`
	OriginInterfaceSubModelPart      string `yaml:"origin_interface_sub_model_part"`
	DestinationInterfaceSubModelPart string `yaml:"destination_interface_sub_model_part"`
}

// CouplingSettings configures the subcycled dual-domain coupler.
type CouplingSettings struct {
	OriginNewmarkBeta       float64 `yaml:"origin_newmark_beta"`
	OriginNewmarkGamma      float64 `yaml:"origin_newmark_gamma"`
	DestinationNewmarkBeta  float64 `yaml:"destination_newmark_beta"`
	DestinationNewmarkGamma float64 `yaml:"destination_newmark_gamma"`

	// TimestepRatio is read as a float for configuration-file
	// compatibility but must hold an exact positive integer.
	TimestepRatio float64 `yaml:"timestep_ratio"`

	EquilibriumVariable string               `yaml:"equilibrium_variable"`
	IsDisableCoupling   bool                 `yaml:"is_disable_coupling"`
	IsLinear            bool                 `yaml:"is_linear"`
	LinearSolver        LinearSolverSettings `yaml:"linear_solver_settings"`
	Mapper              MapperSettings       `yaml:"mapper_settings"`
}

// DefaultCouplingSettings returns the settings with every key at its
// default. Newmark parameters default to -1 (unset).
func DefaultCouplingSettings() CouplingSettings {
	return CouplingSettings{
		OriginNewmarkBeta:       -1.0,
		OriginNewmarkGamma:      -1.0,
		DestinationNewmarkBeta:  -1.0,
		DestinationNewmarkGamma: -1.0,
		TimestepRatio:           1.0,
		EquilibriumVariable:     "VELOCITY",
	}
}

// UnmarshalYAML decodes over the defaults.
func (s *CouplingSettings) UnmarshalYAML(value *yaml.Node) error {
	type raw CouplingSettings
	def := raw(DefaultCouplingSettings())
	if err := value.Decode(&def); err != nil {
		return err
	}
	*s = CouplingSettings(def)
	return nil
}

// TimestepRatioInt converts the configured ratio, rejecting fractional
// or non-positive values.
func (s CouplingSettings) TimestepRatioInt() (int, error) {
	if s.TimestepRatio <= 0 || s.TimestepRatio != math.Trunc(s.TimestepRatio) {
		return 0, fmt.Errorf("an integer timestep_ratio must be specified, got %v", s.TimestepRatio)
	}
	return int(s.TimestepRatio), nil
}

// Validate checks the settings eagerly; configuration errors are fatal
// and never retried.
func (s CouplingSettings) Validate() error {
	if _, err := s.TimestepRatioInt(); err != nil {
		return err
	}
	check := func(name string, v float64) error {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%q has invalid value %v, it must be between 0 and 1", name, v)
		}
		return nil
	}
	if err := check("origin_newmark_beta", s.OriginNewmarkBeta); err != nil {
		return err
	}
	if err := check("origin_newmark_gamma", s.OriginNewmarkGamma); err != nil {
		return err
	}
	if err := check("destination_newmark_beta", s.DestinationNewmarkBeta); err != nil {
		return err
	}
	if err := check("destination_newmark_gamma", s.DestinationNewmarkGamma); err != nil {
		return err
	}
	switch s.EquilibriumVariable {
	case "DISPLACEMENT", "VELOCITY", "ACCELERATION":
	default:
		return fmt.Errorf("equilibrium_variable must be DISPLACEMENT, VELOCITY or ACCELERATION, got %q", s.EquilibriumVariable)
	}
	return nil
}

// RVESettings configures the periodicity analysis.
type RVESettings struct {
	BoundaryModelPartName  string `yaml:"boundary_mp_name"`
	AveragingModelPartName string `yaml:"averaging_mp_name"`
	PrintRVEPost           bool   `yaml:"print_rve_post"`
	DomainSize             int    `yaml:"domain_size"`

	JumpXX float64 `yaml:"jump_XX"`
	JumpYY float64 `yaml:"jump_YY"`
	JumpZZ float64 `yaml:"jump_ZZ"`
	JumpXY float64 `yaml:"jump_XY"`
	JumpXZ float64 `yaml:"jump_XZ"`
	JumpYZ float64 `yaml:"jump_YZ"`
}

// Jumps returns the strain-jump components keyed by unordered axis pair.
func (s RVESettings) Jumps() map[string]float64 {
	return map[string]float64{
		"00": s.JumpXX, "11": s.JumpYY, "22": s.JumpZZ,
		"01": s.JumpXY, "02": s.JumpXZ, "12": s.JumpYZ,
	}
}

// Validate checks the settings eagerly.
func (s RVESettings) Validate() error {
	if s.DomainSize != 2 && s.DomainSize != 3 {
		return fmt.Errorf("wrong domain_size value %d, expected 2 or 3", s.DomainSize)
	}
	if s.BoundaryModelPartName == "" {
		return fmt.Errorf("boundary_mp_name must be specified")
	}
	if s.AveragingModelPartName == "" {
		return fmt.Errorf("averaging_mp_name must be specified")
	}
	return nil
}

// Case is one analysis configuration file.
type Case struct {
	Coupling *CouplingSettings `yaml:"coupling_settings"`
	RVE      *RVESettings      `yaml:"rve_settings"`
}

// Parse decodes a case from YAML.
func Parse(data []byte) (*Case, error) {
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing case file: %w", err)
	}
	return &c, nil
}

// Load reads and decodes a case file.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading case file: %w", err)
	}
	return Parse(data)
}
