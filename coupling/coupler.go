package coupling

import (
	"fmt"

	"go.uber.org/zap"

	"fetikit/config"
	"fetikit/linsolve"
)

// Config wires a Coupler. Origin is domain 0, Destination domain 1; the
// destination may be subcycled relative to the origin by the configured
// timestep ratio.
type Config struct {
	Settings      config.CouplingSettings
	Origin        SolverWrapper
	Destination   SolverWrapper
	MapperFactory MapperFactory
	NewUtility    UtilityFactory

	// OutputWriters are kept synchronized with the solution steps. When
	// exactly two are present, the second one follows the destination's
	// substeps.
	OutputWriters []OutputWriter

	Logger *zap.Logger
}

// Coupler advances two solver domains with different time-step sizes,
// exchanges effective stiffness information after each solve and invokes
// the coupling utility's equilibration once per destination substep.
//
// Execution is single-threaded and strictly ordered: the origin always
// solves before any destination substep, and within the substep loop
// solve, stiffness submission and equilibration form a fixed sequence.
type Coupler struct {
	settings config.CouplingSettings
	log      *zap.Logger

	wrappers      [2]SolverWrapper
	mapperFactory MapperFactory
	newUtility    UtilityFactory
	writers       []OutputWriter

	timestepRatio int
	isImplicit    [2]bool
	strategies    [2]SolverStrategy

	mapper      Mapper
	utility     CouplingUtility
	time        float64
	solverBTime float64
	initialized bool
}

// NewCoupler validates the configuration and resolves each implicit
// domain's stiffness provider up front, so an unsupported wrapper fails
// at wiring time rather than at first use.
func NewCoupler(c Config) (*Coupler, error) {
	ratio, err := c.Settings.TimestepRatioInt()
	if err != nil {
		return nil, err
	}
	if c.Origin == nil || c.Destination == nil {
		return nil, fmt.Errorf("both origin and destination solver wrappers must be set")
	}
	if c.MapperFactory == nil {
		return nil, fmt.Errorf("a mapper factory must be set")
	}
	if c.NewUtility == nil {
		return nil, fmt.Errorf("a coupling utility factory must be set")
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	cp := &Coupler{
		settings:      c.Settings,
		log:           c.Logger,
		wrappers:      [2]SolverWrapper{c.Origin, c.Destination},
		mapperFactory: c.MapperFactory,
		newUtility:    c.NewUtility,
		writers:       c.OutputWriters,
		timestepRatio: ratio,
	}

	// Newmark beta of zero marks an explicitly integrated domain.
	cp.isImplicit[0] = c.Settings.OriginNewmarkBeta != 0.0
	cp.isImplicit[1] = c.Settings.DestinationNewmarkBeta != 0.0

	for idx := 0; idx < 2; idx++ {
		if !cp.isImplicit[idx] {
			continue
		}
		strategy, err := cp.wrappers[idx].Strategy()
		if err != nil {
			return nil, fmt.Errorf("resolving stiffness provider for domain %d: %w", idx, err)
		}
		cp.strategies[idx] = strategy
	}
	return cp, nil
}

// Time returns the coupler's current time.
func (c *Coupler) Time() float64 { return c.time }

// AdvanceInTime advances the destination first, then the origin. Not all
// solvers track time (steady or externally driven ones return 0); the
// coupler adopts the origin's time when it is non-zero and 0 otherwise.
// Mismatched non-zero times are not validated, only logged.
func (c *Coupler) AdvanceInTime(currentTime float64) float64 {
	c.time = 0.0
	c.solverBTime = c.wrappers[1].AdvanceInTime(currentTime)
	solverTime := c.wrappers[0].AdvanceInTime(currentTime)
	if solverTime != 0.0 && c.time == 0.0 {
		c.time = solverTime
	}
	c.log.Debug("advanced coupled time",
		zap.Float64("origin_time", solverTime),
		zap.Float64("destination_time", c.solverBTime))
	return c.time
}

// InitializeSolutionStep initializes both domains for the next coupled
// step. The first call additionally performs the one-time coupling
// setup.
func (c *Coupler) InitializeSolutionStep() error {
	for idx, w := range c.wrappers {
		if err := w.InitializeSolutionStep(); err != nil {
			return fmt.Errorf("initializing solution step of domain %d: %w", idx, err)
		}
	}
	if !c.initialized {
		if err := c.initializeCoupling(); err != nil {
			return err
		}
	}
	return nil
}

// initializeCoupling performs the one-time setup: build the mapper,
// construct the coupling utility, bind the correspondence operator and
// snapshot the origin's initial kinematics. Runs exactly once per
// analysis.
func (c *Coupler) initializeCoupling() error {
	ms := c.settings.Mapper

	originInterface, err := c.wrappers[0].ModelPart(ms.OriginInterfaceSubModelPart)
	if err != nil {
		return fmt.Errorf("locating origin interface: %w", err)
	}
	destinationInterface, err := c.wrappers[1].ModelPart(ms.DestinationInterfaceSubModelPart)
	if err != nil {
		return fmt.Errorf("locating destination interface: %w", err)
	}

	c.mapper, err = c.mapperFactory.CreateMapper(originInterface, destinationInterface, ms)
	if err != nil {
		return fmt.Errorf("creating mapper: %w", err)
	}

	c.utility, err = c.newUtility(
		c.mapper.InterfaceModelPartOrigin(),
		c.mapper.InterfaceModelPartDestination(),
		c.settings)
	if err != nil {
		return fmt.Errorf("creating coupling utility: %w", err)
	}

	// The mapper-space interfaces submitted above both live on the
	// origin side; submit the original interface parts to give the
	// utility access to the full origin and destination domains.
	if err := c.utility.SetOriginAndDestinationDomains(originInterface, destinationInterface); err != nil {
		return err
	}

	solver, err := linsolve.FromSettings(c.settings.LinearSolver, c.log)
	if err != nil {
		return err
	}
	c.utility.SetLinearSolver(solver)

	if ms.MapperType != "coupling_geometry" {
		return fmt.Errorf("dynamic coupled solver is only compatible with the coupling_geometry mapper, got %q", ms.MapperType)
	}
	if err := c.utility.SetMappingMatrix(c.mapper.MappingMatrix()); err != nil {
		return err
	}

	if err := c.utility.SetOriginInitialKinematics(); err != nil {
		return err
	}

	c.initialized = true
	c.log.Info("coupling initialized",
		zap.Int("timestep_ratio", c.timestepRatio),
		zap.Bool("origin_implicit", c.isImplicit[0]),
		zap.Bool("destination_implicit", c.isImplicit[1]))
	return nil
}

// SolveSolutionStep solves the origin for the outer time step, then runs
// the destination's substep loop. Equilibration is invoked once per
// destination substep, after that substep's solve and stiffness
// submission, so the coupling condition is enforced at the finer time
// scale. Finalizing the origin step and the last destination substep is
// the caller's responsibility.
func (c *Coupler) SolveSolutionStep() (bool, error) {
	if !c.initialized {
		return false, fmt.Errorf("coupler is not initialized, call InitializeSolutionStep first")
	}

	ok, err := c.wrappers[0].SolveSolutionStep()
	if err != nil {
		return false, fmt.Errorf("solving origin domain: %w", err)
	}
	if err := c.submitStiffness(0); err != nil {
		return false, err
	}

	solverB := c.wrappers[1]
	for sub := 1; sub <= c.timestepRatio; sub++ {
		if sub > 1 {
			c.solverBTime = solverB.AdvanceInTime(c.solverBTime)
			if err := solverB.InitializeSolutionStep(); err != nil {
				return false, fmt.Errorf("initializing destination substep %d: %w", sub, err)
			}
			if w := c.substepWriter(); w != nil {
				if err := w.InitializeSolutionStep(); err != nil {
					return false, err
				}
			}
			if err := solverB.Predict(); err != nil {
				return false, fmt.Errorf("predicting destination substep %d: %w", sub, err)
			}
		}

		subOK, err := solverB.SolveSolutionStep()
		if err != nil {
			return false, fmt.Errorf("solving destination substep %d: %w", sub, err)
		}
		ok = ok && subOK

		if err := c.submitStiffness(1); err != nil {
			return false, err
		}
		if err := c.utility.EquilibrateDomains(); err != nil {
			return false, fmt.Errorf("equilibrating domains at substep %d: %w", sub, err)
		}

		if sub != c.timestepRatio {
			if err := solverB.FinalizeSolutionStep(); err != nil {
				return false, fmt.Errorf("finalizing destination substep %d: %w", sub, err)
			}
			if w := c.substepWriter(); w != nil {
				if err := w.FinalizeSolutionStep(); err != nil {
					return false, err
				}
				if err := w.OutputSolutionStep(); err != nil {
					return false, err
				}
			}
			if err := solverB.OutputSolutionStep(); err != nil {
				return false, fmt.Errorf("writing destination substep %d output: %w", sub, err)
			}
		}
	}
	return ok, nil
}

// FinalizeSolutionStep finalizes both domains' current solution steps.
func (c *Coupler) FinalizeSolutionStep() error {
	for idx, w := range c.wrappers {
		if err := w.FinalizeSolutionStep(); err != nil {
			return fmt.Errorf("finalizing solution step of domain %d: %w", idx, err)
		}
	}
	return nil
}

// submitStiffness feeds a domain's effective stiffness to the coupling
// utility: the system matrix for implicit domains, an explicit-mode
// signal otherwise. The record is consumed by the following
// equilibration and not retained.
func (c *Coupler) submitStiffness(idx int) error {
	if c.isImplicit[idx] {
		k := c.strategies[idx].SystemMatrix()
		if err := c.utility.SetEffectiveStiffnessMatrixImplicit(k, idx); err != nil {
			return fmt.Errorf("submitting stiffness of domain %d: %w", idx, err)
		}
		return nil
	}
	c.utility.SetEffectiveStiffnessMatrixExplicit(idx)
	return nil
}

// substepWriter returns the output writer tracking destination substeps,
// if one is configured.
func (c *Coupler) substepWriter() OutputWriter {
	if len(c.writers) == 2 {
		return c.writers[1]
	}
	return nil
}
