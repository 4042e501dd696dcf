package coupling

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"fetikit/config"
	"fetikit/linsolve"
	"fetikit/mesh"
)

type fakeStrategy struct {
	k mat.Matrix
}

func (f *fakeStrategy) SystemMatrix() mat.Matrix { return f.k }

type fakeWrapper struct {
	calls       []string
	dt          float64
	time        float64
	parts       map[string]*mesh.ModelPart
	strategy    SolverStrategy
	strategyErr error
}

func (f *fakeWrapper) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeWrapper) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeWrapper) AdvanceInTime(t float64) float64 {
	f.record("advance")
	if f.dt == 0 {
		return 0
	}
	f.time = t + f.dt
	return f.time
}

func (f *fakeWrapper) InitializeSolutionStep() error { f.record("init"); return nil }
func (f *fakeWrapper) Predict() error                { f.record("predict"); return nil }
func (f *fakeWrapper) SolveSolutionStep() (bool, error) {
	f.record("solve")
	return true, nil
}
func (f *fakeWrapper) FinalizeSolutionStep() error { f.record("finalize"); return nil }
func (f *fakeWrapper) OutputSolutionStep() error   { f.record("output"); return nil }

func (f *fakeWrapper) ModelPart(name string) (*mesh.ModelPart, error) {
	mp, ok := f.parts[name]
	if !ok {
		return nil, fmt.Errorf("no model part %q", name)
	}
	return mp, nil
}

func (f *fakeWrapper) Strategy() (SolverStrategy, error) {
	if f.strategyErr != nil {
		return nil, f.strategyErr
	}
	return f.strategy, nil
}

type fakeMapper struct {
	origin, destination *mesh.ModelPart
	matrix              mat.Matrix
}

func (f *fakeMapper) InterfaceModelPartOrigin() *mesh.ModelPart      { return f.origin }
func (f *fakeMapper) InterfaceModelPartDestination() *mesh.ModelPart { return f.destination }
func (f *fakeMapper) MappingMatrix() mat.Matrix                      { return f.matrix }

type fakeMapperFactory struct {
	created int
}

func (f *fakeMapperFactory) CreateMapper(origin, destination *mesh.ModelPart, _ config.MapperSettings) (Mapper, error) {
	f.created++
	return &fakeMapper{origin: origin, destination: destination, matrix: mat.NewDense(1, 1, []float64{1})}, nil
}

type fakeUtility struct {
	calls []string
}

func (f *fakeUtility) record(call string) { f.calls = append(f.calls, call) }

func (f *fakeUtility) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeUtility) SetOriginAndDestinationDomains(_, _ *mesh.ModelPart) error {
	f.record("set_domains")
	return nil
}
func (f *fakeUtility) SetLinearSolver(linsolve.Solver) { f.record("set_solver") }
func (f *fakeUtility) SetMappingMatrix(mat.Matrix) error {
	f.record("set_mapping")
	return nil
}
func (f *fakeUtility) SetOriginInitialKinematics() error {
	f.record("set_initial_kinematics")
	return nil
}
func (f *fakeUtility) SetEffectiveStiffnessMatrixImplicit(_ mat.Matrix, idx int) error {
	f.record(fmt.Sprintf("submit_implicit_%d", idx))
	return nil
}
func (f *fakeUtility) SetEffectiveStiffnessMatrixExplicit(idx int) {
	f.record(fmt.Sprintf("submit_explicit_%d", idx))
}
func (f *fakeUtility) EquilibrateDomains() error {
	f.record("equilibrate")
	return nil
}

type fakeWriter struct {
	calls []string
}

func (f *fakeWriter) InitializeSolutionStep() error {
	f.calls = append(f.calls, "init")
	return nil
}
func (f *fakeWriter) FinalizeSolutionStep() error {
	f.calls = append(f.calls, "finalize")
	return nil
}
func (f *fakeWriter) OutputSolutionStep() error {
	f.calls = append(f.calls, "output")
	return nil
}

func testSettings(ratio float64) config.CouplingSettings {
	s := config.DefaultCouplingSettings()
	s.OriginNewmarkBeta = 0.25
	s.OriginNewmarkGamma = 0.5
	s.DestinationNewmarkBeta = 0.25
	s.DestinationNewmarkGamma = 0.5
	s.TimestepRatio = ratio
	s.Mapper = config.MapperSettings{
		MapperType:                       "coupling_geometry",
		OriginInterfaceSubModelPart:      "origin_interface",
		DestinationInterfaceSubModelPart: "destination_interface",
	}
	return s
}

func interfacePart(name string) *mesh.ModelPart {
	mp := mesh.NewModelPart(name)
	mp.AddNode(mesh.NewNode(1, 0, 0, 0))
	return mp
}

func newTestCoupler(t *testing.T, ratio float64) (*Coupler, *fakeWrapper, *fakeWrapper, *fakeUtility, []*fakeWriter) {
	t.Helper()
	origin := &fakeWrapper{
		dt:       0.3,
		parts:    map[string]*mesh.ModelPart{"origin_interface": interfacePart("origin_interface")},
		strategy: &fakeStrategy{k: mat.NewDense(1, 1, []float64{1})},
	}
	destination := &fakeWrapper{
		dt:       0.1,
		parts:    map[string]*mesh.ModelPart{"destination_interface": interfacePart("destination_interface")},
		strategy: &fakeStrategy{k: mat.NewDense(1, 1, []float64{1})},
	}
	utility := &fakeUtility{}
	writers := []*fakeWriter{{}, {}}

	cp, err := NewCoupler(Config{
		Settings:      testSettings(ratio),
		Origin:        origin,
		Destination:   destination,
		MapperFactory: &fakeMapperFactory{},
		NewUtility: func(_, _ *mesh.ModelPart, _ config.CouplingSettings) (CouplingUtility, error) {
			return utility, nil
		},
		OutputWriters: []OutputWriter{writers[0], writers[1]},
	})
	require.NoError(t, err)
	return cp, origin, destination, utility, writers
}

func TestFractionalTimestepRatioFailsConstruction(t *testing.T) {
	origin := &fakeWrapper{strategy: &fakeStrategy{}}
	destination := &fakeWrapper{strategy: &fakeStrategy{}}

	_, err := NewCoupler(Config{
		Settings:      testSettings(2.5),
		Origin:        origin,
		Destination:   destination,
		MapperFactory: &fakeMapperFactory{},
		NewUtility: func(_, _ *mesh.ModelPart, _ config.CouplingSettings) (CouplingUtility, error) {
			return &fakeUtility{}, nil
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "integer timestep_ratio")
	// Construction failed before any solve.
	assert.Empty(t, origin.calls)
	assert.Empty(t, destination.calls)
}

func TestImplicitWrapperWithoutStrategyFailsConstruction(t *testing.T) {
	origin := &fakeWrapper{strategyErr: fmt.Errorf("not implemented for this wrapper")}
	_, err := NewCoupler(Config{
		Settings:      testSettings(1),
		Origin:        origin,
		Destination:   &fakeWrapper{strategy: &fakeStrategy{}},
		MapperFactory: &fakeMapperFactory{},
		NewUtility: func(_, _ *mesh.ModelPart, _ config.CouplingSettings) (CouplingUtility, error) {
			return &fakeUtility{}, nil
		},
	})
	assert.Error(t, err)
}

func TestExplicitWrapperNeedsNoStrategy(t *testing.T) {
	s := testSettings(1)
	s.OriginNewmarkBeta = 0.0 // explicit origin

	origin := &fakeWrapper{
		strategyErr: fmt.Errorf("not implemented for this wrapper"),
		parts:       map[string]*mesh.ModelPart{"origin_interface": interfacePart("origin_interface")},
	}
	destination := &fakeWrapper{
		strategy: &fakeStrategy{k: mat.NewDense(1, 1, []float64{1})},
		parts:    map[string]*mesh.ModelPart{"destination_interface": interfacePart("destination_interface")},
	}
	utility := &fakeUtility{}

	cp, err := NewCoupler(Config{
		Settings:      s,
		Origin:        origin,
		Destination:   destination,
		MapperFactory: &fakeMapperFactory{},
		NewUtility: func(_, _ *mesh.ModelPart, _ config.CouplingSettings) (CouplingUtility, error) {
			return utility, nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, cp.InitializeSolutionStep())

	_, err = cp.SolveSolutionStep()
	require.NoError(t, err)

	// Origin submits the explicit-mode signal, destination the matrix.
	assert.Equal(t, 1, utility.count("submit_explicit_0"))
	assert.Equal(t, 0, utility.count("submit_implicit_0"))
	assert.Equal(t, 1, utility.count("submit_implicit_1"))
}

func TestAdvanceInTimeFirstNonZeroWins(t *testing.T) {
	cp, origin, destination, _, _ := newTestCoupler(t, 1)

	got := cp.AdvanceInTime(0)
	assert.InDelta(t, 0.3, got, 1e-14)
	assert.Equal(t, 1, origin.count("advance"))
	assert.Equal(t, 1, destination.count("advance"))

	// A time-less origin leaves the coupled time at zero.
	origin.dt = 0
	assert.Equal(t, 0.0, cp.AdvanceInTime(0.3))
}

func TestInitializeSolutionStepRunsSetupOnce(t *testing.T) {
	cp, _, _, utility, _ := newTestCoupler(t, 2)

	require.NoError(t, cp.InitializeSolutionStep())
	require.NoError(t, cp.InitializeSolutionStep())

	assert.Equal(t, 1, utility.count("set_domains"))
	assert.Equal(t, 1, utility.count("set_solver"))
	assert.Equal(t, 1, utility.count("set_mapping"))
	assert.Equal(t, 1, utility.count("set_initial_kinematics"))
}

func TestUnsupportedMapperTypeFails(t *testing.T) {
	cp, _, _, _, _ := newTestCoupler(t, 1)
	cp.settings.Mapper.MapperType = "nearest_neighbor"

	err := cp.InitializeSolutionStep()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coupling_geometry")
}

func TestSolveSolutionStepSubcycles(t *testing.T) {
	cp, origin, destination, utility, writers := newTestCoupler(t, 3)
	require.NoError(t, cp.InitializeSolutionStep())

	// Reset call logs after setup so only the solve sequence remains.
	origin.calls = nil
	destination.calls = nil
	utility.calls = nil

	ok, err := cp.SolveSolutionStep()
	require.NoError(t, err)
	assert.True(t, ok)

	// Exactly one origin solve/submit pair.
	assert.Equal(t, 1, origin.count("solve"))
	assert.Equal(t, 1, utility.count("submit_implicit_0"))

	// Exactly three destination solve/submit/equilibrate triples.
	assert.Equal(t, 3, destination.count("solve"))
	assert.Equal(t, 3, utility.count("submit_implicit_1"))
	assert.Equal(t, 3, utility.count("equilibrate"))

	// Advance/initialize/predict only for substeps 2 and 3.
	assert.Equal(t, 2, destination.count("advance"))
	assert.Equal(t, 2, destination.count("init"))
	assert.Equal(t, 2, destination.count("predict"))

	// Intermediate substeps are finalized and written; the last is left
	// to the outer framework. The substep writer is only initialized from
	// substep 2 on (substep 1 rides the outer step's initialization) and
	// finalizes plus writes after each intermediate substep.
	assert.Equal(t, 2, destination.count("finalize"))
	assert.Equal(t, 2, destination.count("output"))
	assert.Equal(t, []string{"finalize", "output", "init", "finalize", "output", "init"}, writers[1].calls)
	assert.Empty(t, writers[0].calls)

	// Equilibration observes the stiffness submitted in the same
	// iteration: every equilibrate immediately follows a submission for
	// the destination.
	for i, call := range utility.calls {
		if call == "equilibrate" {
			require.Greater(t, i, 0)
			assert.Equal(t, "submit_implicit_1", utility.calls[i-1])
		}
	}
}

func TestSolveBeforeInitializeFails(t *testing.T) {
	cp, _, _, _, _ := newTestCoupler(t, 1)
	_, err := cp.SolveSolutionStep()
	assert.Error(t, err)
}
