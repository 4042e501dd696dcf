// Package feti implements the dynamic FETI coupling utility: it
// computes the Lagrange-multiplier interface forces that reconcile two
// independently solved domains and applies the resulting kinematic
// corrections back onto their nodes.
package feti

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"fetikit/config"
	"fetikit/coupling"
	"fetikit/linsolve"
	"fetikit/mesh"
)

// Factory adapts the utility's constructor to the coupler's wiring
// contract. Dimension, time-step sizes and the equilibrium self-check
// are fixed per analysis; the rest comes from the coupling settings.
func Factory(dim int, originDT, destinationDT float64, checkEquilibrium bool, log *zap.Logger) coupling.UtilityFactory {
	return func(interfaceOrigin, interfaceDestination *mesh.ModelPart, cs config.CouplingSettings) (coupling.CouplingUtility, error) {
		s, err := SettingsFromConfig(cs, dim, originDT, destinationDT)
		if err != nil {
			return nil, err
		}
		s.CheckEquilibrium = checkEquilibrium
		return New(interfaceOrigin, interfaceDestination, s, log)
	}
}

const numericalLimit = 1e-12

// Settings configures the utility. The scheme is limited to implicit
// average acceleration (beta 0.25, gamma 0.5) or explicit central
// difference (beta 0, gamma 0.5).
type Settings struct {
	OriginNewmarkBeta       float64
	OriginNewmarkGamma      float64
	DestinationNewmarkBeta  float64
	DestinationNewmarkGamma float64

	TimestepRatio       int
	EquilibriumVariable string
	IsDisableCoupling   bool
	IsLinear            bool

	// CheckEquilibrium re-evaluates the interface balance after the
	// corrections of the final substep and fails if it is violated.
	CheckEquilibrium bool

	// Dim is the working-space dimension shared by both domains.
	Dim int

	OriginDeltaTime      float64
	DestinationDeltaTime float64
}

// SettingsFromConfig converts the coupler's configuration surface,
// adding the quantities the utility needs beyond it.
func SettingsFromConfig(cs config.CouplingSettings, dim int, originDT, destinationDT float64) (Settings, error) {
	ratio, err := cs.TimestepRatioInt()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OriginNewmarkBeta:       cs.OriginNewmarkBeta,
		OriginNewmarkGamma:      cs.OriginNewmarkGamma,
		DestinationNewmarkBeta:  cs.DestinationNewmarkBeta,
		DestinationNewmarkGamma: cs.DestinationNewmarkGamma,
		TimestepRatio:           ratio,
		EquilibriumVariable:     cs.EquilibriumVariable,
		IsDisableCoupling:       cs.IsDisableCoupling,
		IsLinear:                cs.IsLinear,
		Dim:                     dim,
		OriginDeltaTime:         originDT,
		DestinationDeltaTime:    destinationDT,
	}, nil
}

// Utilities equilibrates an origin and a destination domain across a
// non-matching interface. It is stateful across substeps: the origin
// projector and unit response are composed on substep 1 of each coarse
// step and reused, the destination side is recomposed every substep, and
// the substep counter wraps at the timestep ratio.
type Utilities struct {
	settings Settings
	log      *zap.Logger
	field    mesh.Field

	interfaceOrigin      *mesh.ModelPart
	interfaceDestination *mesh.ModelPart
	originDomain         *mesh.ModelPart
	destinationDomain    *mesh.ModelPart

	solver  linsolve.Solver
	mapping *mat.Dense

	kOrigin      mat.Matrix
	kDestination mat.Matrix

	isImplicitOrigin      bool
	isImplicitDestination bool

	subTimestep int

	initialOriginKinematics []float64
	finalOriginKinematics   []float64

	projectorOrigin         *mat.Dense
	projectorDestination    *mat.Dense
	unitResponseOrigin      *mat.Dense
	unitResponseDestination *mat.Dense
	condensation            *mat.Dense
	linearSetupComplete     bool
}

// New validates the settings eagerly and creates the utility for the
// given mapper-space interface model parts.
func New(interfaceOrigin, interfaceDestination *mesh.ModelPart, s Settings, log *zap.Logger) (*Utilities, error) {
	if interfaceOrigin == nil || interfaceDestination == nil {
		return nil, fmt.Errorf("both interface model parts must be set")
	}
	if s.Dim != 2 && s.Dim != 3 {
		return nil, fmt.Errorf("working space dimension must be 2 or 3, got %d", s.Dim)
	}
	if s.TimestepRatio < 1 {
		return nil, fmt.Errorf("timestep ratio must be a positive integer, got %d", s.TimestepRatio)
	}
	if s.OriginNewmarkBeta != 0.0 && s.OriginNewmarkBeta != 0.25 {
		return nil, fmt.Errorf("origin_newmark_beta must be 0.0 or 0.25, got %v", s.OriginNewmarkBeta)
	}
	if s.DestinationNewmarkBeta != 0.0 && s.DestinationNewmarkBeta != 0.25 {
		return nil, fmt.Errorf("destination_newmark_beta must be 0.0 or 0.25, got %v", s.DestinationNewmarkBeta)
	}
	if s.OriginNewmarkGamma != 0.5 {
		return nil, fmt.Errorf("origin_newmark_gamma must be 0.5, got %v", s.OriginNewmarkGamma)
	}
	if s.DestinationNewmarkGamma != 0.5 {
		return nil, fmt.Errorf("destination_newmark_gamma must be 0.5, got %v", s.DestinationNewmarkGamma)
	}
	if s.OriginDeltaTime <= 0 || s.DestinationDeltaTime <= 0 {
		return nil, fmt.Errorf("delta times must be positive, got origin %v destination %v", s.OriginDeltaTime, s.DestinationDeltaTime)
	}

	field, err := mesh.FieldFromString(s.EquilibriumVariable)
	if err != nil {
		return nil, fmt.Errorf("equilibrium_variable: %w", err)
	}
	switch field {
	case mesh.Displacement, mesh.Velocity, mesh.Acceleration:
	default:
		return nil, fmt.Errorf("equilibrium_variable must be DISPLACEMENT, VELOCITY or ACCELERATION, got %q", s.EquilibriumVariable)
	}

	isImplicitOrigin := s.OriginNewmarkBeta > numericalLimit
	isImplicitDestination := s.DestinationNewmarkBeta > numericalLimit
	if field == mesh.Displacement && (!isImplicitOrigin || !isImplicitDestination) {
		return nil, fmt.Errorf("displacement coupling is only possible for implicit-implicit pairings")
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Utilities{
		settings:              s,
		log:                   log,
		field:                 field,
		interfaceOrigin:       interfaceOrigin,
		interfaceDestination:  interfaceDestination,
		isImplicitOrigin:      isImplicitOrigin,
		isImplicitDestination: isImplicitDestination,
		subTimestep:           1,
	}, nil
}

// SubTimestepIndex returns the 1-based index of the next substep to be
// equilibrated.
func (u *Utilities) SubTimestepIndex() int { return u.subTimestep }

// SetOriginAndDestinationDomains submits the interface model parts that
// live on the actual origin and destination models, giving the utility
// access to the full domains for the correction pass.
func (u *Utilities) SetOriginAndDestinationDomains(origin, destination *mesh.ModelPart) error {
	if origin == nil || destination == nil {
		return fmt.Errorf("origin and destination interface model parts must not be nil")
	}
	u.originDomain = origin.Root()
	u.destinationDomain = destination.Root()
	return nil
}

// SetLinearSolver binds the solver used for the unit responses and the
// condensation system.
func (u *Utilities) SetLinearSolver(solver linsolve.Solver) { u.solver = solver }

// SetMappingMatrix binds the interface correspondence operator (rows:
// destination interface nodes, columns: origin interface nodes).
func (u *Utilities) SetMappingMatrix(m mat.Matrix) error {
	r, c := m.Dims()
	if r != u.interfaceDestination.NumberOfNodes() || c != u.interfaceOrigin.NumberOfNodes() {
		return fmt.Errorf("mapping matrix is %dx%d, expected %dx%d",
			r, c, u.interfaceDestination.NumberOfNodes(), u.interfaceOrigin.NumberOfNodes())
	}
	u.mapping = mat.DenseCopyOf(m)
	return nil
}

// SetOriginInitialKinematics snapshots the origin interface kinematics.
// Called once at setup; the utility refreshes the snapshot itself at the
// end of each coarse step.
func (u *Utilities) SetOriginInitialKinematics() error {
	if u.originDomain == nil || u.destinationDomain == nil {
		return fmt.Errorf("origin and destination domains have not been set, call SetOriginAndDestinationDomains first")
	}
	snapshot, err := u.interfaceQuantity(u.interfaceOrigin, u.field)
	if err != nil {
		return err
	}
	u.initialOriginKinematics = snapshot
	return nil
}

// SetEffectiveStiffnessMatrixImplicit submits a domain's system matrix
// for the current substep.
func (u *Utilities) SetEffectiveStiffnessMatrixImplicit(k mat.Matrix, domainIndex int) error {
	switch domainIndex {
	case 0:
		u.kOrigin = k
	case 1:
		u.kDestination = k
	default:
		return fmt.Errorf("invalid domain index %d", domainIndex)
	}
	return nil
}

// SetEffectiveStiffnessMatrixExplicit signals that a domain runs
// explicitly; no matrix is transmitted and the unit response is built
// from nodal masses instead.
func (u *Utilities) SetEffectiveStiffnessMatrixExplicit(domainIndex int) {
	switch domainIndex {
	case 0:
		u.kOrigin = nil
	case 1:
		u.kDestination = nil
	}
}

// EquilibrateDomains computes the Lagrange multipliers balancing the
// interface at the current substep and applies the corrections: to the
// destination every substep, to the origin only on the final substep of
// the coarse step (where the origin's free kinematics also become the
// initial kinematics of the next coarse step).
func (u *Utilities) EquilibrateDomains() error {
	if u.subTimestep > u.settings.TimestepRatio {
		return fmt.Errorf("subtimestep index %d incorrectly exceeds timestep ratio %d", u.subTimestep, u.settings.TimestepRatio)
	}
	if u.originDomain == nil || u.destinationDomain == nil {
		return fmt.Errorf("origin and destination domains have not been set, call SetOriginAndDestinationDomains first")
	}
	if u.solver == nil {
		return fmt.Errorf("the linear solver has not been set, call SetLinearSolver first")
	}
	if u.mapping == nil {
		return fmt.Errorf("the mapping matrix has not been set, call SetMappingMatrix first")
	}

	unbalanced, err := u.unbalancedInterfaceFreeKinematics(false)
	if err != nil {
		return err
	}

	if !u.settings.IsLinear || !u.linearSetupComplete {
		if u.subTimestep == 1 {
			if u.projectorOrigin, err = u.composeProjector(true); err != nil {
				return err
			}
		}
		if u.projectorDestination, err = u.composeProjector(false); err != nil {
			return err
		}

		if u.subTimestep == 1 {
			if u.unitResponseOrigin, err = u.unitAccelerationResponse(u.projectorOrigin, true); err != nil {
				return err
			}
		}
		if u.unitResponseDestination, err = u.unitAccelerationResponse(u.projectorDestination, false); err != nil {
			return err
		}

		if u.condensation, err = u.condensationMatrix(); err != nil {
			return err
		}
		if u.settings.IsLinear {
			u.linearSetupComplete = true
		}
	}

	lagrange, err := u.solver.Solve(u.condensation, unbalanced)
	if err != nil {
		return fmt.Errorf("solving for lagrange multipliers: %w", err)
	}
	if u.settings.IsDisableCoupling {
		u.log.Warn("lagrangian multipliers disabled")
		for i := range lagrange {
			lagrange[i] = 0
		}
	}

	if u.subTimestep == u.settings.TimestepRatio {
		// The final free kinematics of the origin become its initial
		// kinematics for the next coarse step.
		if err := u.SetOriginInitialKinematics(); err != nil {
			return err
		}
		if err := u.applyCorrections(lagrange, u.unitResponseOrigin, true); err != nil {
			return err
		}
	}
	if err := u.applyCorrections(lagrange, u.unitResponseDestination, false); err != nil {
		return err
	}

	if u.settings.CheckEquilibrium && !u.settings.IsDisableCoupling && u.subTimestep == u.settings.TimestepRatio {
		residual, err := u.unbalancedInterfaceFreeKinematics(true)
		if err != nil {
			return err
		}
		norm := 0.0
		for _, v := range residual {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm > 1e-12 {
			return fmt.Errorf("corrected interface kinematics are not in equilibrium, norm = %g", norm)
		}
	}

	if err := u.writeLagrangeResults(lagrange); err != nil {
		return err
	}

	if u.subTimestep == u.settings.TimestepRatio {
		u.subTimestep = 1
	} else {
		u.subTimestep++
	}
	return nil
}

// unbalancedInterfaceFreeKinematics returns the interface imbalance:
// the destination kinematics subtracted from the origin kinematics
// mapped to destination space and interpolated to the current substep.
func (u *Utilities) unbalancedInterfaceFreeKinematics(isEquilibriumCheck bool) ([]float64, error) {
	dim := u.settings.Dim

	unbalanced, err := u.interfaceQuantity(u.interfaceDestination, u.field)
	if err != nil {
		return nil, err
	}
	for i := range unbalanced {
		unbalanced[i] = -unbalanced[i]
	}

	if u.subTimestep == 1 || isEquilibriumCheck {
		if u.finalOriginKinematics, err = u.interfaceQuantity(u.interfaceOrigin, u.field); err != nil {
			return nil, err
		}
	}
	if len(u.initialOriginKinematics) != len(u.finalOriginKinematics) {
		return nil, fmt.Errorf("origin initial kinematics have not been snapshotted, call SetOriginInitialKinematics first")
	}

	timeRatio := float64(u.subTimestep) / float64(u.settings.TimestepRatio)
	interpolated := make([]float64, len(u.finalOriginKinematics))
	for i := range interpolated {
		if isEquilibriumCheck {
			interpolated[i] = u.finalOriginKinematics[i]
		} else {
			interpolated[i] = timeRatio*u.finalOriginKinematics[i] + (1.0-timeRatio)*u.initialOriginKinematics[i]
		}
	}

	expanded := u.expandedMappingMatrix(dim)
	mapped := make([]float64, u.interfaceDestination.NumberOfNodes()*dim)
	target := mat.NewVecDense(len(mapped), mapped)
	target.MulVec(expanded, mat.NewVecDense(len(interpolated), interpolated))

	for i := range unbalanced {
		unbalanced[i] += mapped[i]
	}
	return unbalanced, nil
}

// composeProjector builds the boolean localization operator from a
// domain's DOF ordering to its interface DOFs (+1 entries for the
// origin, -1 for the destination). For explicit domains the DOF ordering
// is assigned here from the nodes carrying mass. The origin projector
// additionally folds in the mapping matrix, since the multipliers live
// in destination space and must be mapped back conservatively.
func (u *Utilities) composeProjector(isOrigin bool) (*mat.Dense, error) {
	dim := u.settings.Dim

	iface := u.interfaceDestination
	domain := u.destinationDomain
	k := u.kDestination
	entry := -1.0
	isImplicit := u.isImplicitDestination
	if isOrigin {
		iface = u.interfaceOrigin
		domain = u.originDomain
		k = u.kOrigin
		entry = 1.0
		isImplicit = u.isImplicitOrigin
	}

	var domainDofs int
	if isImplicit {
		if k == nil {
			return nil, fmt.Errorf("effective stiffness matrix for the %s domain has not been submitted", domainName(isOrigin))
		}
		domainDofs, _ = k.Dims()
	} else {
		for _, n := range domain.Nodes() {
			if n.Mass > numericalLimit {
				n.ExplicitEquationID = domainDofs
				domainDofs += dim
			}
		}
	}

	projector := mat.NewDense(iface.NumberOfNodes()*dim, domainDofs, nil)
	for _, n := range iface.Nodes() {
		if n.InterfaceEquationID < 0 {
			return nil, fmt.Errorf("interface node %d has no interface equation ID; this is created by the mapper", n.ID)
		}
		domainEqID := n.DomainEquationID
		if !isImplicit {
			domainEqID = n.ExplicitEquationID
		}
		if domainEqID < 0 {
			return nil, fmt.Errorf("interface node %d has no %s domain equation ID", n.ID, domainName(isOrigin))
		}
		for d := 0; d < dim; d++ {
			projector.Set(n.InterfaceEquationID*dim+d, domainEqID+d, entry)
		}
	}

	if isOrigin {
		expanded := u.expandedMappingMatrix(dim)
		er, _ := expanded.Dims()
		_, pc := projector.Dims()
		combined := mat.NewDense(er, pc, nil)
		combined.Mul(expanded, projector)
		return combined, nil
	}
	return projector, nil
}

// unitAccelerationResponse computes each domain's acceleration response
// to unit interface loads: implicit domains solve their effective mass
// (K * dt^2 * beta) once per interface DOF, explicit ones invert the
// lumped nodal masses directly.
func (u *Utilities) unitAccelerationResponse(projector *mat.Dense, isOrigin bool) (*mat.Dense, error) {
	interfaceDofs, systemDofs := projector.Dims()
	response := mat.NewDense(systemDofs, interfaceDofs, nil)

	isImplicit := u.isImplicitDestination
	if isOrigin {
		isImplicit = u.isImplicitOrigin
	}

	if isImplicit {
		beta := u.settings.DestinationNewmarkBeta
		dt := u.settings.DestinationDeltaTime
		k := u.kDestination
		if isOrigin {
			beta = u.settings.OriginNewmarkBeta
			dt = u.settings.OriginDeltaTime
			k = u.kOrigin
		}
		effectiveMass := mat.DenseCopyOf(k)
		effectiveMass.Scale(dt*dt*beta, k)

		rhs := make([]float64, systemDofs)
		for i := 0; i < interfaceDofs; i++ {
			for j := 0; j < systemDofs; j++ {
				rhs[j] = projector.At(i, j)
			}
			solution, err := u.solver.Solve(effectiveMass, rhs)
			if err != nil {
				return nil, fmt.Errorf("solving %s unit acceleration response: %w", domainName(isOrigin), err)
			}
			for j := 0; j < systemDofs; j++ {
				response.Set(j, i, solution[j])
			}
		}
		return response, nil
	}

	domain := u.destinationDomain
	if isOrigin {
		domain = u.originDomain
	}
	dim := u.settings.Dim
	for i := 0; i < interfaceDofs; i++ {
		for _, n := range domain.Nodes() {
			if n.Mass <= numericalLimit {
				continue
			}
			for d := 0; d < dim; d++ {
				response.Set(n.ExplicitEquationID+d, i, projector.At(i, n.ExplicitEquationID+d)/n.Mass)
			}
		}
	}
	return response, nil
}

// condensationMatrix assembles the interface condensation system from
// both unit responses, scaled by the kinematic coefficient of the
// equilibrium variable.
func (u *Utilities) condensationMatrix() (*mat.Dense, error) {
	var originCoeff, destinationCoeff float64
	switch u.field {
	case mesh.Acceleration:
		originCoeff, destinationCoeff = 1.0, 1.0
	case mesh.Velocity:
		originCoeff = u.settings.OriginNewmarkGamma * u.settings.OriginDeltaTime
		destinationCoeff = u.settings.DestinationNewmarkGamma * u.settings.DestinationDeltaTime
	case mesh.Displacement:
		og, dg := u.settings.OriginNewmarkGamma, u.settings.DestinationNewmarkGamma
		odt, ddt := u.settings.OriginDeltaTime, u.settings.DestinationDeltaTime
		originCoeff = og * og * odt * odt
		destinationCoeff = dg * dg * ddt * ddt
	default:
		return nil, fmt.Errorf("unsupported equilibrium variable %v", u.field)
	}

	rows, _ := u.projectorOrigin.Dims()
	_, cols := u.unitResponseOrigin.Dims()
	hOrigin := mat.NewDense(rows, cols, nil)
	hOrigin.Mul(u.projectorOrigin, u.unitResponseOrigin)
	hOrigin.Scale(originCoeff, hOrigin)

	rows, _ = u.projectorDestination.Dims()
	_, cols = u.unitResponseDestination.Dims()
	hDestination := mat.NewDense(rows, cols, nil)
	hDestination.Mul(u.projectorDestination, u.unitResponseDestination)
	hDestination.Scale(destinationCoeff, hDestination)

	condensation := mat.NewDense(rows, cols, nil)
	condensation.Add(hOrigin, hDestination)
	condensation.Scale(-1.0, condensation)
	return condensation, nil
}

// applyCorrections turns the multipliers into an acceleration correction
// via the unit response and cascades it onto the domain's kinematic
// fields following the integration scheme.
func (u *Utilities) applyCorrections(lagrange []float64, unitResponse *mat.Dense, isOrigin bool) error {
	domain := u.destinationDomain
	gamma := u.settings.DestinationNewmarkGamma
	dt := u.settings.DestinationDeltaTime
	isImplicit := u.isImplicitDestination
	if isOrigin {
		domain = u.originDomain
		gamma = u.settings.OriginNewmarkGamma
		dt = u.settings.OriginDeltaTime
		isImplicit = u.isImplicitOrigin
	}

	systemDofs, _ := unitResponse.Dims()
	correction := make([]float64, systemDofs)
	target := mat.NewVecDense(systemDofs, correction)
	target.MulVec(unitResponse, mat.NewVecDense(len(lagrange), lagrange))

	if err := u.addCorrectionToDomain(domain, mesh.Acceleration, correction, isImplicit); err != nil {
		return err
	}

	scale(correction, gamma*dt)
	if err := u.addCorrectionToDomain(domain, mesh.Velocity, correction, isImplicit); err != nil {
		return err
	}

	if isImplicit {
		// Newmark average acceleration: deltaDisplacement =
		// gamma^2 * dt^2 * accelerationCorrection.
		scale(correction, gamma*dt)
		return u.addCorrectionToDomain(domain, mesh.Displacement, correction, isImplicit)
	}

	// Central difference: deltaVelocityMiddle = dt * correction,
	// deltaDisplacement = dt^2 * correction.
	scale(correction, 2.0)
	if err := u.addCorrectionToDomain(domain, mesh.MiddleVelocity, correction, isImplicit); err != nil {
		return err
	}
	scale(correction, dt)
	return u.addCorrectionToDomain(domain, mesh.Displacement, correction, isImplicit)
}

// addCorrectionToDomain accumulates a correction vector onto a nodal
// field across the whole domain, addressed by each node's equation ID.
func (u *Utilities) addCorrectionToDomain(domain *mesh.ModelPart, field mesh.Field, correction []float64, isImplicit bool) error {
	dim := u.settings.Dim
	for _, n := range domain.Nodes() {
		eqID := n.DomainEquationID
		if !isImplicit {
			if n.ExplicitEquationID < 0 || n.Mass <= numericalLimit {
				continue
			}
			eqID = n.ExplicitEquationID
		}
		if eqID < 0 {
			return fmt.Errorf("node %d of domain %q has no domain equation ID", n.ID, domain.Name)
		}
		if eqID+dim > len(correction) {
			return fmt.Errorf("correction dof size %d does not match domain %q dofs", len(correction), domain.Name)
		}
		var delta [3]float64
		for d := 0; d < dim; d++ {
			delta[d] = correction[eqID+d]
		}
		n.AddValue(field, delta)
	}
	return nil
}

// writeLagrangeResults stores the negated multipliers on the destination
// interface nodes for post-processing.
func (u *Utilities) writeLagrangeResults(lagrange []float64) error {
	dim := u.settings.Dim
	for _, n := range u.interfaceDestination.Nodes() {
		if n.InterfaceEquationID < 0 {
			return fmt.Errorf("interface node %d has no interface equation ID", n.ID)
		}
		var value [3]float64
		for d := 0; d < dim; d++ {
			value[d] = -lagrange[n.InterfaceEquationID*dim+d]
		}
		n.SetValue(mesh.LagrangeMultiplier, value)
	}
	return nil
}

// interfaceQuantity gathers a nodal field over an interface part into a
// vector ordered by interface equation ID.
func (u *Utilities) interfaceQuantity(iface *mesh.ModelPart, field mesh.Field) ([]float64, error) {
	dim := u.settings.Dim
	out := make([]float64, iface.NumberOfNodes()*dim)
	for _, n := range iface.Nodes() {
		if n.InterfaceEquationID < 0 {
			return nil, fmt.Errorf("interface node %d has no interface equation ID; this is created by the mapper", n.ID)
		}
		value := n.Value(field)
		for d := 0; d < dim; d++ {
			out[n.InterfaceEquationID*dim+d] = value[d]
		}
	}
	return out, nil
}

// expandedMappingMatrix blows the scalar mapping matrix up to act on all
// DOF components at once.
func (u *Utilities) expandedMappingMatrix(dim int) *mat.Dense {
	r, c := u.mapping.Dims()
	expanded := mat.NewDense(r*dim, c*dim, nil)
	for d := 0; d < dim; d++ {
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				expanded.Set(dim*i+d, dim*j+d, u.mapping.At(i, j))
			}
		}
	}
	return expanded
}

func scale(v []float64, s float64) {
	for i := range v {
		v[i] *= s
	}
}

func domainName(isOrigin bool) string {
	if isOrigin {
		return "origin"
	}
	return "destination"
}
