// Package pipeline orchestrates the KMS diagnostic flow: a fixed sequence of
// gates from subsystem registration down to live runtime signals. Early gates
// are prerequisites for later ones; when a hard gate fails the pipeline stops
// rather than probing a stack that cannot work. A state machine enforces the
// legal gate ordering.
package pipeline

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/kiya956/drm-test/internal/config"
	"github.com/kiya956/drm-test/internal/domain"
	"github.com/kiya956/drm-test/internal/probe"
	"github.com/kiya956/drm-test/internal/statefs"
	"github.com/kiya956/drm-test/internal/sysfs"
	"github.com/kiya956/drm-test/pkg/log"
)

// Gate names, in execution order.
const (
	GateRegistration = "registration"
	GateBinding      = "driver-binding"
	GateDeviceNodes  = "device-nodes"
	GateModeset      = "modeset-params"
	GateConnectors   = "connectors"
	GateSignals      = "runtime-signals"
)

// States of the gate machine.
const (
	stateStart      = "start"
	stateRegistered = "registered"
	stateBound      = "bound"
	stateNodesOK    = "nodes_ok"
	stateModesetOK  = "modeset_ok"
	stateEvaluated  = "evaluated"
	stateDone       = "done"
	stateFailed     = "failed"
)

const eventAbort = "abort"

// gate is one pipeline stage. Hard gates abort the run on failure; soft
// gates record their findings and let the pipeline continue.
type gate struct {
	name string
	hard bool
	run  func(ctx context.Context) domain.Severity
}

// Pipeline is the KMS diagnostic flow over one machine.
type Pipeline struct {
	sys    *sysfs.System
	prober *probe.Prober
	cfg    *config.Config
	log    log.Logger

	// cross-gate state, populated as gates run
	controllers []domain.ControllerNode
	nodes       domain.DeviceNodeSet
	report      *domain.Report
}

// New builds a Pipeline over a state reader.
func New(r statefs.Reader, cfg *config.Config, logger log.Logger) *Pipeline {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Pipeline{
		sys:    sysfs.New(r, cfg.Paths),
		prober: probe.New(r, cfg.Paths, cfg.Probes),
		cfg:    cfg,
		log:    logger.WithName("pipeline"),
	}
}

// newMachine builds the gate-ordering state machine.
func newMachine() *fsm.FSM {
	return fsm.NewFSM(stateStart, fsm.Events{
		{Name: GateRegistration, Src: []string{stateStart}, Dst: stateRegistered},
		{Name: GateBinding, Src: []string{stateRegistered}, Dst: stateBound},
		{Name: GateDeviceNodes, Src: []string{stateBound}, Dst: stateNodesOK},
		{Name: GateModeset, Src: []string{stateNodesOK}, Dst: stateModesetOK},
		{Name: GateConnectors, Src: []string{stateModesetOK}, Dst: stateEvaluated},
		{Name: GateSignals, Src: []string{stateEvaluated}, Dst: stateDone},
		{Name: eventAbort, Src: []string{
			stateStart, stateRegistered, stateBound, stateNodesOK, stateModesetOK, stateEvaluated,
		}, Dst: stateFailed},
	}, fsm.Callbacks{})
}

// Run executes the gate sequence and returns the complete report. The report
// is always usable, whatever gate the run stopped at.
func (p *Pipeline) Run(ctx context.Context) *domain.Report {
	started := time.Now()
	p.report = &domain.Report{StartedAt: started, Flow: domain.FlowKMS}

	machine := newMachine()
	gates := []gate{
		{name: GateRegistration, hard: true, run: p.gateRegistration},
		{name: GateBinding, hard: true, run: p.gateBinding},
		{name: GateDeviceNodes, hard: true, run: p.gateDeviceNodes},
		{name: GateModeset, hard: true, run: p.gateModeset},
		{name: GateConnectors, run: p.gateConnectors},
		{name: GateSignals, run: p.gateSignals},
	}

	for _, g := range gates {
		if err := ctx.Err(); err != nil {
			p.log.Warn("run cancelled", "gate", g.name)
			break
		}

		outcome := g.run(ctx)
		terminal := g.hard && outcome == domain.SeverityFail
		p.report.Gates = append(p.report.Gates, domain.GateResult{
			Gate:     g.name,
			Outcome:  outcome,
			Terminal: terminal,
		})
		p.log.Debug("gate finished", "gate", g.name, "outcome", string(outcome))

		if terminal {
			if err := machine.Event(ctx, eventAbort); err != nil {
				p.log.Error(err, "state machine abort rejected", "gate", g.name)
			}
			break
		}
		if err := machine.Event(ctx, g.name); err != nil {
			p.log.Error(err, "state machine transition rejected", "gate", g.name)
			break
		}
	}

	p.report.Duration = time.Since(started)
	p.report.Exit = exitClass(p.report.Gates)
	return p.report
}

// exitClass derives the verdict from hard-gate outcomes alone. Soft gates
// (connectors, runtime signals) record their failures as evidence but never
// flip the exit class: the verdict reflects the display prerequisites, not
// the state of individual outputs.
func exitClass(gates []domain.GateResult) domain.ExitClass {
	for _, g := range gates {
		if g.Terminal {
			return domain.ExitHardFail
		}
	}
	return domain.ExitSuccess
}

func (p *Pipeline) add(ev ...domain.Evidence) {
	p.report.Evidence = append(p.report.Evidence, ev...)
}
