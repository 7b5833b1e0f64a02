// Package agent implements the agent handle of spec.md §6.4: the object
// store, timeline, execs/reporting queues, and the long-lived worker
// goroutines that drive them, wired together the way the teacher's own
// Agent type (pkg/agent/agent.go) wires its registry, circuit breaker, and
// rate limiter behind a functional-options constructor.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhuapl-dtnma/refda-go/pkg/alarms"
	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/deref"
	"github.com/jhuapl-dtnma/refda-go/pkg/eval"
	"github.com/jhuapl-dtnma/refda-go/pkg/exec"
	"github.com/jhuapl-dtnma/refda-go/pkg/reporting"
	"github.com/jhuapl-dtnma/refda-go/pkg/rules"
	"github.com/jhuapl-dtnma/refda-go/pkg/store"
	"github.com/jhuapl-dtnma/refda-go/pkg/timeline"
	"github.com/jhuapl-dtnma/refda-go/pkg/transport"
	"github.com/jhuapl-dtnma/refda-go/pkg/valprod"
)

// Module is the contract every builtin or operator ADM package implements,
// per spec.md §6.3: register namespaces and objects against the agent's
// store, in dependency order.
type Module interface {
	Init(a *Agent) error
}

// ACLResolver computes the ACL groups a source endpoint is a member of,
// per spec.md §4.7.5 (present as a hook, policy out of scope). The default
// resolver permits everything.
type ACLResolver func(source ari.Value) []string

func defaultACLResolver(ari.Value) []string { return []string{"*"} }

// Config holds the sizing knobs spec.md leaves to the implementation:
// queue depths and alarm history bounds.
// internal/config loads these from TOML; New seeds its own defaults so the
// package is usable without it (matching the teacher's defaultConfig()).
type Config struct {
	ExecQueueDepth      int
	ReportHistoryDepth  int
	AlarmMaxHistory     int
	AlarmCompressWindow time.Duration
}

func defaultConfig() Config {
	return Config{
		ExecQueueDepth:      64,
		ReportHistoryDepth:  1000,
		AlarmMaxHistory:     50,
		AlarmCompressWindow: time.Minute,
	}
}

// execInput is one item handed from ingress to the execution worker: the
// source endpoint that submitted it and the decoded payload. A nil Execset
// is the end-of-stream sentinel of spec.md §4.7.6.
type execInput struct {
	source  ari.Value
	execset *ari.ExecSet
}

// Agent is the long-running management agent: one object store, one
// timeline, and the workers that drain ingress into sequences and drain
// finished sequences' reports out to egress.
type Agent struct {
	mu sync.RWMutex

	cfg Config

	Store    *store.Store
	Timeline *timeline.Timeline
	Alarms   *alarms.Index
	Rules    *rules.Engine

	reportQueue *reporting.Queue
	reporter    *reporting.Reporter
	instr       exec.Instrumentation
	counters    Counters

	transport   transport.SenderReceiver
	aclResolver ACLResolver
	clock       func() time.Time

	execs   chan execInput
	stopped chan struct{}
	wg      sync.WaitGroup
	running bool
	cancel  context.CancelFunc
}

// New constructs an Agent applying the given options. It does not allocate
// the store/timeline/queues; call Init for that, per the lifecycle staging
// of spec.md §6.4.
func New(opts ...Option) (*Agent, error) {
	a := &Agent{
		cfg:         defaultConfig(),
		aclResolver: defaultACLResolver,
		clock:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, fmt.Errorf("agent: apply option: %w", err)
		}
	}
	return a, nil
}

// Init creates the empty store, instrumentation, queues, and timeline, per
// spec.md §6.4's init(agent).
func (a *Agent) Init() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Store = store.New()
	a.Timeline = timeline.New()
	a.Alarms = alarms.NewIndex(a.cfg.AlarmMaxHistory, a.cfg.AlarmCompressWindow)
	a.reportQueue = reporting.NewQueue(a.cfg.ReportHistoryDepth)
	a.reporter = reporting.NewReporter(a.reportQueue, a.clock)
	a.execs = make(chan execInput, a.cfg.ExecQueueDepth)
	a.stopped = make(chan struct{})

	a.Rules = &rules.Engine{
		Store:    a.Store,
		Timeline: a.Timeline,
		EvalFn:   a.evaluate,
		Clock:    a.clock,
		NewRunContext: func() *exec.RunContext {
			return a.newRunContext(ari.Null, ari.Null, nil)
		},
		OnFire: func(*store.Descriptor) { a.counters.rulesFired.Add(1) },
	}
}

// RegisterBuiltins calls each module's Init in the given order, per spec.md
// §6.3's dependency-ordered ADM registration. Callers pass the builtin
// foundation ADMs (amm-base, amm-semtype, network-base, dtnma-agent) first.
func (a *Agent) RegisterBuiltins(modules ...Module) error {
	for _, m := range modules {
		if err := m.Init(a); err != nil {
			return fmt.Errorf("agent: register builtin: %w", err)
		}
	}
	return nil
}

// Bindrefs walks every registered typedef/parameter/base reference, per
// spec.md §6.4's bindrefs(agent); an unresolved reference is a startup
// error.
func (a *Agent) Bindrefs() error {
	if err := a.Store.Bind(); err != nil {
		return fmt.Errorf("agent: bindrefs: %w", err)
	}
	return nil
}

// Start launches the worker goroutines: ingress, egress, and the execution
// worker (with the rule-scheduler arm folded in per spec.md §4.7.5-6 and
// §5). It returns once the workers are running; Stop or ctx cancellation
// tears them down.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("agent: already running")
	}
	if a.transport == nil {
		a.mu.Unlock()
		return fmt.Errorf("agent: no transport configured")
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.running = true
	a.mu.Unlock()

	a.wg.Add(3)
	go func() { defer a.wg.Done(); a.ingressLoop(ctx) }()
	go func() { defer a.wg.Done(); a.executionLoop(ctx) }()
	go func() { defer a.wg.Done(); a.egressLoop(ctx) }()

	return nil
}

// Stop signals every worker to finish its current cycle and exit, then
// blocks until they have, per spec.md §6.4's stop(agent): set running
// false, wake workers, join them. Stop cancels the context the workers
// were started with, so an ingress goroutine blocked in a context-aware
// Recv returns, and closes stopped so the execution and egress loops
// unblock even with no further transport activity.
func (a *Agent) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stopped)
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()
}

// Deinit releases the agent's structures, per spec.md §6.4's deinit(agent).
// Call only after Stop has returned.
func (a *Agent) Deinit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Store = nil
	a.Timeline = nil
	a.Alarms = nil
	a.Rules = nil
	a.reportQueue = nil
	a.reporter = nil
	a.execs = nil
}

// Counters returns a snapshot of the agent's instrumentation counters.
func (a *Agent) Counters() CounterSnapshot {
	return a.counters.snapshot(&a.instr)
}

// ReportQueue exposes the finished-RPTSET fan-out queue so transports
// (proxysock's poll-reports tool) and observability endpoints can
// subscribe or inspect history without reaching into agent internals.
func (a *Agent) ReportQueue() *reporting.Queue { return a.reportQueue }

// Reporter exposes the nonce-batching reporter so ADM modules can build
// report-target/report-ctrl executors against it.
func (a *Agent) Reporter() *reporting.Reporter { return a.reporter }

func (a *Agent) now() time.Time {
	if a.clock != nil {
		return a.clock()
	}
	return time.Now()
}

func (a *Agent) newRunContext(managerID, nonce ari.Value, aclGroups []string) *exec.RunContext {
	return &exec.RunContext{
		Agent:     a,
		ManagerID: managerID,
		Nonce:     nonce,
		ACLGroups: aclGroups,
		Store:     a.Store,
		Timeline:  a.Timeline,
		Reporter:  a.reporter,
		Instr:     &a.instr,
		Clock:     a.clock,
	}
}

// Evaluate runs an EXPR through the agent's store and producer chain,
// exported so ADM modules can build wait-cond/if-then-else CTRLs and other
// expression-consuming builtins against it.
func (a *Agent) Evaluate(expr *ari.AC) (ari.Value, error) { return a.evaluate(expr) }

// evaluate runs expr through pkg/eval, resolving CONST/VAR/EDD references
// encountered as operands via pkg/valprod, the same producer pattern
// pkg/eval's own tests use.
func (a *Agent) evaluate(expr *ari.AC) (ari.Value, error) {
	rc := a.newRunContext(ari.Null, ari.Null, nil)
	produce := eval.DerefProducer(a.Store, func(d deref.Result) (ari.Value, error) {
		return valprod.Produce(d, rc, a)
	})
	return eval.Evaluate(a.Store, expr, produce)
}
