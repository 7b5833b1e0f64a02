// Package store implements the object store: an ordered list of namespaces,
// each holding object descriptors of the nine object kinds, with lazy
// cross-reference binding. Access is serialized by a single reader/writer
// mutex, mirroring the teacher's mutex-guarded registry pattern (formerly
// pkg/index's dependency graph, pkg/agent's skill registry) generalized to
// the store's namespace/object-type secondary indexing.
package store

import (
	"fmt"
	"sync"

	"github.com/jhuapl-dtnma/refda-go/pkg/ari"
	"github.com/jhuapl-dtnma/refda-go/pkg/semtype"
)

// FormalParam is one formal parameter of an object descriptor: a name, a
// semantic type, and an optional default ARI.
type FormalParam struct {
	Name    string
	Type    *semtype.Type
	Default ari.Value // nil if no default
}

// Descriptor is one object's registered state. Only the fields relevant to
// its Kind are populated; the rest stay at the zero value.
type Descriptor struct {
	Name   ari.Segment
	Enum   *int64
	Params []FormalParam

	// IDENT
	Bases []*ari.Reference

	// TYPEDEF / CONST / VAR / EDD result type
	ValueType *semtype.Type

	// CONST
	ConstValue ari.Value

	// VAR
	InitialValue ari.Value
	CurrentValue ari.Value
	varMu        sync.Mutex

	// EDD
	Produce EDDProducer

	// CTRL
	Execute CtrlExecutor

	// OPER
	OperandTypes []semtype.NamedType
	ResultType   *semtype.Type
	Evaluate     OperEvaluator

	// SBR / TBR common
	Action       ari.Value // MAC literal AC
	MaxCount     uint64
	RunCount     uint64
	InitEnabled  bool
	Enabled      bool

	// SBR
	Condition   ari.Value // EXPR literal AC
	MinInterval int64     // nanoseconds

	// TBR
	StartTime      ari.Value // TP or TD
	Period         int64     // nanoseconds
	AbsoluteStart  ari.Value // TP, computed at enable time

	Obsolete bool
}

// EDDProducer computes an EDD's produced value. ctx carries the production
// context (run context, actual parameters, agent handle) via the opaque
// type parameter used by pkg/valprod; the store package only holds the
// function pointer.
type EDDProducer func(ctx any, aparams *Aparams) ari.Value

// CtrlExecutor runs a CTRL's callback with an opaque execution context.
type CtrlExecutor func(ctx any, aparams *Aparams)

// OperEvaluator evaluates an OPER given already-coerced operand values.
type OperEvaluator func(operands []ari.Value) ari.Value

// Store current value helpers, guarded per-VAR to avoid serializing unrelated
// VAR reads/writes behind the single store mutex.

// Load returns the VAR's current value.
func (d *Descriptor) Load() ari.Value {
	d.varMu.Lock()
	defer d.varMu.Unlock()
	return d.CurrentValue
}

// StoreValue sets the VAR's current value.
func (d *Descriptor) StoreValue(v ari.Value) {
	d.varMu.Lock()
	defer d.varMu.Unlock()
	d.CurrentValue = v
}

// Reset restores the VAR's current value to its initial value.
func (d *Descriptor) Reset() {
	d.varMu.Lock()
	defer d.varMu.Unlock()
	d.CurrentValue = d.InitialValue
}

// kindBucket holds one object-type's descriptors within a namespace: an
// ordered list for stable enumeration plus by-name/by-enum indexes.
type kindBucket struct {
	order  []*Descriptor
	byName map[string]*Descriptor
	byEnum map[int64]*Descriptor
}

func newKindBucket() *kindBucket {
	return &kindBucket{byName: make(map[string]*Descriptor), byEnum: make(map[int64]*Descriptor)}
}

// Namespace owns one organization/model identity and its object descriptors.
type Namespace struct {
	Org      ari.Segment
	Model    ari.Segment
	Revision string
	Features map[string]bool
	Obsolete bool

	mu      sync.RWMutex
	buckets map[ari.Kind]*kindBucket
}

// IsADM reports whether this namespace's model id denotes an immutable ADM
// (non-negative) as opposed to a mutable ODM (negative).
func (n *Namespace) IsADM() bool {
	return n.Model.IsName || n.Model.Enum >= 0
}

func (n *Namespace) bucket(kind ari.Kind) *kindBucket {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.buckets[kind]
	if !ok {
		b = newKindBucket()
		n.buckets[kind] = b
	}
	return b
}

// AddObject registers a new descriptor under the given object kind. It
// rejects a duplicate name or enum within the same (namespace, kind) and
// leaves no partial state on failure.
func (n *Namespace) AddObject(kind ari.Kind, desc *Descriptor) (*Descriptor, error) {
	b := n.bucket(kind)
	n.mu.Lock()
	defer n.mu.Unlock()

	key := desc.Name.String()
	if _, exists := b.byName[key]; exists {
		return nil, fmt.Errorf("store: object %q already registered in namespace %s/%s kind %s", key, n.Org, n.Model, kind)
	}
	if desc.Enum != nil {
		if _, exists := b.byEnum[*desc.Enum]; exists {
			return nil, fmt.Errorf("store: enum %d already registered in namespace %s/%s kind %s", *desc.Enum, n.Org, n.Model, kind)
		}
	}

	b.order = append(b.order, desc)
	b.byName[key] = desc
	if desc.Enum != nil {
		b.byEnum[*desc.Enum] = desc
	}
	return desc, nil
}

// FindObjectByName looks up a descriptor by name within one object kind.
func (n *Namespace) FindObjectByName(kind ari.Kind, name string) (*Descriptor, bool) {
	b := n.bucket(kind)
	n.mu.RLock()
	defer n.mu.RUnlock()
	d, ok := b.byName[name]
	return d, ok
}

// FindObjectByEnum looks up a descriptor by enumeration within one object kind.
func (n *Namespace) FindObjectByEnum(kind ari.Kind, enum int64) (*Descriptor, bool) {
	b := n.bucket(kind)
	n.mu.RLock()
	defer n.mu.RUnlock()
	d, ok := b.byEnum[enum]
	return d, ok
}

// ListObjects returns all non-obsolete descriptors of a kind in registration
// order. includeObsolete controls whether obsolete descriptors are included,
// matching the spec's enumeration-EDD behavior.
func (n *Namespace) ListObjects(kind ari.Kind, includeObsolete bool) []*Descriptor {
	b := n.bucket(kind)
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Descriptor, 0, len(b.order))
	for _, d := range b.order {
		if d.Obsolete && !includeObsolete {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Store is the top-level ordered list of namespaces with a secondary index
// by (org, model).
type Store struct {
	mu    sync.RWMutex
	order []*Namespace
	index map[string]*Namespace
}

// New constructs an empty store.
func New() *Store {
	return &Store{index: make(map[string]*Namespace)}
}

func namespaceKey(org, model ari.Segment) string {
	return org.String() + "/" + model.String()
}

// AddNamespace registers a new namespace, rejecting a duplicate (org, model)
// pair.
func (s *Store) AddNamespace(org, model ari.Segment, revision string) (*Namespace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := namespaceKey(org, model)
	if _, exists := s.index[key]; exists {
		return nil, fmt.Errorf("store: namespace %s already registered", key)
	}
	ns := &Namespace{
		Org:      org,
		Model:    model,
		Revision: revision,
		Features: make(map[string]bool),
		buckets:  make(map[ari.Kind]*kindBucket),
	}
	s.order = append(s.order, ns)
	s.index[key] = ns
	return ns, nil
}

// FindNamespace looks up a namespace by (org, model) identity.
func (s *Store) FindNamespace(org, model ari.Segment) (*Namespace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.index[namespaceKey(org, model)]
	return ns, ok
}

// Namespaces returns all registered namespaces in registration order.
func (s *Store) Namespaces() []*Namespace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Namespace, len(s.order))
	copy(out, s.order)
	return out
}

// ResolveResult is the outcome of a path lookup, prior to parameter binding.
type ResolveResult struct {
	Namespace *Namespace
	Kind      ari.Kind
	Desc      *Descriptor
}

// objectKinds lists every object-descriptor kind a namespace bucket can
// hold, used to classify a failed lookup as not-found vs. wrong-type.
var objectKinds = []ari.Kind{
	ari.KindIdent, ari.KindTypedef, ari.KindConst, ari.KindVar,
	ari.KindEDD, ari.KindCtrl, ari.KindOper, ari.KindSBR, ari.KindTBR,
}

// Resolve looks up an object path's namespace and descriptor, without
// binding actual parameters. It returns refdaerr.DerefNotFound /
// DerefWrongType wrapped errors on failure.
func (s *Store) Resolve(path ari.ObjectPath) (ResolveResult, error) {
	ns, ok := s.FindNamespace(path.Org, path.Model)
	if !ok {
		return ResolveResult{}, derefNotFound(path)
	}

	var desc *Descriptor
	var found bool
	if path.Object.IsName {
		desc, found = ns.FindObjectByName(path.Type, path.Object.Name)
	} else {
		desc, found = ns.FindObjectByEnum(path.Type, path.Object.Enum)
	}
	if found {
		return ResolveResult{Namespace: ns, Kind: path.Type, Desc: desc}, nil
	}

	for _, k := range objectKinds {
		if k == path.Type {
			continue
		}
		if path.Object.IsName {
			_, ok = ns.FindObjectByName(k, path.Object.Name)
		} else {
			_, ok = ns.FindObjectByEnum(k, path.Object.Enum)
		}
		if ok {
			return ResolveResult{}, derefWrongType(path, k)
		}
	}
	return ResolveResult{}, derefNotFound(path)
}
