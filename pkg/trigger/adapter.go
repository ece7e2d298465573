package trigger

import (
	"sort"
	"strings"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
)

// Trigger kinds with an adapter. DDS is listed for editability only.
const (
	KindAPIG             = "APIG"
	KindDedicatedGateway = "DEDICATEDGATEWAY"
	KindOBS              = "OBS"
	KindCTS              = "CTS"
	KindDIS              = "DIS"
	KindTimer            = "TIMER"
	KindLTS              = "LTS"
	KindKafka            = "KAFKA"
	KindSMN              = "SMN"
	KindDDS              = "DDS"
)

// Adapter is the per-kind strategy for one declared trigger. EventData is
// computed once when the adapter is built, so every call on the same
// adapter sees the same randomized defaults.
type Adapter interface {
	// Kind returns the upper-cased trigger type code.
	Kind() string

	// Status returns the status the trigger should have on the platform.
	Status() string

	// EventData returns the canonical wire payload.
	EventData() map[string]any

	// Equivalent reports whether a remote trigger's event data already
	// satisfies the declaration. It is not structural equality.
	Equivalent(remote map[string]any) bool

	CreateRequest() *fgs.CreateTriggerRequest
	UpdateRequest(triggerID string) *fgs.UpdateTriggerRequest
	DeleteRequest(triggerID string) *fgs.DeleteTriggerRequest
}

type constructor func(spec config.TriggerSpec, functionURN string) Adapter

var adapters = map[string]constructor{
	KindAPIG:             newAPIG,
	KindDedicatedGateway: newDedicatedGateway,
	KindOBS:              newOBS,
	KindCTS:              newCTS,
	KindDIS:              newDIS,
	KindTimer:            newTimer,
	KindLTS:              newLTS,
	KindKafka:            newKafka,
	KindSMN:              newSMN,
}

var editable = map[string]bool{
	KindTimer: true,
	KindDDS:   true,
	KindKafka: true,
	KindLTS:   true,
	KindDIS:   true,
}

// New builds the adapter for spec. It returns false when the kind has no
// adapter.
func New(spec config.TriggerSpec, functionURN string) (Adapter, bool) {
	ctor, ok := adapters[spec.Kind()]
	if !ok {
		return nil, false
	}
	return ctor(spec, functionURN), true
}

// Supported returns the kinds that have an adapter, sorted.
func Supported() []string {
	kinds := make([]string, 0, len(adapters))
	for k := range adapters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// matchedByName lists kinds whose remote record is found by event name.
var matchedByName = map[string]bool{
	KindTimer: true,
	KindCTS:   true,
}

// Unnamed reports whether spec is of a kind matched by name but declares no
// name. Such a trigger gets a new random name on every deploy, so it is
// created again instead of being found.
func Unnamed(spec config.TriggerSpec) bool {
	if !matchedByName[spec.Kind()] {
		return false
	}
	name, _ := spec.EventData.String("name")
	return strings.TrimSpace(name) == ""
}

// Editable reports whether kind supports an in-place status update.
func Editable(kind string) bool {
	return editable[strings.ToUpper(kind)]
}

// base carries what every adapter shares. Concrete adapters embed it and
// fill data in their constructor.
type base struct {
	kind        string
	status      string
	functionURN string
	declared    config.Bag
	data        map[string]any
}

func newBase(spec config.TriggerSpec, functionURN string) base {
	declared := spec.EventData
	if declared == nil {
		declared = config.Bag{}
	}
	return base{
		kind:        spec.Kind(),
		status:      spec.EffectiveStatus(),
		functionURN: functionURN,
		declared:    declared,
	}
}

func (b *base) Kind() string { return b.kind }

func (b *base) Status() string { return b.status }

func (b *base) EventData() map[string]any { return b.data }

func (b *base) CreateRequest() *fgs.CreateTriggerRequest {
	return &fgs.CreateTriggerRequest{
		TriggerTypeCode: b.kind,
		TriggerStatus:   b.status,
		EventTypeCode:   b.kind,
		EventData:       b.data,
	}
}

func (b *base) UpdateRequest(triggerID string) *fgs.UpdateTriggerRequest {
	return &fgs.UpdateTriggerRequest{
		TriggerID:       triggerID,
		TriggerTypeCode: b.kind,
		TriggerStatus:   b.status,
	}
}

func (b *base) DeleteRequest(triggerID string) *fgs.DeleteTriggerRequest {
	return &fgs.DeleteTriggerRequest{
		TriggerID:       triggerID,
		TriggerTypeCode: b.kind,
	}
}

// payload builds canonical event data. Absent values are left out, so the
// wire body matches what a JSON encoder would drop.
type payload map[string]any

func (p payload) set(key string, v any) {
	if v != nil {
		p[key] = v
	}
}

// stringOr returns the declared string under key, or def when the key is
// absent. An explicit empty string is kept.
func stringOr(b config.Bag, key, def string) string {
	if s, ok := b.String(key); ok {
		return s
	}
	return def
}

// valueOr returns the declared value under key, or def when absent.
func valueOr(b config.Bag, key string, def any) any {
	if v, ok := b.Lookup(key); ok {
		return v
	}
	return def
}

func value(b config.Bag, key string) any {
	v, _ := b.Lookup(key)
	return v
}

// sameField reports whether a and b hold the same value under key. Two
// missing values are the same; scalars compare by their text form.
func sameField(a, b map[string]any, key string) bool {
	return sameValue(a[key], b[key])
}

func sameValue(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	xs, xok := config.Scalar(x)
	ys, yok := config.Scalar(y)
	if xok && yok {
		return xs == ys
	}
	return false
}

// stringList reads a list of strings from a remote payload.
func stringList(m map[string]any, key string) []string {
	list, _ := config.Bag(m).Strings(key)
	return list
}
