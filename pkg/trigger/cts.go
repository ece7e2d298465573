package trigger

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openfroyo/froyo-fgs/pkg/config"
)

type ctsAdapter struct {
	base
	rules map[string][][]string
}

func newCTS(spec config.TriggerSpec, functionURN string) Adapter {
	a := &ctsAdapter{base: newBase(spec, functionURN)}

	d := a.declared
	operations, _ := d.Strings("operations")
	p := payload{
		"name": stringOr(d, "name", "cts_"+randomSuffix(6)),
	}
	if operations != nil {
		p["operations"] = operations
	}
	a.data = p
	a.rules = parseOperationRules(operations)
	return a
}

// parseOperationRules turns "type:a;b:c" rules into type -> [[a b] [c]].
// A later rule for the same type replaces an earlier one.
func parseOperationRules(operations []string) map[string][][]string {
	rules := make(map[string][][]string, len(operations))
	for _, op := range operations {
		segments := strings.Split(op, ":")
		lists := make([][]string, 0, len(segments)-1)
		for _, seg := range segments[1:] {
			lists = append(lists, strings.Split(seg, ";"))
		}
		rules[segments[0]] = lists
	}
	return rules
}

func (a *ctsAdapter) Equivalent(remote map[string]any) bool {
	if remote == nil || !sameField(a.data, remote, "name") {
		return false
	}
	for _, op := range stringList(remote, "operations") {
		if a.matchesOperation(op) {
			return true
		}
	}
	return false
}

// matchesOperation checks one remote operation against the declared rule
// for its type. Every declared segment must share a token with the remote
// segment at the same position.
func (a *ctsAdapter) matchesOperation(op string) bool {
	segments := strings.Split(op, ":")
	lists, ok := a.rules[segments[0]]
	if !ok || len(lists) == 0 {
		return false
	}
	for i, declared := range lists {
		if i+1 >= len(segments) {
			return false
		}
		remoteTokens := mapset.NewSet(strings.Split(segments[i+1], ";")...)
		if remoteTokens.Intersect(mapset.NewSet(declared...)).Cardinality() == 0 {
			return false
		}
	}
	return true
}
