package trigger

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openfroyo/froyo-fgs/pkg/config"
)

// Event namespaces compared when matching OBS triggers.
const (
	obsObjectCreated = "s3:ObjectCreated"
	obsObjectRemoved = "s3:ObjectRemoved"
)

type obsAdapter struct {
	base
}

func newOBS(spec config.TriggerSpec, functionURN string) Adapter {
	a := &obsAdapter{base: newBase(spec, functionURN)}
	a.status = config.StatusActive

	d := a.declared
	events, _ := d.Strings("events")
	p := payload{
		"name":   stringOr(d, "name", "obs-event-"+randomSuffix(6)),
		"prefix": value(d, "prefix"),
		"suffix": value(d, "suffix"),
	}
	p.set("bucket", value(d, "bucket"))
	if events != nil {
		p["events"] = events
	}
	a.data = p
	return a
}

func (a *obsAdapter) Equivalent(remote map[string]any) bool {
	if remote == nil || !sameField(a.data, remote, "bucket") {
		return false
	}
	declared, _ := config.Bag(a.data).Strings("events")
	return eventsOverlap(stringList(remote, "events"), declared)
}

// eventsOverlap reports whether two OBS event lists share object-created or
// object-removed events.
func eventsOverlap(remote, declared []string) bool {
	return eventsOverlapFor(remote, declared, obsObjectCreated) ||
		eventsOverlapFor(remote, declared, obsObjectRemoved)
}

// eventsOverlapFor is true when one list holds "<key>:*" and the other any
// event under key, or when the lists share a literal event.
func eventsOverlapFor(remote, declared []string, key string) bool {
	r := mapset.NewSet(remote...)
	d := mapset.NewSet(declared...)
	wildcard := key + ":*"

	if r.Contains(wildcard) && hasPrefix(declared, key) {
		return true
	}
	if d.Contains(wildcard) && hasPrefix(remote, key) {
		return true
	}
	return r.Intersect(d).Cardinality() > 0
}

func hasPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
