package trigger

import "github.com/openfroyo/froyo-fgs/pkg/config"

const (
	defaultTimerSchedule     = "3m"
	defaultTimerScheduleType = "Rate"
)

type timerAdapter struct {
	base
}

// newTimer builds a TIMER adapter. An unnamed timer gets a random name, so
// it never matches an existing trigger and is created on every run.
func newTimer(spec config.TriggerSpec, functionURN string) Adapter {
	a := &timerAdapter{base: newBase(spec, functionURN)}

	d := a.declared
	p := payload{
		"name":          stringOr(d, "name", "Timer-"+randomSuffix(6)),
		"schedule":      stringOr(d, "schedule", defaultTimerSchedule),
		"schedule_type": stringOr(d, "scheduleType", defaultTimerScheduleType),
	}
	p.set("user_event", value(d, "userEvent"))
	a.data = p
	return a
}

func (a *timerAdapter) Equivalent(remote map[string]any) bool {
	return remote != nil &&
		sameField(a.data, remote, "name") &&
		sameField(a.data, remote, "schedule") &&
		sameField(a.data, remote, "schedule_type")
}
