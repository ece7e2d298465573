package trigger

import (
	"sort"

	"github.com/openfroyo/froyo-fgs/pkg/config"
	"github.com/openfroyo/froyo-fgs/pkg/engine"
	"github.com/openfroyo/froyo-fgs/pkg/fgs"
)

// Project renders a trigger record for display. Only scalar event data
// values are shown.
func Project(rec *fgs.TriggerRecord) engine.Projection {
	if rec == nil {
		return nil
	}

	keys := make([]string, 0, len(rec.EventData))
	for k := range rec.EventData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := make([]engine.Field, 0, len(keys))
	for _, k := range keys {
		if s, ok := config.Scalar(rec.EventData[k]); ok {
			data = append(data, engine.Field{Label: k, Value: s})
		}
	}

	return engine.Projection{
		{
			Header: "Trigger",
			Fields: []engine.Field{
				{Label: "TriggerId", Value: rec.TriggerID},
				{Label: "TriggerTypeCode", Value: rec.TriggerTypeCode},
				{Label: "TriggerStatus", Value: rec.TriggerStatus},
			},
		},
		{Header: "Trigger event data", Fields: data},
	}
}
