package trigger

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openfroyo/froyo-fgs/pkg/config"
)

const (
	defaultDISShardIterator = "TRIM_HORIZON"
	defaultDISPollInterval  = 30
	defaultDISPollUnit      = "s"
	defaultDISMaxFetchBytes = 1048576
	defaultKafkaBatchSize   = 100
)

type disAdapter struct {
	base
}

func newDIS(spec config.TriggerSpec, functionURN string) Adapter {
	a := &disAdapter{base: newBase(spec, functionURN)}

	d := a.declared
	p := payload{
		"sharditerator_type": stringOr(d, "sharditeratorType", defaultDISShardIterator),
		"polling_interval":   valueOr(d, "pollingInterval", defaultDISPollInterval),
		"polling_unit":       stringOr(d, "pollingUnit", defaultDISPollUnit),
		"is_serial":          valueOr(d, "isSerial", true),
		"max_fetch_bytes":    valueOr(d, "maxFetchBytes", defaultDISMaxFetchBytes),
	}
	p.set("stream_name", value(d, "streamName"))
	p.set("batch_size", value(d, "batchSize"))
	a.data = p
	return a
}

func (a *disAdapter) Equivalent(remote map[string]any) bool {
	return remote != nil &&
		sameField(a.data, remote, "stream_name") &&
		sameField(a.data, remote, "sharditerator_type")
}

type kafkaAdapter struct {
	base
	topics []string
}

func newKafka(spec config.TriggerSpec, functionURN string) Adapter {
	a := &kafkaAdapter{base: newBase(spec, functionURN)}

	d := a.declared
	batch, ok := d.Int("batchSize")
	if !ok || batch == 0 {
		batch = defaultKafkaBatchSize
	}
	a.topics, _ = d.Strings("topicIds")

	p := payload{"batch_size": batch}
	p.set("instance_id", value(d, "instanceId"))
	if a.topics != nil {
		p["topic_ids"] = a.topics
	}
	p.set("kafka_user", value(d, "kafkaUser"))
	p.set("kafka_password", value(d, "kafkaPassword"))
	a.data = p
	return a
}

// Equivalent matches on the instance and at least one shared topic.
func (a *kafkaAdapter) Equivalent(remote map[string]any) bool {
	if remote == nil || !sameField(a.data, remote, "instance_id") {
		return false
	}
	remoteTopics := mapset.NewSet(stringList(remote, "topic_ids")...)
	return remoteTopics.Intersect(mapset.NewSet(a.topics...)).Cardinality() > 0
}

type ltsAdapter struct {
	base
}

func newLTS(spec config.TriggerSpec, functionURN string) Adapter {
	a := &ltsAdapter{base: newBase(spec, functionURN)}
	p := payload{}
	p.set("log_group_id", value(a.declared, "logGroupId"))
	p.set("log_topic_id", value(a.declared, "logTopicId"))
	a.data = p
	return a
}

func (a *ltsAdapter) Equivalent(remote map[string]any) bool {
	return remote != nil &&
		sameField(a.data, remote, "log_group_id") &&
		sameField(a.data, remote, "log_topic_id")
}

type smnAdapter struct {
	base
}

func newSMN(spec config.TriggerSpec, functionURN string) Adapter {
	a := &smnAdapter{base: newBase(spec, functionURN)}
	p := payload{}
	p.set("topic_urn", value(a.declared, "topicUrn"))
	a.data = p
	return a
}

func (a *smnAdapter) Equivalent(remote map[string]any) bool {
	return remote != nil && sameField(a.data, remote, "topic_urn")
}
