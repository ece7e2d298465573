package trigger

import (
	"fmt"
	"strings"

	"github.com/openfroyo/froyo-fgs/pkg/config"
)

const (
	defaultAPIGEnvName   = "RELEASE"
	defaultAPIGEnvID     = "DEFAULT_ENVIRONMENT_RELEASE_ID"
	defaultAPIGTimeoutMs = 5000
)

type apigAdapter struct {
	base
	dedicated bool
}

func newAPIG(spec config.TriggerSpec, functionURN string) Adapter {
	a := &apigAdapter{base: newBase(spec, functionURN)}
	a.status = config.StatusActive
	a.data = apigEventData(a.declared, functionURN)
	return a
}

func newDedicatedGateway(spec config.TriggerSpec, functionURN string) Adapter {
	a := newAPIG(spec, functionURN).(*apigAdapter)
	a.dedicated = true
	return a
}

// apigEventData fills gateway defaults from the function URN
// urn:fss:<region>:<project>:function:<package>:<name>:<version>.
func apigEventData(d config.Bag, functionURN string) map[string]any {
	urn := strings.Split(functionURN, ":")
	var region, functionName string
	if len(urn) > 6 {
		region, functionName = urn[2], urn[6]
	}

	groupID := value(d, "groupId")
	groupText, _ := config.Scalar(groupID)

	path, _ := d.String("path")
	if !strings.HasPrefix(path, "/") {
		if path == "" {
			path = functionName
		}
		path = "/" + path
	}

	p := payload{
		"name":         stringOr(d, "name", strings.ReplaceAll(functionName, "-", "_")),
		"env_name":     stringOr(d, "envName", defaultAPIGEnvName),
		"env_id":       stringOr(d, "envId", defaultAPIGEnvID),
		"protocol":     strings.ToUpper(stringOr(d, "protocol", "HTTPS")),
		"sl_domain":    stringOr(d, "slDomain", fmt.Sprintf("%s.apig.%s.huaweicloudapis.com", groupText, region)),
		"match_mode":   strings.ToUpper(stringOr(d, "matchMode", "SWA")),
		"req_method":   strings.ToUpper(stringOr(d, "reqMethod", "GET")),
		"auth":         strings.ToUpper(stringOr(d, "auth", "IAM")),
		"backend_type": "FUNCTION",
		"type":         1,
		"path":         path,
		"function_info": map[string]any{
			"timeout": valueOr(d, "timeout", defaultAPIGTimeoutMs),
		},
	}
	p.set("group_id", groupID)
	p.set("instance_id", value(d, "instanceId"))
	return p
}

func (a *apigAdapter) Equivalent(remote map[string]any) bool {
	if remote == nil {
		return false
	}
	keys := []string{"name", "group_id", "env_id"}
	if a.dedicated {
		keys = append(keys, "instance_id", "path")
	}
	for _, k := range keys {
		if !sameField(a.data, remote, k) {
			return false
		}
	}
	return true
}
