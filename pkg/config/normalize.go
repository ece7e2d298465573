package config

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
)

// DefaultFunctionSpec returns the values applied to unset function fields.
func DefaultFunctionSpec() FunctionSpec {
	return FunctionSpec{
		Package:    "default",
		Handler:    "index.handler",
		MemorySize: 128,
		Timeout:    30,
		CodeType:   CodeTypeInline,
	}
}

// ApplyFunctionDefaults fills zero-valued fields of spec from DefaultFunctionSpec.
func ApplyFunctionDefaults(spec *FunctionSpec) error {
	if spec == nil {
		return nil
	}
	if err := mergo.Merge(spec, DefaultFunctionSpec()); err != nil {
		return fmt.Errorf("failed to apply function defaults: %w", err)
	}
	return nil
}

// NormalizeProject builds a Project from a decoded configuration document.
// Region and project id fall back to the values in env when the document
// leaves them out.
func NormalizeProject(doc Bag, env Environment) (*Project, error) {
	p := &Project{
		Region:    doc.StringOr("region", env.Region),
		ProjectID: doc.StringOr("projectId", env.ProjectID),
	}
	if p.Region == "" {
		p.Region = DefaultRegion
	}

	if fn, ok := doc.Map("function"); ok {
		spec, err := NormalizeFunction(fn)
		if err != nil {
			return nil, err
		}
		p.Function = spec
	}

	if triggers, ok := doc.Bags("triggers"); ok {
		for _, t := range triggers {
			p.Triggers = append(p.Triggers, NormalizeTrigger(t))
		}
	}

	return p, nil
}

// NormalizeFunction builds a FunctionSpec from a declared function block and
// applies defaults. Both naming conventions are accepted for every key, and
// functionName is accepted for name.
func NormalizeFunction(b Bag) (*FunctionSpec, error) {
	spec := &FunctionSpec{
		Name:                b.StringOr("name", b.StringOr("functionName", "")),
		Package:             b.StringOr("package", ""),
		Runtime:             b.StringOr("runtime", ""),
		Handler:             b.StringOr("handler", ""),
		CodeType:            NormalizeCodeType(b.StringOr("codeType", "")),
		CodeURL:             b.StringOr("codeUrl", ""),
		CodeFilename:        b.StringOr("codeFilename", ""),
		Description:         b.StringOr("description", ""),
		Xrole:               b.StringOr("xrole", ""),
		AppXrole:            b.StringOr("appXrole", ""),
		AgencyName:          b.StringOr("agencyName", ""),
		VpcID:               b.StringOr("vpcId", ""),
		SubnetID:            b.StringOr("subnetId", ""),
		LogGroupID:          b.StringOr("ltsGroupId", ""),
		LogStreamID:         b.StringOr("ltsStreamId", ""),
		LogGroupName:        b.StringOr("ltsGroupName", ""),
		LogStreamName:       b.StringOr("ltsStreamName", ""),
		InitializerHandler:  b.StringOr("initializerHandler", ""),
		EnterpriseProjectID: b.StringOr("enterpriseProjectId", ""),
		URN:                 b.StringOr("urn", ""),
	}

	spec.MemorySize, _ = b.Int("memorySize")
	spec.Timeout, _ = b.Int("timeout")
	spec.InitializerTimeout, _ = b.Int("initializerTimeout")
	spec.EnableDynamicMemory, _ = b.Bool("enableDynamicMemory")
	spec.DependVersionList, _ = b.Strings("dependVersionList")

	// concurreny is the spelling used by older configuration files.
	if n, ok := b.Int("concurrency"); ok {
		spec.Concurrency = n
	} else if n, ok := b.Int("concurreny"); ok {
		spec.Concurrency = n
	}
	spec.ConcurrentNum, _ = b.Int("concurrentNum")

	spec.Environment, _ = b.StringMap("environment")
	spec.UserData, _ = b.StringMap("userData")
	spec.EncryptedUserData, _ = b.StringMap("encryptedUserData")

	if code, ok := b.Map("code"); ok {
		spec.CodeURI = code.StringOr("codeUri", "")
	}

	if vpc, ok := b.Map("funcVpc"); ok {
		spec.FuncVpc = &VPCConfig{
			VpcName:    vpc.StringOr("vpcName", ""),
			VpcID:      vpc.StringOr("vpcId", ""),
			SubnetName: vpc.StringOr("subnetName", ""),
			SubnetID:   vpc.StringOr("subnetId", ""),
			Cidr:       vpc.StringOr("cidr", ""),
			Gateway:    vpc.StringOr("gateway", ""),
		}
	}

	if err := ApplyFunctionDefaults(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// NormalizeTrigger builds a TriggerSpec from a declared trigger block.
func NormalizeTrigger(b Bag) TriggerSpec {
	t := TriggerSpec{
		TypeCode:  strings.ToUpper(strings.TrimSpace(b.StringOr("triggerTypeCode", b.StringOr("type", "")))),
		Status:    strings.ToUpper(strings.TrimSpace(b.StringOr("status", ""))),
		TriggerID: strings.TrimSpace(b.StringOr("triggerId", "")),
	}
	if data, ok := b.Map("eventData"); ok {
		t.EventData = data
	} else {
		t.EventData = Bag{}
	}
	return t
}

// NormalizeCodeType lower-cases s and maps the object-storage alias to obs.
func NormalizeCodeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "object-storage" {
		return CodeTypeOBS
	}
	return s
}
