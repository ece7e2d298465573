package policy

// BuiltinPolicies returns the policies every engine starts with.
func BuiltinPolicies() []Policy {
	return []Policy{
		functionNamingPolicy(),
		runtimeDeprecationPolicy(),
		triggerSupportPolicy(),
		timerSchedulePolicy(),
		removeProtectionPolicy(),
	}
}

// functionNamingPolicy enforces the FunctionGraph function name format.
func functionNamingPolicy() Policy {
	return Policy{
		Name:        "function-naming",
		Description: "Function names start with a letter and hold at most 60 letters, digits, underscores or hyphens",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "function"},
		Rego: `package froyo.policies.naming

import rego.v1

deny contains violation if {
	name := input.project.function.name
	not regex.match("^[A-Za-z][A-Za-z0-9_-]{0,59}$", name)
	violation := {
		"message": sprintf("Function name '%s' must start with a letter and contain at most 60 letters, digits, underscores or hyphens", [name]),
		"severity": "error",
		"resource": name,
	}
}

deny contains violation if {
	pkg := input.project.function.package
	not regex.match("^[A-Za-z0-9_-]{1,64}$", pkg)
	violation := {
		"message": sprintf("Function package '%s' must contain only letters, digits, underscores or hyphens", [pkg]),
		"severity": "error",
		"resource": input.project.function.name,
	}
}`,
	}
}

// runtimeDeprecationPolicy warns about runtimes FunctionGraph is retiring.
func runtimeDeprecationPolicy() Policy {
	return Policy{
		Name:        "runtime-deprecation",
		Description: "Warns when a function uses a deprecated runtime",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"runtime", "function"},
		Rego: `package froyo.policies.runtime

import rego.v1

deprecated_runtimes := {"Node.js6.10", "Node.js8.10", "Node.js10.16", "Python2.7"}

deny contains violation if {
	runtime := input.project.function.runtime
	runtime in deprecated_runtimes
	violation := {
		"message": sprintf("Runtime %s is deprecated", [runtime]),
		"severity": "warning",
		"resource": input.project.function.name,
	}
}`,
	}
}

// triggerSupportPolicy warns about triggers that will be skipped.
func triggerSupportPolicy() Policy {
	return Policy{
		Name:        "trigger-support",
		Description: "Warns about declared trigger types that cannot be reconciled",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"trigger"},
		Rego: `package froyo.policies.triggers

import rego.v1

supported_types := {"APIG", "DEDICATEDGATEWAY", "OBS", "CTS", "DIS", "TIMER", "LTS", "KAFKA", "SMN"}

deny contains violation if {
	some trigger in input.project.triggers
	not trigger.triggerTypeCode in supported_types
	violation := {
		"message": sprintf("Trigger type %s is not supported and will be skipped", [trigger.triggerTypeCode]),
		"severity": "warning",
		"resource": trigger.triggerTypeCode,
	}
}`,
	}
}

// timerSchedulePolicy rejects rate timers with a malformed schedule.
func timerSchedulePolicy() Policy {
	return Policy{
		Name:        "timer-schedule",
		Description: "Rate timers use a schedule of the form <number><m|h|d>",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"trigger", "timer"},
		Rego: `package froyo.policies.timer

import rego.v1

schedule_type(event) := t if {
	t := event.scheduleType
} else := t if {
	t := event.schedule_type
} else := "Rate"

deny contains violation if {
	some trigger in input.project.triggers
	trigger.triggerTypeCode == "TIMER"
	schedule := trigger.eventData.schedule
	schedule_type(trigger.eventData) == "Rate"
	not regex.match("^[0-9]+[mhd]$", schedule)
	violation := {
		"message": sprintf("Timer schedule '%v' must be a rate such as 3m, 1h or 1d", [schedule]),
		"severity": "error",
		"resource": "TIMER",
	}
}`,
	}
}

// removeProtectionPolicy blocks removal from production.
func removeProtectionPolicy() Policy {
	return Policy{
		Name:        "remove-protection",
		Description: "Prevents removing resources in the production environment",
		Severity:    SeverityCritical,
		Enabled:     true,
		Tags:        []string{"operations", "safety", "production"},
		Rego: `package froyo.policies.operations

import rego.v1

deny contains violation if {
	input.context.operation == "remove"
	input.context.environment == "production"
	not input.context.dry_run
	violation := {
		"message": "Removing resources is not allowed in the production environment",
		"severity": "critical",
		"resource": object.get(input.project, ["function", "name"], ""),
	}
}`,
	}
}
