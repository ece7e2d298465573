// Package policy runs Open Policy Agent (OPA) checks over a normalized
// project before any remote call is made.
//
// Each policy is a Rego module whose deny set holds violations:
//
//	package custom.policies.memory
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.project.function.memorySize > 2048
//	    violation := {
//	        "message": "Functions are limited to 2048 MB",
//	        "severity": "error",
//	        "resource": input.project.function.name,
//	    }
//	}
//
// The input document is {"project": <config.Project>, "context":
// {"operation", "environment", "dry_run", "timestamp"}}. Violations of
// severity error or critical make the result not allowed and Result.Err
// returns a POLICY_VIOLATION error. Info and warning violations are only
// reported.
//
// # Built-in Policies
//
//  1. function-naming - function name and package format
//  2. runtime-deprecation - warns about retired runtimes
//  3. trigger-support - warns about trigger types that will be skipped
//  4. timer-schedule - rate timers need a <number><m|h|d> schedule
//  5. remove-protection - no remove in the production environment
//
// Custom policies are loaded from .rego or .json files and directories with
// Engine.LoadPolicies. Loader.Watch reloads them when the files change.
package policy
