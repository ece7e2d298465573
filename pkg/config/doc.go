// Package config loads and normalizes declared froyo-fgs projects.
//
// # Project Files
//
// A project file declares one function and its triggers. YAML, JSON and CUE
// are accepted and decode to the same document:
//
//	region: cn-north-4
//	projectId: 0a1b2c3d
//	function:
//	  name: hello
//	  runtime: Node.js14.18
//	  handler: index.handler
//	  codeType: obs
//	  codeUrl: https://bucket.obs.cn-north-4.myhuaweicloud.com/hello.zip
//	  code:
//	    codeUri: ./dist/hello.zip
//	triggers:
//	  - triggerTypeCode: TIMER
//	    status: ACTIVE
//	    eventData:
//	      name: every-five
//	      schedule: 5m
//
// Every key may be written in camelCase or snake_case. Bag.Lookup tries the
// camelCase spelling first and then falls back to CamelToSnake(key).
//
// # Normalization
//
// NormalizeProject turns the decoded document into typed specs in one pass.
// Unset function fields are filled from DefaultFunctionSpec with mergo, and
// the code type alias "object-storage" becomes "obs". Trigger event data is
// kept as a Bag; each trigger kind reads the keys it understands.
//
// # Validation
//
// The decoded document is first checked against a CUE schema that pins its
// shape. ValidateStruct then runs the validate struct tags and reports the
// first failing field as a CONFIGURATION_ERROR carrying the field path.
//
// # Watching
//
// Watch re-runs a callback whenever the project file changes, debounced the
// same way policy reloads are.
package config
