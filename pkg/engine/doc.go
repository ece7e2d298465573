// Package engine holds the types shared by the froyo-fgs reconcilers: the
// classified error taxonomy, per-resource outcomes and results, and the run
// record persisted by the history store.
//
// # Error Classification
//
// Every fatal error returned by a reconciler is an *EngineError carrying a
// class and a code:
//
//   - CONFIGURATION_ERROR: the declared configuration is invalid. Permanent,
//     raised before any remote call, Details["field"] names the field.
//   - REMOTE_OPERATION_FAILED: a create, update or delete call failed. The
//     class follows the HTTP status (429 throttled, 409 conflict, 5xx or no
//     response transient, otherwise permanent). The transport error is
//     wrapped unchanged and stays reachable through errors.As.
//   - LOOKUP_FAILED: a read failed in strict lookup mode.
//   - POLICY_VIOLATION: a policy denied the project before any remote call.
//
// Helpers such as IsConfigurationError and IsRetryable inspect the chain:
//
//	if engine.IsRemoteOperationError(err) && engine.IsRetryable(err) {
//	    // safe to run the deploy again
//	}
//
// # Outcomes
//
// Reconciliation yields one Result per declared resource. Informational
// outcomes (unchanged, rejected-immutable, skipped, not-found) are not errors.
package engine
