// Package trigger reconciles declared FunctionGraph triggers.
//
// Each trigger kind has an Adapter that turns the declared event data into
// the platform's wire shape and decides whether an existing remote trigger
// already satisfies the declaration. The Reconciler lists the function's
// triggers, picks the first equivalent one of the same kind, and then
// creates, updates the status of, or leaves the trigger alone.
//
// Only TIMER, DDS, KAFKA, LTS and DIS triggers accept a status update. For
// other kinds a status difference is reported as rejected-immutable and no
// call is made.
package trigger
