// Package function validates a declared FunctionGraph function and converges
// the platform onto it: create when absent, update when present.
package function
