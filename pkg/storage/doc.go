// Package storage uploads local function artifacts to OBS before a function
// with code type obs is created or updated.
package storage
