// Package camera defines the closed registry of supported camera models and
// the parameter validation applied before any extraction or import job runs.
//
// Each model carries a stable numeric ID, a parameter arity, and the focal
// positions used for range checks. Lookups are by canonical upper-case name.
// Registry contents are fixed at compile time; downstream code must treat the
// set as closed and reject unknown names before constructing workers.
package camera
