// Package registry provides function-table collaborators for jobs.
//
// Processors, Encoders, Generators and Analysers each map a name to a Go
// function and satisfy the matching job interface. Tables are safe for
// concurrent registration and lookup. Calling a name that was never
// registered fails with *UnknownFunctionError, except on an Encoders table
// that has a default encoder.
package registry
