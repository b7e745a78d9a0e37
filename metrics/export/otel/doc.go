// Package otel bridges sppgcore counters into an OpenTelemetry meter via
// observable instruments that read a fresh snapshot per collection cycle.
package otel
