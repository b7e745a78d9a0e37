// Package metrics holds the process-local counters shared by the sppgcore
// services. Counters are plain atomics on cache-line-padded slots; there is
// no cross-process aggregation: a multi-process deployment reports one
// independent set per process.
package metrics
