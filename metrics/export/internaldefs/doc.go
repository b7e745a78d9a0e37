// Package internaldefs holds the shared metric name table used by the
// Prometheus and OTel exporters. It exists so the two exporters cannot
// drift on names or bucket bounds.
package internaldefs
