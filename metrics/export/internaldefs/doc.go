// Package internaldefs holds the metric name and bucket definitions shared
// by the exporter implementations.
//
// Counter and histogram definitions live here so the Prometheus and OTel
// exporters always agree on names and boundaries. A change in this package
// affects every exporter at once.
package internaldefs
