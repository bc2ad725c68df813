// Package metrics exposes processing statistics in the Prometheus format and
// reads them back.
//
// Collector implements pipeline.Observer and records, per finished report,
// the run count, the issue kinds found, the number of affected samples and
// the series size. Handler serves the collector's private registry.
//
// Scrape fetches a text exposition from a running `rcsclean serve` and
// condenses the rcsclean_* families into a Summary for the `stats` command.
package metrics
