// Package twentemilieu implements a waste pickup sensor service for the
// Twentemilieu collection area.
//
// # Architecture
//
// The service is structured into several key packages:
//   - wasteapi: client for the 2GO waste API and the throttled schedule reader
//   - sensor: schedule-to-display-state mapping, one sensor per resource
//   - server: HTTP surface exposing sensors as entities
//   - scheduler: background sensor updates
//   - config: file and environment configuration
//
// Key Features
//
//   - Daily Refresh:
//     The schedule for the configured address is fetched at most once per
//     calendar day and cached in memory; all sensor reads are answered from
//     the cached snapshot.
//
//   - Sensor Queries:
//     Supports per-type "next pickup" sensors plus today/tomorrow variants
//     that report which type is collected on that day.
//
//   - Observability:
//     Prometheus metrics for upstream API calls and the HTTP surface, with
//     structured JSON logging.
//
// Example Usage
//
//	client, _ := wasteapi.NewClient(wasteapi.DefaultClientConfig(), logger)
//	reader := wasteapi.NewReader(client, "7545AA", "12", logger)
//	sensors := sensor.ForResources(reader, []string{"GREY", "TODAY"}, logger)
//
// For more information about specific packages, see their respective
// documentation.
package twentemilieu
