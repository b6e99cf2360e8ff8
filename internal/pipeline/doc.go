// Package pipeline loads CSV exports into the database.
//
// Each data row of the CSV becomes one input row keyed by the header. Rows
// are read in batches; a batch is ingested concurrently with
// ingest.Engine.IngestMany and its present records are saved in one store
// session, so a batch is committed or rolled back as a whole.
//
// A run is identified by a random UUID and reports a Summary. Metrics are
// registered on the prometheus.Registerer given to NewMetrics.
package pipeline
