// Package config loads the record-mapper configuration.
//
// The configuration is a YAML file; every key is optional:
//
//	storage:
//	  driver: pgx
//	  dsn: postgres://localhost/assessments
//	  max_open_conns: 4
//	namespace: clinic
//	mapping: mapping.yaml
//	workers: 8
//	booleans:
//	  true: [ja, j]
//	  false: [nein, n]
//	  null: ["-"]
//	logging:
//	  level: debug
//	  format: json
//
// RECORD_MAPPER_DRIVER, RECORD_MAPPER_DSN, RECORD_MAPPER_WORKERS and
// RECORD_MAPPER_LOG_LEVEL override the file.
package config
