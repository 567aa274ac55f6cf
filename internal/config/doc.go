// Package config loads tickpulse configuration.
//
// Values are resolved in increasing order of precedence:
//
//  1. Default()
//  2. a YAML file named by TICKPULSE_CONFIG, or config.yaml / configs/config.yaml
//  3. TICKPULSE_* environment variables
//
// Environment variable names join the section and field tags:
//
//	TICKPULSE_SERVER_PORT=8080
//	TICKPULSE_DATASET_FILE=data/ticks.csv
//	TICKPULSE_DATASET_TIMEZONE=Asia/Kolkata
//	TICKPULSE_PIPELINE_RSI_PERIOD=14
//	TICKPULSE_TELEMETRY_ENABLE_TRACING=true
//
// A YAML file uses the same sections:
//
//	dataset:
//	  path: data/ticks.csv
//	  default_date: "2023-01-01"
//	pipeline:
//	  volatility_window: 20
//
// Load validates the merged result with go-playground/validator struct tags
// plus a few cross-field rules.
package config
