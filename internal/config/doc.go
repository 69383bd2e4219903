// Package config loads settings for the batchdl command.
//
// Values are resolved from, in increasing precedence: built-in defaults,
// an optional YAML config file, BATCHDL_* environment variables and
// command-line flags.
//
// # Config File
//
//	timeout: 30s
//	item_timeout: 10m
//	user_agent: batchdl/1.0
//	atomic: true
//	progress_log: false
//	log_level: info
//	log_format: text
//
// Without an explicit path, batchdl.yaml is looked up in the user config
// directory and then the working directory.
package config
