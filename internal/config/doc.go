// Package config builds the runtime configuration of the fetch pipeline.
//
// Values are resolved in three layers, later layers winning:
//
//  1. built-in defaults (LoadDefaults);
//  2. an optional config file named by -c / -config (JSON, or YAML when the
//     file ends in .yaml or .yml);
//  3. command-line flags.
//
// The result is validated before it is handed to the application.
package config
