// Package config loads and validates application configuration.
//
// Values come from defaults, an optional YAML file and MODELAPI_ prefixed
// environment variables, in increasing order of precedence. Nested keys map
// to environment variables by replacing dots with underscores, so
// database.url is read from MODELAPI_DATABASE_URL.
package config
