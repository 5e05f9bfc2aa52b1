/*
Package config loads Driftwatch runtime configuration.

Precedence, lowest to highest: built-in defaults, YAML config file,
DRIFTWATCH_* environment variables. The CLI's only flag selects the config
file path; no flag overrides a loaded value. The static domain list, scan
interval, resolver endpoint,
webhook URL, and storage paths all live here.
*/
package config
