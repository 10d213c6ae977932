/*
Package config holds the scan's tunables and their defaults, optionally
overridden from a YAML config file. Precedence is strictly defaults <
config file < command-line flags; the file decoder rejects unknown keys so
misspelled tunables fail loudly instead of silently scanning with stock
values.
*/
package config
