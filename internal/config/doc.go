// Package config loads, normalizes, and validates mediajob configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIAJOB_SECRET. The Config type centralizes every knob the CLI and the
// default collaborators need: the job signing secret, content temp files,
// the datastore backend, URL fetching limits, the output cache and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
