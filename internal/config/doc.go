// Package config holds the run configuration for pausescan.
//
// A Config is filled from positional arguments and cobra flags, merged with
// the optional .pausescan YAML file, and validated once before any request
// is sent.
package config
