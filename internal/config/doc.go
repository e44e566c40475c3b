// Package config provides configuration structures and utilities for threadcount.
// It defines the run options populated from CLI flags, the per-site scraping
// definitions loaded from the .threadcount YAML file, and the built-in site
// presets.
package config
