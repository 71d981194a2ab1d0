// Package config provides configuration structures and utilities for roadworks.
// It defines the filesystem layout, the listing page location, HTTP settings
// for downloads and report generation preferences for both pipeline stages.
package config
