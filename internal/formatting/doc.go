// Package formatting renders route status listings for the CLI.
//
// The check and status commands both produce a []auth.RouteStatus; this
// package turns it into a colored table, JSON or YAML.
package formatting
