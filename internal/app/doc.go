// Package app wires tokenrelay together.
//
// NewApplication performs the bootstrap sequence:
//
//  1. Load config.yaml from the configuration directory
//  2. Initialize logging from logging.level / logging.format (--debug wins)
//  3. Load the service catalog from VCAP_SERVICES, optionally via an env file
//  4. Register Prometheus collectors on a private registry
//  5. Build the route registry, proxy dispatcher, router and HTTP server
//
// Run then starts the initial authorization of every automatic route and
// serves until the context is cancelled or SIGINT/SIGTERM arrives. Check
// authorizes once and reports, for the check command.
package app
