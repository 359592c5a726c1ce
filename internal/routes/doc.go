// Package routes builds the route table from configuration and the service
// catalog and starts the initial authorization of every route.
//
// Each route has exactly one Source: a ServiceSource for routes bound to a
// service by name, or a destination.Binding for routes resolved through the
// destination service. Routes using the authorization-code grant are manual
// and wait for a code on the callback endpoint.
package routes
