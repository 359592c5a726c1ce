// Package destination resolves named destinations through the destination
// service.
//
// Resolution takes two hops. The shared Service first obtains its own
// client-credentials token; that token only authorizes lookup calls. A
// Binding then looks up one destination name and receives the origin and a
// separate bearer token to use against the backend. The two tokens are never
// interchangeable.
//
// Every Binding waits for the Service's initial authorization before its
// first lookup.
package destination
