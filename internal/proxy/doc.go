// Package proxy forwards matched requests to their backend.
//
// For each request the Dispatcher picks the first route whose path prefixes
// the request path, rewrites the prefix, attaches the route's bearer header
// and streams the exchange through httputil.ReverseProxy. Requests that no
// route matches fall through to the next handler.
//
// Prefixes are compared on the decoded path, so /%61pi/orders is matched and
// rewritten like /api/orders.
//
// Inbound headers are forwarded except Host, which becomes the target's, and
// the hop-by-hop headers httputil.ReverseProxy always removes: Connection,
// Proxy-Connection, Keep-Alive, Proxy-Authenticate, Proxy-Authorization, TE,
// Trailer, Transfer-Encoding and Upgrade (Upgrade survives for protocol
// switches). Authorization is replaced with the route's token.
package proxy
