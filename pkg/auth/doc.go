// Package auth contains the wire types of the route status listing.
package auth
