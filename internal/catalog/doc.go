// Package catalog reads the bound service credentials provided by the
// hosting platform.
//
// The platform publishes bound services as JSON in an environment variable
// (VCAP_SERVICES by default), keyed by service label:
//
//	{
//	  "destination": [{"label": "destination", "credentials": {"clientid": "...", "url": "...", "uri": "..."}}],
//	  "xsuaa": [{"label": "xsuaa", "credentials": {"sap.cloud.service": "orders", "uaa": {...}, "endpoints": {...}}}]
//	}
//
// For local development the variable can come from a dotenv file. An absent
// variable is an empty catalog, never a startup failure.
package catalog
