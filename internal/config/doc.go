// Package config loads tokenrelay's YAML configuration.
//
// A single config.yaml is read from the configuration directory
// (~/.config/tokenrelay by default, or --config-path) and decoded over the
// defaults returned by GetDefaultConfig, so a file only needs to list what it
// changes. Durations use Go syntax ("15s", "2m").
//
// Example:
//
//	authorizationCodePath: /oauth/code
//	timeouts:
//	  token: 15s
//	  upstream: 60s
//	catalog:
//	  envFile: .env
//	routes:
//	  - path: /sap/opu/odata
//	    service: com.example.orders
//	    endpoint: api
//	  - path: /northwind
//	    pathPrefix: /V2/Northwind
//	    destination: NORTHWIND
//	  - path: /userapi
//	    destination: USER_API
//	    grantType: authorizationCode
//
// Validate rejects settings that break the whole process (bad port, unknown
// grant type, relative callback path). Incomplete routes are left for the
// route registry, which skips them one by one.
package config
