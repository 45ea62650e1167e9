// Package config loads hookstore.yaml, the configuration of the hookstore
// command.
//
// Example configuration:
//
//	registry:
//	  policy: strict          # or "override"
//	  max_update_depth: 64    # 0 disables the limit
//
//	devtools:
//	  host: localhost
//	  port: 7070
//	  read_only: false
//	  allowed_origins: ["http://localhost:3000"]
//	  ping_interval: 30s
//
//	log:
//	  level: info             # debug, info, warn, error
//	  format: text            # or "json"
//
//	metrics:
//	  enabled: true
//	  namespace: hookstore
//
//	tracing:
//	  enabled: false
//	  tracer_name: hookstore
//
//	demo: true                # register the example stores
//
// Missing fields take the defaults returned by New.
package config
