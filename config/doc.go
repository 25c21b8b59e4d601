// Package config provides configuration loading and validation for filedrop.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (FILEDROP_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with FILEDROP_ prefix:
//   - server.port → FILEDROP_SERVER_PORT
//   - database.type → FILEDROP_DATABASE_TYPE
//   - admin.secret → FILEDROP_ADMIN_SECRET
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port and max_upload_size
//   - Service: cleanup_timeout for compensating deletes
//   - Database: type, DSN, table name, and auto_migrate
//   - Storage: blob backend (filesystem or s3) and public base URL
//   - Admin: shared secret authorizing deletes (inline or from a file)
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Database type must be sqlite or postgres
//   - Storage type must be filesystem or s3
//   - Log level must be debug, info, warn, or error
package config
