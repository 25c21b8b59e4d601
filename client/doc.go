// Package client provides a Go client for the filedrop HTTP API.
//
// A Client is built from a Config, which is usually resolved from a
// profile in the config file (~/.filedrop/config.yaml by default),
// environment variables, or command-line flags. MergeConfig combines
// those sources with later values winning:
//
//	profile, _ := cfgFile.GetProfile(name)
//	cfg := client.MergeConfig(client.ConfigFromProfile(profile), client.ConfigFromEnv(), flagCfg)
//	c, err := client.New(cfg)
//
// Environment variables:
//
//	FILEDROP_ENDPOINT     server endpoint URL
//	FILEDROP_ADMIN_SECRET admin secret used for delete operations
//	FILEDROP_PROFILE      profile name to use
//	FILEDROP_CONFIG       path to the client config file
//
// Server errors are returned as *APIError carrying the HTTP status and
// the server's error code and message.
package client
