package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"filedrop/client"
)

var (
	version = "dev"

	cfgFile     string
	profileName string
	endpoint    string
	adminSecret string
	jsonOutput  bool
)

var rootCmd = &cobra.Command{
	Use:     "filedrop-cli",
	Version: version,
	Short:   "Client for the filedrop file sharing server",
	Long: `filedrop-cli - Client for the filedrop file sharing server

Connection settings come from (lowest to highest precedence):
  1. A profile in the config file (~/.filedrop/config.yaml)
  2. Environment variables (FILEDROP_ENDPOINT, FILEDROP_ADMIN_SECRET)
  3. Flags (--endpoint, --admin-secret)

Use 'filedrop-cli configure add <name>' to create a profile.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.filedrop/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "profile name (env: FILEDROP_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server endpoint (default: http://localhost:8080, env: FILEDROP_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "admin-secret", "", "admin secret for delete (env: FILEDROP_ADMIN_SECRET)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(shareTextCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(starCmd)
	rootCmd.AddCommand(unstarCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// getConfigPath returns the config file path, honoring the flag and env var.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := client.ConfigPathFromEnv(); path != "" {
		return path
	}
	return client.DefaultConfigPath()
}

// buildConfig merges config from the profile, env vars, and flags
// (flags take precedence).
func buildConfig() (*client.Config, error) {
	var configs []*client.Config

	name := profileName
	if name == "" {
		name = client.ProfileFromEnv()
	}

	configPath := getConfigPath()
	if configPath != "" {
		cfg, err := client.LoadConfigFile(configPath)
		switch {
		case err == nil:
			p, profileErr := cfg.GetProfile(name)
			if profileErr != nil {
				// A missing explicit profile is an error; an empty
				// config file just means no profile contributes.
				if name != "" || !errors.Is(profileErr, client.ErrNoProfiles) {
					return nil, profileErr
				}
			} else {
				configs = append(configs, client.ConfigFromProfile(p))
			}
		case cfgFile != "":
			// Only fail when the user pointed at the file explicitly.
			return nil, err
		}
	}

	configs = append(configs, client.ConfigFromEnv())
	configs = append(configs, &client.Config{
		Endpoint:    endpoint,
		AdminSecret: adminSecret,
	})

	return client.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() client.Formatter {
	return client.NewFormatter(jsonOutput)
}

// getClient creates and returns a configured client.
func getClient() (*client.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg)
}
