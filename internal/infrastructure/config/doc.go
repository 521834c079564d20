// Package config handles loading and validating lab panel configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (LABPANEL_*)
//   - Validation of required fields
//   - Default value handling, including per-lock defaults
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - Door credentials should be stored as Argon2id hashes (password_hash)
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
