// Package cli provides common CLI utilities for arsdkctl command-line tools.
//
// This package includes:
//   - Configuration management (contexts, profiles)
//   - Output formatting (JSON, YAML, raw; the table format is rejected by Output)
//   - Request file loading (YAML/JSON)
//   - Common flags and options
//
// Configuration is stored in ~/.arsdkctl/<app>/ directory, supporting
// multiple contexts similar to kubectl.
//
// Example usage:
//
//	// Initialize config for your app
//	cfg, err := cli.LoadConfig("arsdkctl")
//
//	// Get current context
//	ctx, err := cfg.GetCurrentContext()
//
//	// Output result
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
package cli
