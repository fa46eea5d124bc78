// Package config handles loading and validating afkloop configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (AFKLOOP_*)
//   - Validation of required fields
//   - The stock 1920x1080 coordinate, region and keyword layout
//
// Every recognition region and click target is expressed in client-area
// coordinates. The window section supplies the client origin on screen, and
// the desktop adapter adds it before touching the real display.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Runtime.Role)
package config
