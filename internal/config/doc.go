// Package config manages the dmxsync settings file.
//
// Settings live in a YAML file in the OS configuration directory:
//   - Linux: $XDG_CONFIG_HOME/dmxsync/config.yaml or $HOME/.config/dmxsync/config.yaml
//   - macOS: $HOME/.config/dmxsync/config.yaml
//   - Windows: %LOCALAPPDATA%\dmxsync\config.yaml
//
// Values are resolved in order: defaults, the file, then DMXSYNC_* environment
// variables. Command-line flags are applied on top by the CLI.
//
// # Security
//
// Redis and MQTT passwords are only read from the environment and are never
// written to the settings file.
//
// # Usage Example
//
//	s, err := config.LoadDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := deviceapi.NewClientWithURL(s.BaseURL())
package config
