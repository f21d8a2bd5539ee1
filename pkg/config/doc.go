// Package config resolves the chat client configuration: the backend mode,
// the endpoints it selects, transport and timing settings, and logging.
//
// Values come from several sources with the following precedence:
//
//  1. Command-line flags (highest priority)
//  2. Environment variables (MCPCHAT_*)
//  3. Local config file (.mcpchat.yaml in the current directory)
//  4. Global config file ($XDG_CONFIG_HOME/mcpchat/config.yaml)
//  5. Default values (lowest priority)
//
// Config.Sources records which source set each value.
//
// The backend mode selects the endpoints:
//
//	local    ws://localhost:3003           fallback http://localhost:3005
//	cloud    wss://your-cloud-server.com   fallback https://your-cloud-server.com
//	other    same as local, mode string preserved
package config
