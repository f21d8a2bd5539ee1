// Package cli implements the mcpchat command line.
//
// Every command resolves its configuration from defaults, config files,
// MCPCHAT_* environment variables and the global flags, in increasing order
// of precedence, then talks to the backend over one rpc.Client.
package cli
