// Package version provides version information for the price aggregator.
package version

// Version is the current version of the price aggregator.
const Version = "0.3.1"

// AgentString returns the full agent string with versioning.
// Format: priced/v{version}
func AgentString() string {
	return "priced/v" + Version
}
