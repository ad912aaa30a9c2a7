package lambdatrace

const (
	major = "1"
	minor = "2"
	patch = "0"

	// Version is the full string version of this agent.
	Version = major + "." + minor + "." + patch
)
