// Package config holds runtime-wide constants and the loadable configuration
// for the dmrt host (stack limits, bridge addresses).
package config

// Version is the current dmrt runtime version.
var Version = "0.1.0"

// Identifier names with special semantics, per the bytecode/identifier spec.
const (
	SrcName     = "src"
	UsrName     = "usr"
	ArgsName    = "args"
	SuperName   = ".."
	InitialName = "initial"
	IssavedName = "issaved"
)

// Built-in type paths with special I/O/containment semantics.
const (
	AtomTypePath   = "/atom"
	MobTypePath    = "/mob"
	WorldTypePath  = "/world"
	ClientTypePath = "/client"
)

// Default runtime limits, overridable via RuntimeConfig.
const (
	DefaultMaxFrameCount = 4096
	DefaultMaxStackSize  = 1024 * 1024
)
