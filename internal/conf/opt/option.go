// Package opt defines option descriptors and the per-type value contract
// consumed by the configuration tree.
//
// A descriptor table is a slice of Option values wrapped in a SubOptions.
// Descriptors are externally owned and read-only; the tree never mutates
// them. Each option's behavior (parsing, printing, copying) lives in its
// Type implementation.
package opt

// Flags carries per-option behavior flags.
type Flags uint16

const (
	// FlagGlobal marks options that are process-wide: they are never
	// published through the shadow store and cannot be set per-session.
	FlagGlobal Flags = 1 << iota

	// FlagNoConfig forbids setting the option from a config file.
	FlagNoConfig

	// FlagFixed marks options that refuse runtime changes when the caller
	// passes SetNoFixed.
	FlagFixed

	// FlagPreParse marks options applied during the pre-parse stage.
	FlagPreParse

	// FlagTermLevel marks options that affect process-wide logging
	// verbosity; committing one triggers a log-level refresh.
	FlagTermLevel

	// FlagFile marks options whose value names a file.
	FlagFile
)

// Option describes a single option: its name, type, flags, and metadata.
// An option either stores a value (leaf), redirects to another option
// (alias), refuses resolution (removed), or nests a child table (Sub).
type Option struct {
	// Name is the bare name within the owning table. An empty name makes
	// the entry a pass-through for the parent's name.
	Name string

	// Type implements the value contract. Required.
	Type Type

	// Flags carries behavior flags.
	Flags Flags

	// NoStorage marks options with no live value slot (pseudo-options like
	// "include" that are intercepted by name).
	NoStorage bool

	// Default is the embedded default value. It overrides any default-value
	// template supplied to the tree builder. Nil falls back to the template
	// or, failing that, the zero value.
	Default *Value

	// Min and Max bound numeric types when HasMin/HasMax are set. For
	// choice options they additionally allow a numeric fallback.
	Min, Max       float64
	HasMin, HasMax bool

	// Choices lists the allowed values for TypeChoice.
	Choices []string

	// Deprecation, when non-empty, makes resolution emit a one-time warning
	// and hides the option from listings.
	Deprecation string

	// Alias is the redirect target for TypeAlias.
	Alias string

	// RemovedMsg is the optional custom message for TypeRemoved.
	RemovedMsg string

	// Sub is the nested descriptor table for child-bearing types.
	Sub *SubOptions
}

// SubOptions is a descriptor table plus its default-value template. The
// pointer identity of a SubOptions names the group: the same table must not
// be nested in two places of one tree.
type SubOptions struct {
	// Opts is the ordered descriptor list.
	Opts []Option

	// Defaults maps bare option names to default values, overriding the
	// zero value but not an option's embedded Default.
	Defaults map[string]Value
}
