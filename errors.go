package annoconv

// Error types shared by the codecs and batch drivers.

import "fmt"

// FormatError reports a structurally invalid annotation record: a missing
// required field, an unparseable numeric value, or a reference to an unknown
// label or image ID.
//
// Batch drivers record FormatErrors per file and continue.
type FormatError struct {
	Format Format // The annotation format being read or written.
	Path   string // The offending file, if known.
	Reason string
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Format, e.Path, e.Reason)
}

// formatErrorf constructs a *FormatError with a formatted reason.
func formatErrorf(f Format, path, format string, args ...interface{}) *FormatError {
	return &FormatError{Format: f, Path: path, Reason: fmt.Sprintf(format, args...)}
}

// ConfigError reports invalid caller-supplied parameters: an unknown format
// name, bad split ratios, or a missing label table for a format that needs
// one.
//
// ConfigErrors are raised before any per-file work begins and abort the whole
// batch, since every subsequent file would fail identically.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

// configErrorf constructs a *ConfigError with a formatted reason.
func configErrorf(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}
