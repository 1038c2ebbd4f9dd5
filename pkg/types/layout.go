package types

// LayoutKind identifies which deployment layout a resolved path came from
type LayoutKind string

const (
	// LayoutMacBundle is a macOS .app bundle with resources relocated under Resources/_up_
	LayoutMacBundle LayoutKind = "mac-bundle"
	// LayoutGeneric is a packaged bundle with the companion beside the executable
	LayoutGeneric LayoutKind = "generic"
	// LayoutDevelopment is a source tree with the executable two directories below the root
	LayoutDevelopment LayoutKind = "development"
	// LayoutOverride is an explicitly configured path
	LayoutOverride LayoutKind = "override"
	// LayoutFallback means no candidate matched and a best guess was used
	LayoutFallback LayoutKind = "fallback"
)

// ResolvedLayout holds the paths used to spawn the companion process
type ResolvedLayout struct {
	// EntryPath is the companion entry point passed to the interpreter
	EntryPath string
	// WorkDir is the working directory containing the companion's dependencies
	WorkDir string

	EntryKind   LayoutKind
	WorkDirKind LayoutKind
}

// ToFields converts ResolvedLayout to a map of logger fields
func (l ResolvedLayout) ToFields() map[string]interface{} {
	fields := make(map[string]interface{})

	if l.EntryPath != "" {
		fields["layout.entry_path"] = l.EntryPath
	}

	if l.WorkDir != "" {
		fields["layout.work_dir"] = l.WorkDir
	}

	if l.EntryKind != "" {
		fields["layout.entry_kind"] = string(l.EntryKind)
	}

	if l.WorkDirKind != "" {
		fields["layout.work_dir_kind"] = string(l.WorkDirKind)
	}

	return fields
}
