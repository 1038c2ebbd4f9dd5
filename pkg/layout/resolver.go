package layout

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/socialgouv/companion-launcher/pkg/logger"
	"github.com/socialgouv/companion-launcher/pkg/types"
)

const (
	// DefaultEntryName is the companion entry point looked up in each layout
	DefaultEntryName = "server.js"
	// DefaultManifestName marks the directory holding the companion's dependency tree
	DefaultManifestName = "package.json"

	// bundleResourceDir is where a macOS bundle relocates companion resources, relative to the executable
	bundleResourceDir = "../Resources/_up_"
	// devRootDir is the project root relative to an executable in target/<profile>
	devRootDir = "../.."
)

// candidate is a directory probed for a file, tagged with the layout it implies
type candidate struct {
	kind types.LayoutKind
	dir  string
}

// Resolver determines companion paths by probing the filesystem around the executable.
// It only checks for existence and never reads or writes.
type Resolver struct {
	fs              afero.Fs
	entryName       string
	manifestName    string
	entryOverride   string
	workDirOverride string
	logger          logger.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithFs sets the filesystem used for existence checks
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// WithEntryName sets the entry point file name
func WithEntryName(name string) Option {
	return func(r *Resolver) {
		r.entryName = name
	}
}

// WithManifestName sets the manifest file name used to find the working directory
func WithManifestName(name string) Option {
	return func(r *Resolver) {
		r.manifestName = name
	}
}

// WithOverrides sets explicit paths that win over probing. Empty values are ignored.
func WithOverrides(entryPath, workDir string) Option {
	return func(r *Resolver) {
		r.entryOverride = entryPath
		r.workDirOverride = workDir
	}
}

// WithLogger sets the logger used for resolution diagnostics
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver backed by the OS filesystem unless overridden
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:           afero.NewOsFs(),
		entryName:    DefaultEntryName,
		manifestName: DefaultManifestName,
		logger:       logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logger.WithComponent(r.logger, "layout")
	return r
}

// ResolveCurrent resolves the layout for the running executable.
// If the executable path cannot be determined the current directory is used.
func (r *Resolver) ResolveCurrent() types.ResolvedLayout {
	exePath, err := os.Executable()
	if err != nil {
		logger.WithError(r.logger, err).Warn("Could not determine executable path, probing from current directory")
		return r.resolveFromDir(".")
	}
	return r.Resolve(exePath)
}

// Resolve computes the entry point and working directory for an executable at exePath.
// It always returns a layout; when nothing matches, best-guess fallbacks are used.
func (r *Resolver) Resolve(exePath string) types.ResolvedLayout {
	return r.resolveFromDir(filepath.Dir(exePath))
}

func (r *Resolver) resolveFromDir(exeDir string) types.ResolvedLayout {
	var resolved types.ResolvedLayout
	resolved.EntryPath, resolved.EntryKind = r.resolveEntry(exeDir)
	resolved.WorkDir, resolved.WorkDirKind = r.resolveWorkDir(exeDir)

	resolveLogger := r.logger.WithField(logger.FieldExecutable, exeDir)
	resolveLogger.WithFields(map[string]interface{}{
		logger.FieldEntryPath: resolved.EntryPath,
		"layout":              string(resolved.EntryKind),
	}).Info("Resolved companion entry point")
	resolveLogger.WithFields(map[string]interface{}{
		logger.FieldWorkDir: resolved.WorkDir,
		"layout":            string(resolved.WorkDirKind),
	}).Info("Resolved companion working directory")

	if resolved.EntryKind == types.LayoutFallback {
		resolveLogger.WithField(logger.FieldEntryPath, resolved.EntryPath).
			Warn("No layout matched the companion entry point, using relative fallback")
	}

	return resolved
}

// entryCandidates lists entry point directories, most specific layout first
func entryCandidates(exeDir string) []candidate {
	return []candidate{
		{kind: types.LayoutMacBundle, dir: filepath.Join(exeDir, bundleResourceDir)},
		{kind: types.LayoutGeneric, dir: exeDir},
		{kind: types.LayoutDevelopment, dir: filepath.Join(exeDir, devRootDir)},
	}
}

// workDirCandidates lists working directories. The order differs from entryCandidates
// because dependencies do not always sit next to the entry point.
func workDirCandidates(exeDir string) []candidate {
	return []candidate{
		{kind: types.LayoutMacBundle, dir: filepath.Join(exeDir, bundleResourceDir)},
		{kind: types.LayoutDevelopment, dir: filepath.Join(exeDir, devRootDir)},
		{kind: types.LayoutGeneric, dir: exeDir},
	}
}

func (r *Resolver) resolveEntry(exeDir string) (string, types.LayoutKind) {
	if r.entryOverride != "" {
		return r.entryOverride, types.LayoutOverride
	}

	for _, c := range entryCandidates(exeDir) {
		path := filepath.Join(c.dir, r.entryName)
		if r.exists(path) {
			return path, c.kind
		}
	}

	// Not existence-checked: relative to whatever the working directory is at spawn time
	return filepath.Join("..", r.entryName), types.LayoutFallback
}

func (r *Resolver) resolveWorkDir(exeDir string) (string, types.LayoutKind) {
	if r.workDirOverride != "" {
		return r.workDirOverride, types.LayoutOverride
	}

	for _, c := range workDirCandidates(exeDir) {
		if r.exists(filepath.Join(c.dir, r.manifestName)) {
			return c.dir, c.kind
		}
	}

	return filepath.Clean(exeDir), types.LayoutFallback
}

// exists reports whether path exists. Stat errors other than not-exist count as absent.
func (r *Resolver) exists(path string) bool {
	ok, err := afero.Exists(r.fs, path)
	if err != nil {
		r.logger.WithFields(map[string]interface{}{
			"path":             path,
			logger.FieldError: err.Error(),
		}).Debug("Existence check failed")
		return false
	}
	return ok
}
