package layout

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialgouv/companion-launcher/pkg/types"
)

func memFs(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.FromSlash(f), []byte("{}"), 0o644))
	}
	return fs
}

func p(path string) string {
	return filepath.FromSlash(path)
}

func TestResolveEntryPoint(t *testing.T) {
	tests := []struct {
		name     string
		exe      string
		files    []string
		wantPath string
		wantKind types.LayoutKind
	}{
		{
			name:     "mac bundle",
			exe:      "/Apps/X.app/Contents/MacOS/x",
			files:    []string{"/Apps/X.app/Contents/Resources/_up_/server.js"},
			wantPath: "/Apps/X.app/Contents/Resources/_up_/server.js",
			wantKind: types.LayoutMacBundle,
		},
		{
			name:     "generic bundle",
			exe:      "/opt/x/x",
			files:    []string{"/opt/x/server.js"},
			wantPath: "/opt/x/server.js",
			wantKind: types.LayoutGeneric,
		},
		{
			name:     "development tree",
			exe:      "/src/proj/target/debug/x",
			files:    []string{"/src/proj/server.js"},
			wantPath: "/src/proj/server.js",
			wantKind: types.LayoutDevelopment,
		},
		{
			name:     "nothing found",
			exe:      "/tmp/x",
			wantPath: "../server.js",
			wantKind: types.LayoutFallback,
		},
		{
			name: "bundle wins over generic and development",
			exe:  "/Apps/X.app/Contents/MacOS/x",
			files: []string{
				"/Apps/X.app/Contents/Resources/_up_/server.js",
				"/Apps/X.app/Contents/MacOS/server.js",
				"/Apps/X.app/server.js",
			},
			wantPath: "/Apps/X.app/Contents/Resources/_up_/server.js",
			wantKind: types.LayoutMacBundle,
		},
		{
			name: "generic wins over development",
			exe:  "/src/proj/target/debug/x",
			files: []string{
				"/src/proj/target/debug/server.js",
				"/src/proj/server.js",
			},
			wantPath: "/src/proj/target/debug/server.js",
			wantKind: types.LayoutGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(WithFs(memFs(t, tt.files...)))
			got := r.Resolve(p(tt.exe))

			assert.Equal(t, p(tt.wantPath), got.EntryPath)
			assert.Equal(t, tt.wantKind, got.EntryKind)
		})
	}
}

func TestResolveWorkDir(t *testing.T) {
	tests := []struct {
		name     string
		exe      string
		files    []string
		wantDir  string
		wantKind types.LayoutKind
	}{
		{
			name:     "mac bundle",
			exe:      "/Apps/X.app/Contents/MacOS/x",
			files:    []string{"/Apps/X.app/Contents/Resources/_up_/package.json"},
			wantDir:  "/Apps/X.app/Contents/Resources/_up_",
			wantKind: types.LayoutMacBundle,
		},
		{
			name:     "development root",
			exe:      "/src/proj/target/debug/x",
			files:    []string{"/src/proj/package.json"},
			wantDir:  "/src/proj",
			wantKind: types.LayoutDevelopment,
		},
		{
			name:     "beside executable",
			exe:      "/opt/x/x",
			files:    []string{"/opt/x/package.json"},
			wantDir:  "/opt/x",
			wantKind: types.LayoutGeneric,
		},
		{
			name: "development root wins over executable directory",
			exe:  "/src/proj/target/debug/x",
			files: []string{
				"/src/proj/target/debug/package.json",
				"/src/proj/package.json",
			},
			wantDir:  "/src/proj",
			wantKind: types.LayoutDevelopment,
		},
		{
			name:     "nothing found",
			exe:      "/tmp/x",
			wantDir:  "/tmp",
			wantKind: types.LayoutFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(WithFs(memFs(t, tt.files...)))
			got := r.Resolve(p(tt.exe))

			assert.Equal(t, p(tt.wantDir), got.WorkDir)
			assert.Equal(t, tt.wantKind, got.WorkDirKind)
		})
	}
}

func TestResolveNormalizesAboveRoot(t *testing.T) {
	// /app/bin/../../server-entry cleans to /server-entry and is probed there
	r := NewResolver(WithFs(memFs(t, "/server-entry")), WithEntryName("server-entry"))

	got := r.Resolve(p("/app/bin/x"))

	assert.Equal(t, p("/server-entry"), got.EntryPath)
	assert.Equal(t, types.LayoutDevelopment, got.EntryKind)
}

func TestResolveIsIdempotent(t *testing.T) {
	fs := memFs(t,
		"/src/proj/server.js",
		"/src/proj/package.json",
	)
	r := NewResolver(WithFs(fs))

	first := r.Resolve(p("/src/proj/target/release/x"))
	second := r.Resolve(p("/src/proj/target/release/x"))

	assert.Equal(t, first, second)
}

func TestResolveDoesNotModifyFilesystem(t *testing.T) {
	fs := memFs(t, "/opt/x/server.js")
	r := NewResolver(WithFs(afero.NewReadOnlyFs(fs)))

	got := r.Resolve(p("/opt/x/x"))

	assert.Equal(t, p("/opt/x/server.js"), got.EntryPath)
}

func TestResolveOverrides(t *testing.T) {
	fs := memFs(t,
		"/opt/x/server.js",
		"/opt/x/package.json",
	)

	t.Run("both", func(t *testing.T) {
		r := NewResolver(WithFs(fs), WithOverrides("/custom/main.js", "/custom"))
		got := r.Resolve(p("/opt/x/x"))

		assert.Equal(t, "/custom/main.js", got.EntryPath)
		assert.Equal(t, types.LayoutOverride, got.EntryKind)
		assert.Equal(t, "/custom", got.WorkDir)
		assert.Equal(t, types.LayoutOverride, got.WorkDirKind)
	})

	t.Run("entry only", func(t *testing.T) {
		r := NewResolver(WithFs(fs), WithOverrides("/custom/main.js", ""))
		got := r.Resolve(p("/opt/x/x"))

		assert.Equal(t, types.LayoutOverride, got.EntryKind)
		assert.Equal(t, p("/opt/x"), got.WorkDir)
		assert.Equal(t, types.LayoutGeneric, got.WorkDirKind)
	})
}

func TestResolveCustomManifest(t *testing.T) {
	fs := memFs(t, "/opt/deno.json", "/opt/x/bin/package.json")
	r := NewResolver(WithFs(fs), WithManifestName("deno.json"))

	got := r.Resolve(p("/opt/x/bin/x"))

	assert.Equal(t, p("/opt"), got.WorkDir)
	assert.Equal(t, types.LayoutDevelopment, got.WorkDirKind)
}
