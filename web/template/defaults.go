package template

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"github.com/mandelsoft/vfs/pkg/vfs"
)

//go:embed defaults/*.html
var defaultsFS embed.FS

// InstallDefaults writes the built-in templates into dir. Existing files are
// left untouched, so customized templates survive reinstalling.
func InstallDefaults(fsys vfs.FileSystem, dir string) error {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed creating template directory: %w", err)
	}

	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		return fmt.Errorf("failed reading default templates: %w", err)
	}

	for _, entry := range entries {
		dst := path.Join(dir, entry.Name())
		if _, err = fsys.Stat(dst); err == nil {
			continue
		} else if !vfs.IsErrNotExist(err) {
			return fmt.Errorf("failed checking template '%s': %w", dst, err)
		}

		data, err := fs.ReadFile(defaultsFS, path.Join("defaults", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed reading default template '%s': %w", entry.Name(), err)
		}
		if err = vfs.WriteFile(fsys, dst, data, 0o644); err != nil {
			return fmt.Errorf("failed writing template '%s': %w", dst, err)
		}
	}

	return nil
}
