// Package home locates the folio home directory and the files kept in it.
//
// Layout:
//
//	~/.folio/
//	  config.yaml
//	  data/folio.db
//	  exports/<collection>.xlsx
package home

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultDirName = ".folio"
	EnvVar         = "FOLIO_HOME" // overrides the default location

	DataDirName      = "data"
	ExportsDirName   = "exports"
	ConfigFileName   = "config.yaml"
	DatabaseFileName = "folio.db"
)

// Dir is a resolved home directory. It does not need to exist yet.
type Dir struct {
	root string
}

// New resolves path, falling back to $FOLIO_HOME and then ~/.folio.
func New(path string) (*Dir, error) {
	root := cmp.Or(path, os.Getenv(EnvVar))
	if root == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		root = filepath.Join(userHome, DefaultDirName)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) join(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

func (d *Dir) Path() string         { return d.root }
func (d *Dir) DataPath() string     { return d.join(DataDirName) }
func (d *Dir) DatabasePath() string { return d.join(DataDirName, DatabaseFileName) }
func (d *Dir) ConfigPath() string   { return d.join(ConfigFileName) }
func (d *Dir) ExportsDir() string   { return d.join(ExportsDirName) }

// ExportPath is the default workbook for collection; the empty collection
// exports to all.xlsx.
func (d *Dir) ExportPath(collection string) string {
	return d.join(ExportsDirName, cmp.Or(collection, "all")+".xlsx")
}

// EnsureExists creates the root and its subdirectories.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.DataPath(), d.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

func (d *Dir) Exists() bool       { return exists(d.root) }
func (d *Dir) ConfigExists() bool { return exists(d.ConfigPath()) }

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
