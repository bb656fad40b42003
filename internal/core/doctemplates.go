package core

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates
var templateFS embed.FS

// GetEmbeddedTemplate returns the content of an embedded template by file name
// within the templates/ directory (e.g. "schedule.md").
func GetEmbeddedTemplate(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(data), nil
}

// InitWorkspace writes a starter .buildconfig into basePath and, when
// catalogPath is not empty, an export of the built-in catalog. Existing
// files are left untouched. It returns the paths it wrote.
func InitWorkspace(basePath, catalogPath string) ([]string, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", basePath, err)
	}

	var written []string

	cfgPath := filepath.Join(basePath, ConfigFileName)
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		content, err := GetEmbeddedTemplate("buildconfig.yaml")
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
			return nil, fmt.Errorf("writing %s: %w", cfgPath, err)
		}
		written = append(written, cfgPath)
	}

	if catalogPath == "" {
		return written, nil
	}
	if !filepath.IsAbs(catalogPath) {
		catalogPath = filepath.Join(basePath, catalogPath)
	}
	if _, err := os.Stat(catalogPath); err == nil {
		return written, nil
	}

	format, err := catalogFormatFromPath(catalogPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", catalogPath, err)
	}
	defer f.Close()
	if err := ExportCatalog(f, BuiltinCatalog(), format); err != nil {
		return nil, fmt.Errorf("writing %s: %w", catalogPath, err)
	}
	written = append(written, catalogPath)

	return written, nil
}
