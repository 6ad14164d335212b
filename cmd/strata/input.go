package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stratalog/internal/datalog"
	"stratalog/internal/mangle"
	"stratalog/internal/programspec"
)

// loadProgram reads path, choosing the syntax by extension.
func loadProgram(path string) (datalog.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return datalog.Program{}, fmt.Errorf("failed to read program: %w", err)
	}

	if enc, ok := programspec.EncodingFor(path); ok {
		p, err := programspec.Load(data, enc)
		if err != nil {
			return datalog.Program{}, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mg", ".mangle":
		p, err := mangle.Parse(string(data))
		if err != nil {
			return datalog.Program{}, fmt.Errorf("%s: %w", path, err)
		}
		return p, nil
	default:
		return datalog.Program{}, fmt.Errorf("%s: unsupported extension, want .mg, .mangle, .yaml, .yml or .json", path)
	}
}
