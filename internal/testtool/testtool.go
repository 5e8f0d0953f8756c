// Package testtool provides minimal reversible tools used only by tests
// to exercise undo/redo scenarios (spec.md S1, S4, S6). It is not shipped
// as a production tool — the engine's embedded tool implementations are
// out of scope per spec.md §1.
package testtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rollbackagent/engine/pkg/tooltrack"
)

// CreateFileArgs is the typed argument shape for NewCreateFileTool,
// decodable from map[string]any via tooltrack.DecodeArgs.
type CreateFileArgs struct {
	Path string `json:"path"`
}

// NewCreateFileTool returns a reversible tool that creates an empty file
// under baseDir and deletes it on rollback — spec.md S1's create_file.
func NewCreateFileTool(baseDir string) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name:        "create_file",
		Description: "Creates an empty file at the given relative path.",
		Schema:      tooltrack.GenerateSchema[CreateFileArgs](),
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			parsed, err := tooltrack.DecodeArgs[CreateFileArgs](args)
			if err != nil {
				return nil, err
			}
			full := filepath.Join(baseDir, parsed.Path)
			if err := os.WriteFile(full, nil, 0o644); err != nil {
				return nil, fmt.Errorf("testtool: create %s: %w", parsed.Path, err)
			}
			return map[string]any{"path": parsed.Path}, nil
		},
		Reverse: func(ctx context.Context, args map[string]any, result any) error {
			parsed, err := tooltrack.DecodeArgs[CreateFileArgs](args)
			if err != nil {
				return err
			}
			full := filepath.Join(baseDir, parsed.Path)
			if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("testtool: delete %s: %w", parsed.Path, err)
			}
			return nil
		},
	}
}

// Exists reports whether path exists under baseDir, for test assertions.
func Exists(baseDir, path string) bool {
	_, err := os.Stat(filepath.Join(baseDir, path))
	return err == nil
}

// NewAlwaysFailReverseTool returns a reversible tool whose forward always
// succeeds but whose reverse always fails — spec.md S4's partial-reverse-
// failure scenario.
func NewAlwaysFailReverseTool(name string) *tooltrack.ToolSpec {
	return &tooltrack.ToolSpec{
		Name: name,
		Forward: func(ctx context.Context, args map[string]any) (any, error) {
			return "done", nil
		},
		Reverse: func(ctx context.Context, args map[string]any, result any) error {
			return fmt.Errorf("testtool: %s reverse always fails", name)
		},
	}
}
