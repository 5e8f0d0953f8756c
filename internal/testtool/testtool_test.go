package testtool

import (
	"context"
	"testing"
)

func TestCreateFileToolForwardAndReverse(t *testing.T) {
	dir := t.TempDir()
	tool := NewCreateFileTool(dir)
	ctx := context.Background()

	args := map[string]any{"path": "t.txt"}
	result, err := tool.Forward(ctx, args)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if !Exists(dir, "t.txt") {
		t.Fatalf("Forward() did not create t.txt")
	}

	if err := tool.Reverse(ctx, args, result); err != nil {
		t.Fatalf("Reverse() error = %v", err)
	}
	if Exists(dir, "t.txt") {
		t.Errorf("Reverse() did not delete t.txt")
	}
}

func TestAlwaysFailReverseTool(t *testing.T) {
	tool := NewAlwaysFailReverseTool("doomed")
	ctx := context.Background()

	result, err := tool.Forward(ctx, nil)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if err := tool.Reverse(ctx, nil, result); err == nil {
		t.Errorf("Reverse() = nil, want error")
	}
}
