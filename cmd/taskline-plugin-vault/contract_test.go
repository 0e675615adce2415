package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/taskline/pkg/plugin/contract"
)

func TestVaultPluginContract(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping contract test in short mode")
	}

	binDir := t.TempDir()
	binPath := filepath.Join(binDir, "taskline-plugin-vault")

	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("failed to build vault plugin: %v", err)
	}

	suite := contract.NewContractSuite()
	result, err := suite.RunBinary(binPath, map[string]string{"root": t.TempDir()})
	if err != nil {
		t.Fatalf("contract suite failed to run: %v", err)
	}

	for _, r := range result.Results {
		t.Logf("[%s] passed=%v: %s", r.Name, r.Passed, r.Message)
	}

	if result.Failed > 0 {
		t.Errorf("contract suite: %d passed, %d failed", result.Passed, result.Failed)
	}
}
