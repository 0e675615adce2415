package contract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
	infraPlugin "github.com/felixgeelhaar/taskline/pkg/plugin"
)

// memWriter is a minimal in-process writer for testing the suite runner.
type memWriter struct {
	lines map[string]bool
}

func (m *memWriter) Init(config map[string]string) error {
	if config["root"] == "" {
		return errors.New("missing root")
	}
	m.lines = map[string]bool{}
	return nil
}

func (m *memWriter) Create(args domainPlugin.CreateArgs) (domainPlugin.WriteResult, error) {
	m.lines[args.Line] = true
	return domainPlugin.WriteResult{Line: args.Line, OK: true}, nil
}

func (m *memWriter) Edit(args domainPlugin.EditArgs) (domainPlugin.WriteResult, error) {
	if !m.lines[args.Lookup] {
		return domainPlugin.WriteResult{}, nil
	}
	delete(m.lines, args.Lookup)
	m.lines[args.NewLine] = true
	return domainPlugin.WriteResult{Line: args.NewLine, OK: true}, nil
}

func (m *memWriter) Delete(args domainPlugin.DeleteArgs) (domainPlugin.WriteResult, error) {
	if !m.lines[args.Lookup] {
		return domainPlugin.WriteResult{}, nil
	}
	delete(m.lines, args.Lookup)
	return domainPlugin.WriteResult{OK: true}, nil
}

// failingWriter always returns errors, testing assertion failure paths.
type failingWriter struct{}

var errBroken = errors.New("broken")

func (f *failingWriter) Init(map[string]string) error { return errBroken }
func (f *failingWriter) Create(domainPlugin.CreateArgs) (domainPlugin.WriteResult, error) {
	return domainPlugin.WriteResult{}, errBroken
}
func (f *failingWriter) Edit(domainPlugin.EditArgs) (domainPlugin.WriteResult, error) {
	return domainPlugin.WriteResult{}, errBroken
}
func (f *failingWriter) Delete(domainPlugin.DeleteArgs) (domainPlugin.WriteResult, error) {
	return domainPlugin.WriteResult{}, errBroken
}

// greedyWriter reports every lookup as found.
type greedyWriter struct{ memWriter }

func (g *greedyWriter) Edit(args domainPlugin.EditArgs) (domainPlugin.WriteResult, error) {
	return domainPlugin.WriteResult{Line: args.NewLine, OK: true}, nil
}

func TestContractSuite_RunWithWriter(t *testing.T) {
	suite := NewContractSuite()
	result := suite.RunWithWriter(&memWriter{}, map[string]string{"root": "mem"})

	if result.Passed+result.Failed != len(result.Results) {
		t.Errorf("passed(%d) + failed(%d) != total(%d)", result.Passed, result.Failed, len(result.Results))
	}
	for _, r := range result.Results {
		if !r.Passed {
			t.Errorf("assertion %s failed: %s", r.Name, r.Message)
		}
	}
}

func TestContractSuite_VaultWriter(t *testing.T) {
	suite := NewContractSuite()
	result := suite.RunWithWriter(&infraPlugin.VaultWriter{}, map[string]string{"root": t.TempDir()})

	for _, r := range result.Results {
		if !r.Passed {
			t.Errorf("assertion %s failed: %s", r.Name, r.Message)
		}
	}
}

func TestContractSuite_RunWithFailingWriter(t *testing.T) {
	suite := NewContractSuite()
	result := suite.RunWithWriter(&failingWriter{}, map[string]string{"root": "x"})

	if result.Passed+result.Failed != len(result.Results) {
		t.Errorf("passed(%d) + failed(%d) != total(%d)", result.Passed, result.Failed, len(result.Results))
	}
	// Only the bad-config assertion passes for a writer that always errors.
	if result.Passed != 1 {
		t.Errorf("expected exactly one pass, got %d", result.Passed)
	}
}

func TestAssertEditMissing_Greedy(t *testing.T) {
	g := &greedyWriter{}
	if err := g.Init(map[string]string{"root": "x"}); err != nil {
		t.Fatal(err)
	}
	r := AssertEditMissing(g, nil)
	if r.Passed {
		t.Error("expected EditMissing to fail for a writer that always matches")
	}
	if r.Name != "EditMissing" {
		t.Errorf("expected name 'EditMissing', got %q", r.Name)
	}
}

type lenientWriter struct{ memWriter }

func (l *lenientWriter) Init(map[string]string) error { return nil }

func TestAssertInitWithBadConfig_NoError(t *testing.T) {
	r := AssertInitWithBadConfig(&lenientWriter{}, nil)
	if r.Passed {
		t.Error("expected InitWithBadConfig to fail when the writer accepts anything")
	}
}

func TestRunBinary_NotFound(t *testing.T) {
	suite := NewContractSuite()
	_, err := suite.RunBinary("/nonexistent/path/to/plugin", nil)
	if err == nil {
		t.Error("expected error for nonexistent binary")
	}
}

func TestRunBinary_NotExecutable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "not-executable")
	if err := os.WriteFile(path, []byte("not a real binary"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	suite := NewContractSuite()
	_, err := suite.RunBinary(path, nil)
	if err == nil {
		t.Error("expected error for non-executable file")
	}
}

func TestContractSuite_SkipsAfterInitFailure(t *testing.T) {
	result := NewContractSuite().RunWithWriter(&failingWriter{}, map[string]string{"root": "x"})

	if len(result.Results) != len(ordered) {
		t.Fatalf("expected %d results, got %d", len(ordered), len(result.Results))
	}
	last := result.Results[len(result.Results)-1]
	if last.Passed || last.Message != "skipped: writer did not initialise" {
		t.Errorf("expected trailing assertions to be skipped, got %+v", last)
	}
}
