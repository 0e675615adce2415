package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
)

type recordingWriter struct {
	calls []string
}

func (r *recordingWriter) Init(map[string]string) error { return nil }

func (r *recordingWriter) Create(args domainPlugin.CreateArgs) (domainPlugin.WriteResult, error) {
	r.calls = append(r.calls, "create "+args.Path+" "+args.Heading)
	return domainPlugin.WriteResult{Line: args.Line, OK: true}, nil
}

func (r *recordingWriter) Edit(args domainPlugin.EditArgs) (domainPlugin.WriteResult, error) {
	r.calls = append(r.calls, "edit "+args.Lookup)
	return domainPlugin.WriteResult{Line: args.NewLine, OK: true}, nil
}

func (r *recordingWriter) Delete(args domainPlugin.DeleteArgs) (domainPlugin.WriteResult, error) {
	r.calls = append(r.calls, "delete "+args.Lookup)
	return domainPlugin.WriteResult{OK: false}, nil
}

func TestWriter_ForwardsCalls(t *testing.T) {
	rec := &recordingWriter{}
	w := NewWriter(rec)
	ctx := context.Background()

	line, ok, err := w.Create(ctx, "- [ ] a", "Tasks.md", "## Inbox")
	if err != nil || !ok || line != "- [ ] a" {
		t.Fatalf("Create = %q, %v, %v", line, ok, err)
	}
	line, ok, err = w.Edit(ctx, "- [x] a", "- [ ] a", "Tasks.md")
	if err != nil || !ok || line != "- [x] a" {
		t.Fatalf("Edit = %q, %v, %v", line, ok, err)
	}
	ok, err = w.Delete(ctx, "- [x] a", "Tasks.md")
	if err != nil || ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}

	want := []string{"create Tasks.md ## Inbox", "edit - [ ] a", "delete - [x] a"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v", rec.calls)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, rec.calls[i], want[i])
		}
	}
}

func TestWriter_CancelledContext(t *testing.T) {
	rec := &recordingWriter{}
	w := NewWriter(rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := w.Create(ctx, "- [ ] a", "Tasks.md", ""); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("no call should reach the plugin: %v", rec.calls)
	}
}

func TestVaultWriter(t *testing.T) {
	root := t.TempDir()
	w := &VaultWriter{}

	if _, err := w.Create(domainPlugin.CreateArgs{Line: "- [ ] a", Path: "Tasks.md"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if err := w.Init(map[string]string{}); err == nil {
		t.Fatal("expected error without root")
	}
	if err := w.Init(map[string]string{"root": root}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	res, err := w.Create(domainPlugin.CreateArgs{Line: "- [ ] a", Path: "Tasks.md", Heading: "# Tasks"})
	if err != nil || !res.OK {
		t.Fatalf("Create = %#v, %v", res, err)
	}
	res, err = w.Edit(domainPlugin.EditArgs{NewLine: "- [x] a", Lookup: "- [ ] a", Path: "Tasks.md"})
	if err != nil || !res.OK {
		t.Fatalf("Edit = %#v, %v", res, err)
	}

	data, err := os.ReadFile(filepath.Join(root, "Tasks.md"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# Tasks\n- [x] a\n" {
		t.Errorf("unexpected document: %q", data)
	}

	res, err = w.Delete(domainPlugin.DeleteArgs{Lookup: "- [ ] a", Path: "Tasks.md"})
	if err != nil || res.OK {
		t.Fatalf("Delete of stale lookup = %#v, %v", res, err)
	}
}
