// Package contract provides contract test assertions for taskline writer plugins.
package contract

import (
	"fmt"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
)

// Result captures the outcome of a single contract assertion.
type Result struct {
	Name    string
	Passed  bool
	Message string
}

const (
	probePath    = "Contract.md"
	probeHeading = "## Contract"
	probeLine    = "- [ ] contract probe [id:: contract-probe]"
	probeEdited  = "- [x] contract probe [id:: contract-probe]"
)

// AssertInitWithBadConfig verifies that Init returns an error for an empty config.
func AssertInitWithBadConfig(w domainPlugin.LineWriter, _ map[string]string) Result {
	err := w.Init(map[string]string{})
	if err == nil {
		return Result{Name: "InitWithBadConfig", Passed: false, Message: "expected Init to fail with an empty config"}
	}
	return Result{Name: "InitWithBadConfig", Passed: true, Message: fmt.Sprintf("Init correctly failed: %v", err)}
}

const initSuccessName = "InitSuccess"

// AssertInitSuccess verifies that Init succeeds with valid config.
func AssertInitSuccess(w domainPlugin.LineWriter, config map[string]string) Result {
	if err := w.Init(config); err != nil {
		return Result{Name: initSuccessName, Passed: false, Message: fmt.Sprintf("Init failed: %v", err)}
	}
	return Result{Name: initSuccessName, Passed: true, Message: "Init succeeded"}
}

// AssertCreate verifies a line can be created under a heading.
func AssertCreate(w domainPlugin.LineWriter, _ map[string]string) Result {
	res, err := w.Create(domainPlugin.CreateArgs{Line: probeLine, Path: probePath, Heading: probeHeading})
	if err != nil {
		return Result{Name: "Create", Passed: false, Message: fmt.Sprintf("Create failed: %v", err)}
	}
	if !res.OK || res.Line == "" {
		return Result{Name: "Create", Passed: false, Message: fmt.Sprintf("Create was rejected: %#v", res)}
	}
	return Result{Name: "Create", Passed: true, Message: "Create succeeded"}
}

// AssertEditExisting verifies the created line can be replaced.
func AssertEditExisting(w domainPlugin.LineWriter, _ map[string]string) Result {
	res, err := w.Edit(domainPlugin.EditArgs{NewLine: probeEdited, Lookup: probeLine, Path: probePath})
	if err != nil {
		return Result{Name: "EditExisting", Passed: false, Message: fmt.Sprintf("Edit failed: %v", err)}
	}
	if !res.OK {
		return Result{Name: "EditExisting", Passed: false, Message: "Edit did not find the created line"}
	}
	return Result{Name: "EditExisting", Passed: true, Message: "Edit succeeded"}
}

// AssertEditMissing verifies a stale lookup is reported as not found
// rather than as an error.
func AssertEditMissing(w domainPlugin.LineWriter, _ map[string]string) Result {
	res, err := w.Edit(domainPlugin.EditArgs{NewLine: probeEdited, Lookup: probeLine, Path: probePath})
	if err != nil {
		return Result{Name: "EditMissing", Passed: false, Message: fmt.Sprintf("Edit errored: %v", err)}
	}
	if res.OK {
		return Result{Name: "EditMissing", Passed: false, Message: "Edit matched a line that no longer exists"}
	}
	return Result{Name: "EditMissing", Passed: true, Message: "Edit reported not found"}
}

// AssertDeleteExisting verifies the edited line can be removed.
func AssertDeleteExisting(w domainPlugin.LineWriter, _ map[string]string) Result {
	res, err := w.Delete(domainPlugin.DeleteArgs{Lookup: probeEdited, Path: probePath})
	if err != nil {
		return Result{Name: "DeleteExisting", Passed: false, Message: fmt.Sprintf("Delete failed: %v", err)}
	}
	if !res.OK {
		return Result{Name: "DeleteExisting", Passed: false, Message: "Delete did not find the edited line"}
	}
	return Result{Name: "DeleteExisting", Passed: true, Message: "Delete succeeded"}
}

// AssertDeleteMissing verifies deleting an absent line is not an error.
func AssertDeleteMissing(w domainPlugin.LineWriter, _ map[string]string) Result {
	res, err := w.Delete(domainPlugin.DeleteArgs{Lookup: probeEdited, Path: probePath})
	if err != nil {
		return Result{Name: "DeleteMissing", Passed: false, Message: fmt.Sprintf("Delete errored: %v", err)}
	}
	if res.OK {
		return Result{Name: "DeleteMissing", Passed: false, Message: "Delete removed a line twice"}
	}
	return Result{Name: "DeleteMissing", Passed: true, Message: "Delete reported not found"}
}
