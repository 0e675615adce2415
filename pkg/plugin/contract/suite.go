package contract

import (
	"fmt"

	domainPlugin "github.com/felixgeelhaar/taskline/pkg/domain/plugin"
	infraPlugin "github.com/felixgeelhaar/taskline/pkg/plugin"
)

// Assertion checks one part of the writer contract.
type Assertion func(domainPlugin.LineWriter, map[string]string) Result

// ordered is the contract in execution order. Later assertions rely on the
// document state left by earlier ones.
var ordered = []Assertion{
	AssertInitWithBadConfig,
	AssertInitSuccess,
	AssertCreate,
	AssertEditExisting,
	AssertEditMissing,
	AssertDeleteExisting,
	AssertDeleteMissing,
}

// ContractSuite runs the writer contract against a plugin.
type ContractSuite struct {
	loader *infraPlugin.Loader
}

func NewContractSuite() *ContractSuite {
	return &ContractSuite{loader: infraPlugin.NewLoader()}
}

// SuiteResult aggregates the outcome of one run.
type SuiteResult struct {
	Results []Result
	Passed  int
	Failed  int
}

func (sr *SuiteResult) record(r Result) {
	sr.Results = append(sr.Results, r)
	if r.Passed {
		sr.Passed++
	} else {
		sr.Failed++
	}
}

// RunWithWriter runs the contract against w. config is passed to Init and
// must point the writer at scratch storage. Once the writer fails to
// initialise, the remaining assertions are recorded as skipped failures.
func (s *ContractSuite) RunWithWriter(w domainPlugin.LineWriter, config map[string]string) *SuiteResult {
	sr := &SuiteResult{}
	initialised := true
	for i, check := range ordered {
		if !initialised {
			sr.record(Result{Name: fmt.Sprintf("step %d", i+1), Message: "skipped: writer did not initialise"})
			continue
		}
		r := check(w, config)
		sr.record(r)
		if r.Name == initSuccessName && !r.Passed {
			initialised = false
		}
	}
	return sr
}

// RunBinary starts the plugin binary at path and runs the contract against it.
func (s *ContractSuite) RunBinary(path string, config map[string]string) (*SuiteResult, error) {
	defer s.loader.Cleanup()

	w, err := s.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load plugin: %w", err)
	}
	return s.RunWithWriter(w, config), nil
}
