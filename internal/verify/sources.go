package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/cdcflow/internal/spec"
)

// Sources are the artifacts under verification.
type Sources struct {
	Specs      []*spec.Spec
	SpecErrors []error

	RegistryPath string
	Registry     []byte // nil when the file does not exist

	FlowPath string
	Flow     []byte // nil when the file does not exist
}

// ReadSources loads every spec under specsDir and reads the registry and flow
// files. Spec failures are collected, not returned; only unexpected I/O
// errors on the artifacts abort.
func ReadSources(specsDir, registryPath, flowPath string) (*Sources, error) {
	src := &Sources{RegistryPath: registryPath, FlowPath: flowPath}
	src.Specs, src.SpecErrors = LoadSpecs(specsDir)

	var err error
	if src.Registry, err = readOptional(registryPath); err != nil {
		return nil, err
	}
	if src.Flow, err = readOptional(flowPath); err != nil {
		return nil, err
	}
	return src, nil
}

// LoadSpecs loads every spec under dir, collecting each failure.
func LoadSpecs(dir string) ([]*spec.Spec, []error) {
	paths, err := spec.Discover(dir)
	if err != nil {
		return nil, []error{err}
	}
	var specs []*spec.Spec
	var errs []error
	for _, path := range paths {
		s, err := spec.Load(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, s)
	}
	return specs, errs
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
