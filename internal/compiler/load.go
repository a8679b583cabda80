package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/graphlite/schema"
)

// LoadResult holds the declarations found in a directory of CUE files.
type LoadResult struct {
	Declarations []Declaration
	CUEValue     cue.Value
	FileCount    int
}

// Schemas builds every declaration. It stops at the first failure; call
// Validate first for a full report.
func (r *LoadResult) Schemas() ([]*schema.Schema, error) {
	out := make([]*schema.Schema, 0, len(r.Declarations))
	for _, d := range r.Declarations {
		s, err := d.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// LoadDir loads the CUE package in dir and compiles its "schema" struct.
// With failFast it returns at the first error; otherwise it collects them.
func LoadDir(dir string, failFast bool) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&CompileError{Field: "dir", Message: fmt.Sprintf("schemas directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&CompileError{Field: "dir", Message: fmt.Sprintf("error accessing schemas directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&CompileError{Field: "dir", Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&CompileError{Field: "dir", Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&CompileError{Field: "dir", Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&CompileError{Field: "load", Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{formatCUEError(inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{formatCUEError(err)}
	}

	result := &LoadResult{CUEValue: value, FileCount: len(files)}
	decls, errs := CompileSchemas(value, failFast)
	result.Declarations = decls
	if len(decls) == 0 && len(errs) == 0 {
		errs = append(errs, &CompileError{Field: "schema", Message: "no schema declarations found"})
	}
	return result, errs
}

// FindCUEFiles walks dir and returns every .cue file path.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
