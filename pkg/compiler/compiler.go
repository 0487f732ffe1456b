// Package compiler provides the compilation pipeline for bullet scripts
// (.bs files). Source text is tokenized and compiled in a single pass into
// a script FunctionObject ready to be loaded into a VM.
//
// This package provides a unified API:
//   - Compile: compiles a source string
//   - CompileFile: compiles a file, detecting its text encoding
//   - CompileScripts: compiles scripts loaded by script.Loader
//   - CompileDirectory / CompileFS: loads and compiles every script of a stage
package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zurustar/danmaku/pkg/compiler/compiler"
	"github.com/zurustar/danmaku/pkg/fileutil"
	"github.com/zurustar/danmaku/pkg/script"
	"github.com/zurustar/danmaku/pkg/value"
)

// Compile compiles source code. On failure the function is nil and every
// error is a *CompileError carrying source context.
func Compile(source string) (*value.FunctionObject, []error) {
	fn, errs := compiler.Compile(source)
	if len(errs) > 0 {
		out := make([]error, len(errs))
		for i, err := range errs {
			out[i] = fromCompilerError(err, source)
		}
		return nil, out
	}
	return fn, nil
}

// CompileFile reads path, converts it to UTF-8 and compiles it.
func CompileFile(path string) (*value.FunctionObject, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read file %s: %w", path, err)}
	}

	source, _, err := script.Decode(data)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to decode file %s: %w", path, err)}
	}

	fn, errs := Compile(source)
	return fn, withFile(filepath.Base(path), errs)
}

// CompileResult is the outcome of compiling one script.
type CompileResult struct {
	Name     string
	FileName string
	Function *value.FunctionObject
	Errors   []error
}

// CompileScripts compiles each script independently. The map holds the
// successful compilations keyed by script name; errors of all failed
// scripts are collected.
func CompileScripts(scripts []script.Script) (map[string]*value.FunctionObject, []error) {
	results := make(map[string]*value.FunctionObject, len(scripts))
	var allErrors []error

	for _, r := range CompileScriptsWithResults(scripts) {
		if len(r.Errors) > 0 {
			allErrors = append(allErrors, r.Errors...)
			continue
		}
		results[r.Name] = r.Function
	}

	return results, allErrors
}

// CompileScriptsWithResults compiles each script and reports every
// result, successful or not.
func CompileScriptsWithResults(scripts []script.Script) []CompileResult {
	results := make([]CompileResult, 0, len(scripts))
	for _, s := range scripts {
		fn, errs := Compile(s.Content)
		results = append(results, CompileResult{
			Name:     s.Name,
			FileName: s.FileName,
			Function: fn,
			Errors:   withFile(s.FileName, errs),
		})
	}
	return results
}

// CompileDirectory loads all .bs scripts under dirPath and compiles them.
func CompileDirectory(dirPath string) (map[string]*value.FunctionObject, []error) {
	return CompileFS(fileutil.NewRealFS(dirPath))
}

// CompileFS loads all .bs scripts of fsys and compiles them.
func CompileFS(fsys fileutil.FileSystem) (map[string]*value.FunctionObject, []error) {
	scripts, err := script.NewLoaderWithFS(fsys).LoadAllScripts()
	if err != nil {
		return nil, []error{fmt.Errorf("failed to load scripts from %s: %w", fsys.BasePath(), err)}
	}
	return CompileScripts(scripts)
}

func withFile(file string, errs []error) []error {
	for _, err := range errs {
		var ce *CompileError
		if errors.As(err, &ce) {
			ce.File = file
		}
	}
	return errs
}
