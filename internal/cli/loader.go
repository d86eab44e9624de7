package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/signalstore/internal/harness"
)

// LoadError is a failure to load an initial-state file, with the CUE
// position when one is known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadInitial reads the seed data of a run from a CUE file.
//
// The file may define the data at the top level or under an "initial"
// field, which lets it carry constraints next to the values:
//
//	#Todo: {id: string, title: string, done: bool | *false}
//	initial: {
//		count: 1
//		todos: [...#Todo] & [{id: "1", title: "Write tests"}]
//	}
//
// Every value must be concrete.
func LoadInitial(path string) (*harness.Initial, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("initial state file not found: %s", path)}
	}

	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueLoadError(ErrCodeLoadFailed, "loading CUE file", inst.Err)
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "building CUE value", err)
	}

	if nested := value.LookupPath(cue.ParsePath("initial")); nested.Exists() {
		value = nested
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, "initial state must be concrete", err)
	}

	var initial harness.Initial
	if err := value.Decode(&initial); err != nil {
		return nil, cueLoadError(ErrCodeDecodeFailed, "decoding initial state", err)
	}
	return &initial, nil
}

func cueLoadError(code, message string, err error) *LoadError {
	le := &LoadError{Code: code, Message: fmt.Sprintf("%s: %v", message, err)}
	if positions := cueerrors.Positions(err); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
