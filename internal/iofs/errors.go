package iofs

import (
	"fmt"
	"runtime"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// caller returns the name of the function that asked for an error.
func caller() string {
	pc, _, _, _ := runtime.Caller(2)
	return runtime.FuncForPC(pc).Name()
}

func CreateDirError(dir string, err error) error {
	return &gn.Error{
		Code: errcode.CreateDirError,
		Msg:  "Cannot create directory <em>%s</em>",
		Vars: []any{dir},
		Err:  fmt.Errorf("from %s: cannot create directory: %w", caller(), err),
	}
}

func CopyFileError(file string, err error) error {
	return &gn.Error{
		Code: errcode.CopyFileError,
		Msg:  "Cannot write default configuration to <em>%s</em>",
		Vars: []any{file},
		Err:  fmt.Errorf("from %s: cannot write config: %w", caller(), err),
	}
}

func ReadFileError(path string, err error) error {
	msg := `Cannot read <em>%s</em>

Remove the file to get a fresh default configuration.`

	return &gn.Error{
		Code: errcode.ReadFileError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("from %s: cannot read %s: %w", caller(), path, err),
	}
}

// OutDirError is returned when snapshots cannot be saved to the
// output directory.
func OutDirError(dir string, err error) error {
	msg := `Cannot write to output directory <em>%s</em>

Use <em>--out</em> to choose another directory.`

	return &gn.Error{
		Code: errcode.OutDirError,
		Msg:  msg,
		Vars: []any{dir},
		Err:  fmt.Errorf("from %s: output directory is not writable: %w", caller(), err),
	}
}
