package iologger

import (
	"fmt"

	"github.com/gnames/cinder/pkg/errcode"
	"github.com/gnames/gn"
)

// CreateLogFileError is returned when the log file cannot be opened.
// Use log.destination 'stderr' to run without a log file.
func CreateLogFileError(path string, err error) error {
	msg := `Cannot open log file <em>%s</em>

Set <em>CINDER_LOG_DESTINATION=stderr</em> to log to the console.`

	return &gn.Error{
		Code: errcode.CreateLogFileError,
		Msg:  msg,
		Vars: []any{path},
		Err:  fmt.Errorf("cannot open log file %s: %w", path, err),
	}
}
