package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/folioai/chatgate/internal/observability"
)

// exitFunc is replaced in tests.
var exitFunc = os.Exit

// ExitWithCode logs err with the foundry exit code metadata and exits.
// A nil logger falls back to stderr.
func ExitWithCode(logger *logging.Logger, code foundry.ExitCode, msg string, err error) {
	if logger == nil {
		ExitWithCodeStderr(code, msg, err)
		return
	}
	logger.Error(msg, exitFields(code, err)...)
	exitFunc(exitStatus(code))
}

// ExitWithCodeStderr writes the failure to stderr. Used before the CLI logger exists.
func ExitWithCodeStderr(code foundry.ExitCode, msg string, err error) {
	writeExit(os.Stderr, code, msg, err)
	exitFunc(exitStatus(code))
}

func exitStatus(code foundry.ExitCode) int {
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		return info.Code
	}
	return int(code)
}

// exitFields tags a fatal CLI log line with the chatgate service context,
// the exit code and, for chat error envelopes, the error code.
func exitFields(code foundry.ExitCode, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("service", binaryName),
		zap.String("environment", observability.Environment()),
		zap.Int("exit_code", exitStatus(code)),
	}
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fields = append(fields, zap.String("exit_name", info.Name))
	}

	var env *errors.ErrorEnvelope
	if stderrors.As(err, &env) {
		fields = append(fields, zap.String("error_code", env.Code))
		if env.CorrelationID != "" {
			fields = append(fields, zap.String("correlation_id", env.CorrelationID))
		}
		if cause, ok := env.Original.(error); ok {
			err = cause
		}
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

func writeExit(w io.Writer, code foundry.ExitCode, msg string, err error) {
	var env *errors.ErrorEnvelope
	switch {
	case stderrors.As(err, &env):
		fmt.Fprintf(w, "%s: %s [%s]: %s\n", binaryName, msg, env.Code, env.Message)
	case err != nil:
		fmt.Fprintf(w, "%s: %s: %v\n", binaryName, msg, err)
	default:
		fmt.Fprintf(w, "%s: %s\n", binaryName, msg)
	}
	if info, ok := foundry.GetExitCodeInfo(code); ok {
		fmt.Fprintf(w, "exit %d (%s): %s\n", info.Code, info.Name, info.Description)
	}
}
