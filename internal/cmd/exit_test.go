package cmd

import (
	"bytes"
	"fmt"
	"os"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	apperrors "github.com/folioai/chatgate/internal/errors"
)

func encodeFields(t *testing.T, code foundry.ExitCode, err error) map[string]any {
	t.Helper()
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range exitFields(code, err) {
		f.AddTo(enc)
	}
	return enc.Fields
}

func TestExitFieldsCarryServiceContext(t *testing.T) {
	t.Setenv("CHATGATE_ENV", "staging")

	fields := encodeFields(t, foundry.ExitConfigInvalid, fmt.Errorf("stats.driver %q is not one of memory, redis, none", "sqlite"))
	assert.Equal(t, "chatgate", fields["service"])
	assert.Equal(t, "staging", fields["environment"])
	assert.Equal(t, int64(foundry.ExitConfigInvalid), fields["exit_code"])
	assert.NotEmpty(t, fields["exit_name"])
	assert.Contains(t, fields["error"], "sqlite")
	assert.NotContains(t, fields, "error_code")
}

func TestExitFieldsUnwrapEnvelope(t *testing.T) {
	env := apperrors.NewInternalError("Logger not initialized")

	fields := encodeFields(t, foundry.ExitFailure, fmt.Errorf("health: %w", env))
	assert.Equal(t, apperrors.CodeInternal, fields["error_code"])
}

func TestWriteExitFormats(t *testing.T) {
	var buf bytes.Buffer
	writeExit(&buf, foundry.ExitExternalServiceUnavailable, "Stats backend unreachable", fmt.Errorf("dial tcp: refused"))
	out := buf.String()
	assert.Contains(t, out, "chatgate: Stats backend unreachable: dial tcp: refused")
	assert.Contains(t, out, fmt.Sprintf("exit %d", int(foundry.ExitExternalServiceUnavailable)))

	buf.Reset()
	writeExit(&buf, foundry.ExitConfigInvalid, "Logger not initialized", apperrors.NewInternalError("Logger not initialized"))
	assert.Contains(t, buf.String(), "[INTERNAL_SERVER_ERROR]")

	buf.Reset()
	writeExit(&buf, foundry.ExitFailure, "Command execution failed", nil)
	assert.Contains(t, buf.String(), "chatgate: Command execution failed\n")
}

func TestExitWithCodeNilLoggerExitsWithCode(t *testing.T) {
	var got []int
	exitFunc = func(code int) { got = append(got, code) }
	t.Cleanup(func() { exitFunc = os.Exit })

	ExitWithCode(nil, foundry.ExitConfigInvalid, "Configuration invalid", nil)
	require.Len(t, got, 1)
	assert.Equal(t, int(foundry.ExitConfigInvalid), got[0])
}
