package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorMessage(t *testing.T) {
	err := NewExitError(ExitFailure, "validation failed")
	assert.Equal(t, "validation failed", err.Error())

	wrapped := WrapExitError(ExitCommandError, "loading ontology", errors.New("no such file"))
	assert.Equal(t, "loading ontology: no such file", wrapped.Error())
	assert.Equal(t, "no such file", wrapped.Unwrap().Error())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "bad")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitFailure, "inner"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}

func TestFormatterTextSuccess(t *testing.T) {
	out := &bytes.Buffer{}
	f := NewOutputFormatter("text", out, &bytes.Buffer{}, false)
	require.NoError(t, f.Success("all good"))
	assert.Equal(t, "all good\n", out.String())
}

func TestFormatterJSONSuccess(t *testing.T) {
	out := &bytes.Buffer{}
	f := NewOutputFormatter("json", out, &bytes.Buffer{}, false)
	require.NoError(t, f.Success(map[string]int{"count": 3}))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
}

func TestFormatterFailureGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := NewOutputFormatter("text", out, errOut, false)
	require.NoError(t, f.Failure("VALIDATION_FAILED", "2 diagnostics", nil))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "2 diagnostics")
}

func TestFormatterJSONFailureOnStdout(t *testing.T) {
	out := &bytes.Buffer{}
	f := NewOutputFormatter("json", out, &bytes.Buffer{}, false)
	require.NoError(t, f.Failure("PLAN_FAILED", "unknown capability", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PLAN_FAILED", resp.Error.Code)
}

func TestVerboseLogSuppressedInJSONMode(t *testing.T) {
	errOut := &bytes.Buffer{}

	f := NewOutputFormatter("json", &bytes.Buffer{}, errOut, true)
	f.VerboseLog("loading %s", "ontology.yaml")
	assert.Empty(t, errOut.String())

	f = NewOutputFormatter("text", &bytes.Buffer{}, errOut, true)
	f.VerboseLog("loading %s", "ontology.yaml")
	assert.Contains(t, errOut.String(), "loading ontology.yaml")
}
