package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "bloomctl", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	paths := [][]string{
		{"signup"},
		{"signin"},
		{"requests", "list"},
		{"requests", "send"},
		{"requests", "accept"},
		{"requests", "decline"},
		{"requests", "cancel"},
		{"today"},
		{"answers"},
		{"answer"},
		{"summarize"},
		{"finalize"},
	}

	for _, path := range paths {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	t.Setenv("BLOOM_TOKEN", "from-env")
	cmd := NewRootCommand()

	tokenFlag := cmd.PersistentFlags().Lookup("token")
	require.NotNil(t, tokenFlag)
	assert.Equal(t, "from-env", tokenFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("server"))
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "yaml", "--token", "t", "today"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMissingToken(t *testing.T) {
	t.Setenv("BLOOM_TOKEN", "")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"requests", "list"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRequestsListText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"incoming":[{"id":"r1","requester_id":"u2","recipient_id":"u1","status":"pending"}],"outgoing":[],"history":[{"id":"r1","requester_id":"u2","recipient_id":"u1","status":"pending"}]}`))
	}))
	defer srv.Close()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--server", srv.URL, "--token", "t", "requests", "list"})
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Incoming (1)")
	assert.Contains(t, out.String(), "Outgoing (0)")
	assert.Contains(t, out.String(), "r1")
}

func TestAcceptJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/couple-requests/r1/accept", r.URL.Path)
		w.Write([]byte(`{"couple_id":"c1"}`))
	}))
	defer srv.Close()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--server", srv.URL, "--token", "t", "--format", "json", "requests", "accept", "r1"})
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	var result map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "c1", result["couple_id"])
}

func TestServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"content is required"}`))
	}))
	defer srv.Close()

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--server", srv.URL, "--token", "t", "answer", "q1", " "})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "content is required")
}

func TestFinalizeRequiresKeys(t *testing.T) {
	cmd := NewRootCommand()
	finalizeCmd, _, err := cmd.Find([]string{"finalize"})
	require.NoError(t, err)

	for _, name := range []string{"front", "back", "late"} {
		assert.NotNil(t, finalizeCmd.Flags().Lookup(name), name)
	}
}
