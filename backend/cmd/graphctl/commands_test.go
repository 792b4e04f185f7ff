package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedThenGraph_SQLite(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "ctl.db"))

	out, err := run(t, "seed", "--tables", "2", "--rows", "3", "--seed", "42")
	require.NoError(t, err)
	var summary struct {
		Rows int `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 6, summary.Rows)

	out, err = run(t, "graph")
	require.NoError(t, err)
	var graph struct {
		Nodes []struct {
			ID string `json:"id"`
		} `json:"nodes"`
		Links []json.RawMessage `json:"links"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &graph))
	require.NotEmpty(t, graph.Nodes)
	assert.NotEmpty(t, graph.Links)

	out, err = run(t, "neighbors", graph.Nodes[0].ID, "--hops", "0")
	require.NoError(t, err)
	var n struct {
		Nodes []string `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &n))
	assert.Equal(t, []string{graph.Nodes[0].ID}, n.Nodes)

	out, err = run(t, "regenerate", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, `"regenerated": 6`)
}

func TestRegenerate_RequiresRows(t *testing.T) {
	t.Setenv("ENV", "test")
	_, err := run(t, "--driver", "memory", "regenerate")
	assert.Error(t, err)
}

func TestUnknownDriver(t *testing.T) {
	_, err := run(t, "--driver", "mongo", "graph")
	assert.Error(t, err)
}
