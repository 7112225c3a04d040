package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *Model {
	return &Model{
		Name:        "line",
		Replication: ReplicationConfig{Horizon: 100, Count: 1},
		Nodes: []NodeConfig{
			{Name: "src", Kind: "source"},
			{Name: "sink", Kind: "sink"},
		},
	}
}

func TestValidate_AcceptsAMinimalWellFormedModel(t *testing.T) {
	m := validModel()
	m.Nodes[0].Successors = []SuccessorConfig{{Node: "sink", Weight: 1}}
	assert.Empty(t, Validate(m))
}

func TestValidate_RejectsNonPositiveHorizonAndCount(t *testing.T) {
	m := validModel()
	m.Replication.Horizon = 0
	m.Replication.Count = 0
	errs := Validate(m)
	assert.Len(t, errs, 2)
}

func TestValidate_RejectsDuplicateNodeNames(t *testing.T) {
	m := validModel()
	m.Nodes = append(m.Nodes, NodeConfig{Name: "src", Kind: "sink"})
	errs := Validate(m)
	found := false
	for _, e := range errs {
		if ve, ok := e.(*ValidationError); ok && ve.Field == "nodes.src" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_RejectsDanglingSuccessorReferences(t *testing.T) {
	m := validModel()
	m.Nodes[0].Successors = []SuccessorConfig{{Node: "nowhere", Weight: 1}}
	errs := Validate(m)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[len(errs)-1].Error(), "unknown node nowhere")
}

func TestValidate_RejectsParallelOperationWithoutInternalCount(t *testing.T) {
	m := validModel()
	m.Nodes = append(m.Nodes, NodeConfig{Name: "po", Kind: "parallel"})
	errs := Validate(m)
	found := false
	for _, e := range errs {
		if ve, ok := e.(*ValidationError); ok && ve.Field == "nodes.po.internal" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLoad_RoundTripsAYAMLModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	yamlContent := "name: line\n" +
		"replication:\n  horizon: 10\n  count: 1\n" +
		"nodes:\n" +
		"  - name: src\n    kind: source\n    successors:\n      - node: sink\n        weight: 1\n" +
		"  - name: sink\n    kind: sink\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "line", m.Name)
	assert.Len(t, m.Nodes, 2)
	assert.Empty(t, Validate(m))
}

func TestLoad_ReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/model.yaml")
	assert.Error(t, err)
}
