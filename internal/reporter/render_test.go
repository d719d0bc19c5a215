package reporter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleReporter() *Reporter {
	r := New(WithClock(fixedClock))
	r.AddList("List")
	r.AddTest("Case 1")
	r.AddStepGroup("SETUP")
	r.Add(StatusPass, "prepare", "doing something")
	r.EndStepGroup()
	r.Add(StatusFail, "login", "")
	r.EndTest()
	r.EndList()
	return r
}

func TestText(t *testing.T) {
	text := sampleReporter().Text()
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	require.Len(t, lines, 7)

	assert.Equal(t, "[2024-05-01 10:00:00]Root", lines[0])
	assert.Equal(t, "++[2024-05-01 10:00:00][TestList]List", lines[1])

	assert.True(t, strings.HasPrefix(lines[2], "++++[2024-05-01 10:00:00][TestCase]Case 1---"))
	assert.True(t, strings.HasSuffix(lines[2], "FAIL"))
	assert.Len(t, lines[2], 120+len("FAIL"))

	assert.True(t, strings.HasPrefix(lines[3], "++++++[2024-05-01 10:00:00]SETUP-"))
	assert.True(t, strings.HasSuffix(lines[3], "PASS"))
	assert.True(t, strings.HasSuffix(lines[4], "PASS"))
	assert.Equal(t, "++++++++Description: doing something", lines[5])
	assert.True(t, strings.HasSuffix(lines[6], "FAIL"))
}

func TestTextLongHeaderIsNotPadded(t *testing.T) {
	r := New(WithClock(fixedClock))
	long := strings.Repeat("x", 130)
	r.Add(StatusPass, long, "")

	lines := strings.Split(strings.TrimRight(r.Text(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "++[2024-05-01 10:00:00]"+long+"PASS", lines[1])
}

func TestJSONExport(t *testing.T) {
	data, err := sampleReporter().JSON()
	require.NoError(t, err)

	var root Node
	require.NoError(t, json.Unmarshal(data, &root))
	assert.Equal(t, "Root", root.Header)
	assert.Equal(t, NodeOther, root.Type)
	require.Len(t, root.Children, 1)
	list := root.Children[0]
	assert.Equal(t, NodeTestList, list.Type)
	assert.Equal(t, StatusFail, list.Status)
	assert.Contains(t, string(data), `"status": "FAIL"`)
	assert.Contains(t, string(data), `"type": "Case"`)
}

func TestYAMLExport(t *testing.T) {
	data, err := sampleReporter().YAML()
	require.NoError(t, err)

	var root map[string]any
	require.NoError(t, yaml.Unmarshal(data, &root))
	assert.Equal(t, "Root", root["header"])
	assert.Equal(t, "Other", root["type"])
	assert.Contains(t, string(data), "status: FAIL")
}
