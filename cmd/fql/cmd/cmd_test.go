package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns its stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	configFile, dbURL, logLevel, logFormat = "", "", "", ""

	var out bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseAndGenerate(t *testing.T) {
	const text = `type = "track" and (event = "A" or event = "B")`

	tree, err := run(t, "", "parse", text)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(tree), &decoded))
	assert.Equal(t, "group", decoded["type"])

	out, err := run(t, tree, "generate", "-")
	require.NoError(t, err)
	assert.Equal(t, text+"\n", out)
}

func TestParse_Stdin(t *testing.T) {
	out, err := run(t, "userId != null\n", "parse")
	require.NoError(t, err)
	assert.Contains(t, out, `"operator": "exists"`)
}

func TestParse_Error(t *testing.T) {
	_, err := run(t, "", "parse", `type ==`)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	event := writeFile(t, "event.json", `{"type":"track","properties":{"total":20}}`)

	out, err := run(t, "", "validate", "--event", event, `properties.total > 10`)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, "", "validate", "--event", event, `properties.total > 30`)
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestSample(t *testing.T) {
	out, err := run(t, "", "sample", "--source", "ios", `event = "Signed Up" and properties.plan = "pro"`)
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &event))
	assert.Equal(t, "track", event["type"])
	assert.Equal(t, "Signed Up", event["event"])
	assert.Equal(t, map[string]any{"plan": "pro"}, event["properties"])
}

func TestStoreAndDispatch(t *testing.T) {
	db := "sqlite://" + filepath.Join(t.TempDir(), "fql.db")

	out, err := run(t, "", "--db-url", db, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "001_subscriptions.sql")

	subs := writeFile(t, "subs.yaml", `
destination: webhook
subscriptions:
  - name: orders
    partnerAction: send
    subscribe: type = "track" and event = "Order Completed"
    enabled: true
    mapping:
      total:
        "@path": $.properties.total
  - name: identifies
    partnerAction: identify
    subscribe: type = "identify"
    enabled: true
`)
	out, err = run(t, "", "--db-url", db, "subscriptions", "import", subs)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	_, err = run(t, "", "--db-url", db, "subscriptions", "add",
		"--destination", "webhook", "--name", "broken", "--action", "send", "--subscribe", `type ==`)
	assert.Error(t, err)

	out, err = run(t, "", "--db-url", db, "subscriptions", "list", "--destination", "webhook")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATED")
	assert.Regexp(t, `orders\s+send\s+true\s+\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z`, out)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "identifies")
	assert.NotContains(t, out, "broken")

	events := `{"type":"track","event":"Order Completed","properties":{"total":99}}
{"type":"page","name":"Home"}
`
	out, err = run(t, events, "--db-url", db, "--log-level", "error", "dispatch", "--destination", "webhook")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var echoed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &echoed))
	assert.Equal(t, "send", echoed["action"])
	assert.Equal(t, map[string]any{"total": float64(99)}, echoed["payload"])
}
