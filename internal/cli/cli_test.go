package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openClaims = `{"dataSourceId":"claims","fields":[{"fieldId":"claim_number"}],` +
	`"filters":[{"fieldId":"status","operator":"eq","value":"open"}],` +
	`"sorting":[{"fieldId":"claim_number","direction":"asc"}]}`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"compile", "sources", "run"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "", "sources", "--format", "yaml")
	assert.ErrorContains(t, err, `invalid format "yaml"`)
}

func TestCompileCommand(t *testing.T) {
	path := writeFile(t, "report.json", openClaims)

	out, err := execute(t, "", "compile", path, "--org", "org-1", "--format", "json")
	require.NoError(t, err)

	var got compileOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t,
		`SELECT "claims"."claim_number" AS "claim_number" FROM "claims" `+
			`WHERE "claims"."organization_id" = $1 AND ("claims"."status" = $2) `+
			`ORDER BY "claims"."claim_number" ASC LIMIT $3 OFFSET $4`,
		got.SQL)
	assert.Equal(t, []any{"org-1", "open", float64(1000), float64(0)}, got.Params)
}

func TestCompileCommandStdinText(t *testing.T) {
	out, err := execute(t, openClaims, "compile", "-", "--org", "org-1", "--placeholder", "question")
	require.NoError(t, err)
	assert.Contains(t, out, `"claims"."organization_id" = ?`)
	assert.Contains(t, out, "  $2 = open\n")
}

func TestCompileCommandErrors(t *testing.T) {
	path := writeFile(t, "report.json", `{"dataSourceId":"invalid_source","fields":[]}`)

	_, err := execute(t, "", "compile", path)
	assert.ErrorContains(t, err, "Invalid data source: invalid_source")

	_, err = execute(t, "", "compile", path, "--placeholder", "colon")
	assert.ErrorContains(t, err, "invalid placeholder")

	_, err = execute(t, "", "compile", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSourcesCommand(t *testing.T) {
	out, err := execute(t, "", "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "claims (")
	assert.Contains(t, out, "claim_number")
	assert.Contains(t, out, "joins: claim_deadlines, organization_members")
}

func TestRunCommandSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reports.sqlite")
	conn, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = conn.Exec(`
CREATE TABLE claims (id TEXT, organization_id TEXT, claim_number TEXT, status TEXT);
INSERT INTO claims VALUES
	('c1', 'org-1', 'C-2', 'open'),
	('c2', 'org-1', 'C-1', 'open'),
	('c3', 'org-1', 'C-3', 'closed'),
	('c4', 'org-2', 'C-4', 'open');`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	cfgPath := writeFile(t, "report.json", openClaims)

	out, err := execute(t, "", "run", cfgPath, "--db", dbPath, "--org", "org-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "claim_number\nC-1\nC-2\n(2 rows, "), out)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	_, err = execute(t, "", "run", cfgPath, "--db", dbPath, "--org", "org-1", "--export", "csv", "-o", csvPath)
	require.NoError(t, err)
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "claim_number\nC-1\nC-2\n", string(data))

	_, err = execute(t, "", "run", cfgPath, "--db", dbPath)
	assert.ErrorContains(t, err, "MissingTenant")
}

func TestRunCommandRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfgPath := writeFile(t, "report.json", openClaims)
	_, err := execute(t, "", "run", cfgPath)
	assert.ErrorContains(t, err, "--database-url or --db")
}
