package migrations

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDDL(t *testing.T) {
	got := SplitDDL(`
-- comment
CREATE TABLE a (
  id STRING(36) NOT NULL,
) PRIMARY KEY (id);

CREATE INDEX idx ON a (id);
`)
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "CREATE TABLE a ("))
	assert.Equal(t, "CREATE INDEX idx ON a (id)", got[1])
	assert.Empty(t, SplitDDL("-- only a comment\n"))
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"002_b.sql":  {Data: []byte("CREATE INDEX i ON t (c);")},
		"001_a.sql":  {Data: []byte("CREATE TABLE t (c INT64) PRIMARY KEY (c);")},
		"README.txt": {Data: []byte("ignored")},
	}

	got, err := Load(fsys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "001_a.sql", got[0].Name)
	assert.Equal(t, "002_b.sql", got[1].Name)
}

func TestAll(t *testing.T) {
	got, err := All()
	require.NoError(t, err)
	require.NotEmpty(t, got)

	var tables []string
	for _, m := range got {
		for _, stmt := range m.Statements {
			if strings.HasPrefix(stmt, "CREATE TABLE ") {
				tables = append(tables, strings.Fields(stmt)[2])
			}
		}
	}
	assert.ElementsMatch(t, []string{"entities", "outbox_events"}, tables)
}
