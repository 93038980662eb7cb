package rules

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
databases:
  - name: main
    url: http://localhost:3000
    tables:
      Logs:
        visible: false
      Users:
        rename: People
        columns:
          email:
            default_view: false
            rename: E-mail
          password:
            visible: false
  - name: archive
    url: postgres://localhost:5432/archive
`

func TestParse_Lookups(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	url, ok := c.DatabaseURL(0)
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:3000", url)
	assert.Equal(t, "archive", c.Name(1))
	assert.Equal(t, "db5", c.Name(5))

	v, ok := c.TableVisible(0, "Logs")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = c.TableVisible(0, "Users")
	assert.False(t, ok, "Users has no visible rule")

	name, ok := c.TableRename(0, "Users")
	assert.True(t, ok)
	assert.Equal(t, "People", name)

	v, ok = c.ColumnVisible(0, "Users", "password")
	assert.True(t, ok)
	assert.False(t, v)

	assert.False(t, c.ColumnInDefaultView(0, "Users", "email"))
	assert.True(t, c.ColumnInDefaultView(0, "Users", "id"))
	assert.True(t, c.ColumnInDefaultView(1, "Users", "email"), "other database has no rules")
}

func TestCatalog_UnknownIndex(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	_, ok := c.DatabaseURL(7)
	assert.False(t, ok)
	_, ok = c.DatabaseURL(-1)
	assert.False(t, ok)
	_, ok = c.TableVisible(9, "Logs")
	assert.False(t, ok)

	var nilCatalog *Catalog
	_, ok = nilCatalog.DatabaseURL(0)
	assert.False(t, ok)
	assert.Equal(t, 0, nilCatalog.Len())
}

func TestHelpers(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	assert.True(t, TableHidden(c, 0, "Logs"))
	assert.False(t, TableHidden(c, 0, "Users"))
	assert.False(t, TableHidden(c, 0, "Unknown"))
	assert.True(t, ColumnHidden(c, 0, "Users", "password"))
	assert.False(t, ColumnHidden(c, 0, "Users", "email"))

	assert.Equal(t, "People", TableDisplayName(c, 0, "Users"))
	assert.Equal(t, "Logs", TableDisplayName(c, 0, "Logs"))
	assert.Equal(t, "E-mail", ColumnDisplayName(c, 0, "Users", "email"))
	assert.Equal(t, "id", ColumnDisplayName(c, 0, "Users", "id"))
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("databases:\n  - name: nourl\n"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Parse([]byte("databases: [\n"))
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = Parse([]byte("databses: []\n"))
	require.Error(t, err, "unknown keys are rejected")
}

func TestParse_Empty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

type memObject struct {
	io.Reader
	info *filestore.ObjectInfo
}

func (o *memObject) Close() error                { return nil }
func (o *memObject) Info() *filestore.ObjectInfo { return o.info }

type memStore struct {
	objects map[string]string
}

func (s *memStore) Ping(context.Context) error { return nil }
func (s *memStore) Close() error               { return nil }

func (s *memStore) GetObject(_ context.Context, bucket, key string) (filestore.Object, error) {
	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &memObject{Reader: strings.NewReader(body), info: &filestore.ObjectInfo{Key: key}}, nil
}

func (s *memStore) StatObject(_ context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	if _, ok := s.objects[bucket+"/"+key]; !ok {
		return nil, errs.New(errs.ErrKindNotFound, "no such key")
	}
	return &filestore.ObjectInfo{Key: key}, nil
}

func TestLoadFromStore(t *testing.T) {
	store := &memStore{objects: map[string]string{"config/rules.yaml": sampleCatalog}}

	c, err := LoadFromStore(context.Background(), store, "config", "rules.yaml")
	require.NoError(t, err)
	assert.Equal(t, "main", c.Name(0))

	_, err = LoadFromStore(context.Background(), store, "config", "other.yaml")
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestSplitObjectPath(t *testing.T) {
	bucket, key, ok := SplitObjectPath("s3://config/envs/rules.yaml")
	assert.True(t, ok)
	assert.Equal(t, "config", bucket)
	assert.Equal(t, "envs/rules.yaml", key)

	for _, p := range []string{"rules.yaml", "s3://", "s3://bucket", "s3:///key"} {
		_, _, ok := SplitObjectPath(p)
		assert.False(t, ok, p)
	}
}
