package rules

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/filestore"
	"go.yaml.in/yaml/v3"
)

// ColumnRule holds the rules for one column. Nil fields are absent.
type ColumnRule struct {
	Visible     *bool   `yaml:"visible"`
	Rename      *string `yaml:"rename"`
	DefaultView *bool   `yaml:"default_view"`
}

// TableRule holds the rules for one table and its columns.
type TableRule struct {
	Visible *bool                 `yaml:"visible"`
	Rename  *string               `yaml:"rename"`
	Columns map[string]ColumnRule `yaml:"columns"`
}

// Database is one configured schema endpoint.
type Database struct {
	Name   string               `yaml:"name"`
	URL    string               `yaml:"url"`
	Tables map[string]TableRule `yaml:"tables"`
}

// Catalog is the YAML-backed Provider.
type Catalog struct {
	Databases []Database `yaml:"databases"`
}

var _ Provider = (*Catalog)(nil)

// Parse decodes a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid rules catalog", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "rules catalog not found", err)
		}
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "cannot read rules catalog", err)
	}
	return Parse(data)
}

// LoadFromStore reads the catalog from an object in bucket.
func LoadFromStore(ctx context.Context, store filestore.Store, bucket, key string) (*Catalog, error) {
	obj, err := store.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "cannot read rules object", err)
	}
	return Parse(data)
}

// SplitObjectPath splits "s3://bucket/key" into bucket and key.
func SplitObjectPath(path string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(path, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (c *Catalog) validate() error {
	for i, db := range c.Databases {
		if strings.TrimSpace(db.URL) == "" {
			return errs.Newf(errs.ErrKindInvalidInput, "database %d (%s): url is required", i, db.Name)
		}
	}
	return nil
}

func (c *Catalog) database(idx DbIndex) (*Database, bool) {
	if c == nil || idx < 0 || int(idx) >= len(c.Databases) {
		return nil, false
	}
	return &c.Databases[idx], true
}

func (c *Catalog) table(idx DbIndex, table string) (TableRule, bool) {
	db, ok := c.database(idx)
	if !ok {
		return TableRule{}, false
	}
	t, ok := db.Tables[table]
	return t, ok
}

func (c *Catalog) column(idx DbIndex, table, column string) (ColumnRule, bool) {
	t, ok := c.table(idx, table)
	if !ok {
		return ColumnRule{}, false
	}
	col, ok := t.Columns[column]
	return col, ok
}

// Len returns the number of configured databases.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Databases)
}

// Name returns the configured name of idx, or "db<idx>".
func (c *Catalog) Name(idx DbIndex) string {
	if db, ok := c.database(idx); ok && db.Name != "" {
		return db.Name
	}
	return fmt.Sprintf("db%d", idx)
}

func (c *Catalog) DatabaseURL(idx DbIndex) (string, bool) {
	db, ok := c.database(idx)
	if !ok {
		return "", false
	}
	return db.URL, true
}

func (c *Catalog) TableVisible(idx DbIndex, table string) (bool, bool) {
	t, ok := c.table(idx, table)
	if !ok || t.Visible == nil {
		return false, false
	}
	return *t.Visible, true
}

func (c *Catalog) TableRename(idx DbIndex, table string) (string, bool) {
	t, ok := c.table(idx, table)
	if !ok || t.Rename == nil {
		return "", false
	}
	return *t.Rename, true
}

func (c *Catalog) ColumnVisible(idx DbIndex, table, column string) (bool, bool) {
	col, ok := c.column(idx, table, column)
	if !ok || col.Visible == nil {
		return false, false
	}
	return *col.Visible, true
}

func (c *Catalog) ColumnRename(idx DbIndex, table, column string) (string, bool) {
	col, ok := c.column(idx, table, column)
	if !ok || col.Rename == nil {
		return "", false
	}
	return *col.Rename, true
}

func (c *Catalog) ColumnInDefaultView(idx DbIndex, table, column string) bool {
	col, ok := c.column(idx, table, column)
	if !ok || col.DefaultView == nil {
		return true
	}
	return *col.DefaultView
}
