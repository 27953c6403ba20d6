package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	content := `[
		{"id": 1, "name": "books", "preferable": true},
		{"id": 2, "name": "electronics", "preferable": true},
		{"id": 3, "name": "internal", "preferable": false}
	]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, c.All(), 3)
	assert.True(t, c.IsPreferable(1))
	assert.True(t, c.IsPreferable(2))
	assert.False(t, c.IsPreferable(3))
	assert.False(t, c.IsPreferable(42))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "labels.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAllPreferable(t *testing.T) {
	c := NewCatalog([]Label{
		{ID: 1, Name: "books", Preferable: true},
		{ID: 2, Name: "electronics", Preferable: true},
		{ID: 3, Name: "internal", Preferable: false},
	})

	tests := []struct {
		name string
		ids  []int
		want bool
	}{
		{"all preferable", []int{1, 2}, true},
		{"empty set", nil, true},
		{"contains non-preferable", []int{1, 3}, false},
		{"unknown id", []int{1, 99}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.AllPreferable(tt.ids))
		})
	}
}
