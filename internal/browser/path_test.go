package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDir(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"b", "b/"},
		{"/b/c", "b/c/"},
		{"b/c/", "b/c/"},
		{" b ", "b/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDir(tt.in), "NormalizeDir(%q)", tt.in)
	}
}

func TestPathModel_EnterAndUp(t *testing.T) {
	p := NewPathModel()
	assert.Equal(t, "", p.Current())

	p.Enter("b/c")
	assert.Equal(t, "b/c/", p.Current())
	assert.Equal(t, "b/c/x.txt", p.Join("x.txt"))

	assert.True(t, p.Up())
	assert.Equal(t, "b/", p.Current())
	assert.True(t, p.Up())
	assert.Equal(t, "", p.Current())
	assert.False(t, p.Up())
}

func TestPathModel_AscendTo(t *testing.T) {
	p := NewPathModel()
	p.Enter("b/c/d/")

	require.NoError(t, p.AscendTo("b/"))
	assert.Equal(t, "b/", p.Current())

	assert.Error(t, p.AscendTo("x/"), "not an ancestor")
	assert.Equal(t, "b/", p.Current(), "failed jump keeps the path")

	require.NoError(t, p.AscendTo(""))
	assert.Equal(t, "", p.Current())
}

func TestPathModel_AscendToRejectsSiblingPrefix(t *testing.T) {
	p := NewPathModel()
	p.Enter("bc/")
	assert.Error(t, p.AscendTo("b"))
}

func TestPathModel_Breadcrumbs(t *testing.T) {
	p := NewPathModel()
	assert.Equal(t, []Crumb{{Name: "/", Path: ""}}, p.Breadcrumbs())

	p.Enter("b/c/")
	assert.Equal(t, []Crumb{
		{Name: "/", Path: ""},
		{Name: "b", Path: "b/"},
		{Name: "c", Path: "b/c/"},
	}, p.Breadcrumbs())
}

func TestParent(t *testing.T) {
	assert.Equal(t, "", Parent("b/"))
	assert.Equal(t, "b/", Parent("b/c/"))
	assert.Equal(t, "", Parent(""))
}
