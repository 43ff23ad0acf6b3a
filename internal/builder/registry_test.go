package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texbuild/internal/errors"
)

func TestNew(t *testing.T) {
	root := newRoot(t, "doc.tex")

	b, err := New("basic", Settings{RootFile: root})
	require.NoError(t, err)
	assert.Equal(t, "Basic Builder", b.Name())

	b, err = New(" Traditional ", Settings{RootFile: root})
	require.NoError(t, err)
	assert.Equal(t, "Traditional Builder", b.Name())

	b, err = New("edas", Settings{RootFile: root})
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))

	b, err = New("basic", Settings{})
	require.Error(t, err)
	assert.Nil(t, b)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"basic", "traditional"}, Names())
}
