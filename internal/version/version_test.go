package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "v1.2.3"
	assert.Equal(t, "texbuild v1.2.3 (commit "+GitCommit+", built "+BuildTime+")", String())
}
