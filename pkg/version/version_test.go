package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("Should report the injected build variables", func(t *testing.T) {
		old := Version
		Version = "v1.2.3"
		t.Cleanup(func() { Version = old })
		info := Get()
		assert.Equal(t, "v1.2.3", info.Version)
		assert.Equal(t, CommitHash, info.CommitHash)
		assert.Equal(t, "v1.2.3 (commit "+CommitHash+", built "+BuildDate+")", info.String())
	})
}
