package core_test

import (
	"testing"

	"github.com/compozy/extsort/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Run("Should generate unique IDs", func(t *testing.T) {
		id1, err := core.NewID()
		require.NoError(t, err)
		id2, err := core.NewID()
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)
	})
	t.Run("Should generate 27 character KSUIDs", func(t *testing.T) {
		id, err := core.NewID()
		require.NoError(t, err)
		assert.Len(t, id.String(), 27)
	})
}
