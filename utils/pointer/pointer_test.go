package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfGet(t *testing.T) {
	assert.Equal(t, int64(0), Get[int64](nil))
	assert.Equal(t, int64(42), Get(Of(int64(42))))
	assert.Equal(t, "", Get[string](nil))
}
