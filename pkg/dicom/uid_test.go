package dicom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		uid := GenerateUID()
		assert.True(t, strings.HasPrefix(uid, "2.25."), uid)
		assert.LessOrEqual(t, len(uid), 64)
		assert.True(t, ValidUID(uid), uid)
		assert.False(t, seen[uid])
		seen[uid] = true
	}
}

func TestGenerateUIDWithPrefix(t *testing.T) {
	uid := GenerateUIDWithPrefix("1.2.826.0.1.3680043.8.498")
	assert.True(t, strings.HasPrefix(uid, "1.2.826.0.1.3680043.8.498."), uid)
	assert.True(t, ValidUID(uid), uid)

	long := strings.Repeat("1.", 30) + "1"
	assert.True(t, strings.HasPrefix(GenerateUIDWithPrefix(long), "2.25."))
}

func TestValidUID(t *testing.T) {
	assert.True(t, ValidUID("1.2.840.10008.1.1"))
	assert.True(t, ValidUID("1.2.0.3"))
	assert.False(t, ValidUID(""))
	assert.False(t, ValidUID("1.2."))
	assert.False(t, ValidUID(".1.2"))
	assert.False(t, ValidUID("1..2"))
	assert.False(t, ValidUID("1.02"))
	assert.False(t, ValidUID("1.2a"))
	assert.False(t, ValidUID(strings.Repeat("1", 65)))
}
