package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProvisionalIDs(t *testing.T) {
	taskID := NewTaskID()
	listID := NewListID()

	assert.True(t, taskID.Provisional())
	assert.True(t, listID.Provisional())
	assert.True(t, strings.HasPrefix(string(listID), "temp_list_"))
	assert.True(t, strings.HasPrefix(string(taskID), "temp_"))

	// Server-assigned identifiers never carry the reserved prefix
	assert.False(t, ID("MTIzNDU2Nzg5").Provisional())
	assert.False(t, ID("").Provisional())
}

func TestProvisionalIDsUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := NewTaskID()
		assert.False(t, seen[id], "duplicate provisional id %s", id)
		seen[id] = true
	}
}
