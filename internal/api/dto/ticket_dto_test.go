package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The assignee field has three wire shapes with distinct meanings; the
// decoder must keep them apart.
func TestAssigneePatch_TriState(t *testing.T) {
	var absent UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x"}`), &absent))
	patch, err := absent.AssigneePatch()
	require.NoError(t, err)
	assert.Nil(t, patch)

	var cleared UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":null}`), &cleared))
	patch, err = cleared.AssigneePatch()
	require.NoError(t, err)
	require.NotNil(t, patch)
	assert.Nil(t, patch.ID)

	var set UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":"agent-1"}`), &set))
	patch, err = set.AssigneePatch()
	require.NoError(t, err)
	require.NotNil(t, patch)
	require.NotNil(t, patch.ID)
	assert.Equal(t, "agent-1", *patch.ID)

	var empty UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":""}`), &empty))
	patch, err = empty.AssigneePatch()
	require.NoError(t, err)
	require.NotNil(t, patch)
	assert.Nil(t, patch.ID)

	var malformed UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"assignee":{"id":"x"}}`), &malformed))
	_, err = malformed.AssigneePatch()
	assert.Error(t, err)
}
