package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/voicecampaign-backend/internal/model"
)

func TestMetadataValueScan(t *testing.T) {
	in := model.CampaignMetadata{
		RemoteCampaignID: "corr-1",
		Agents:           []model.RoutingAgent{{AgentID: "a1", PhoneNumberID: "p1"}},
		Recipients: []model.RecipientInput{
			{PhoneNumber: "+1", Variables: map[string]string{"city": "Lima"}},
		},
	}

	v, err := in.Value()
	require.NoError(t, err)
	raw, ok := v.(string)
	require.True(t, ok, "metadata must be sent as text")

	var out model.CampaignMetadata
	require.NoError(t, out.Scan([]byte(raw)))
	assert.Equal(t, model.MetadataSchemaVersion, out.SchemaVersion)
	assert.Equal(t, "corr-1", out.RemoteCampaignID)
	assert.Equal(t, in.Recipients, out.Recipients)
}

func TestMetadataScanEmpty(t *testing.T) {
	for name, src := range map[string]any{"nil": nil, "empty bytes": []byte{}, "empty string": ""} {
		t.Run(name, func(t *testing.T) {
			m := model.CampaignMetadata{RemoteCampaignID: "stale"}
			require.NoError(t, m.Scan(src))
			assert.Equal(t, model.CampaignMetadata{}, m)
		})
	}

	var m model.CampaignMetadata
	assert.Error(t, m.Scan(42))
	assert.Error(t, m.Scan([]byte("{not json")))
}

func TestSnapshotVariablesKeepsFirstOccurrence(t *testing.T) {
	m := model.CampaignMetadata{Recipients: []model.RecipientInput{
		{PhoneNumber: "+1", Variables: map[string]string{"city": "Lima"}},
		{PhoneNumber: "+2"},
		{PhoneNumber: "+1", Variables: map[string]string{"city": "Quito"}},
	}}

	vars := m.SnapshotVariables()
	assert.Len(t, vars, 2)
	assert.Equal(t, "Lima", vars["+1"]["city"])
	assert.Nil(t, vars["+2"])
}

func TestStatusHelpers(t *testing.T) {
	assert.True(t, model.CampaignCancelled.Terminal())
	assert.False(t, model.CampaignProcessing.Terminal())
	assert.Equal(t, model.CampaignCancelled, model.ParseCampaignStatus("canceled"))
	assert.Equal(t, model.CampaignProcessing, model.ParseCampaignStatus("something-new"))
}
