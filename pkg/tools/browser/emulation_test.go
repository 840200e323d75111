package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func intPtr(v int) *int { return &v }

func TestResolveConditions(t *testing.T) {
	nc, err := resolveConditions(emulateNetworkParams{})
	require.NoError(t, err)
	assert.Equal(t, NetworkConditions{DownloadThroughput: -1, UploadThroughput: -1}, nc)

	nc, err = resolveConditions(emulateNetworkParams{Preset: "Slow-3G"})
	require.NoError(t, err)
	assert.Equal(t, "slow_3g", nc.Preset)
	assert.Equal(t, 400, nc.LatencyMS)
	assert.False(t, nc.Offline)

	offline := true
	nc, err = resolveConditions(emulateNetworkParams{Preset: "wifi", Latency: intPtr(75), Offline: &offline, UploadThroughput: intPtr(1000)})
	require.NoError(t, err)
	assert.Equal(t, 75, nc.LatencyMS)
	assert.True(t, nc.Offline)
	assert.Equal(t, 1000, nc.UploadThroughput)
	assert.Equal(t, networkPresets["wifi"].DownloadThroughput, nc.DownloadThroughput)
}

func TestResolveConditionsRejects(t *testing.T) {
	_, err := resolveConditions(emulateNetworkParams{Preset: "dialup"})
	require.Error(t, err)
	assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err))
	assert.Contains(t, err.Error(), "slow_3g")

	_, err = resolveConditions(emulateNetworkParams{Latency: intPtr(-5)})
	assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err))
}
