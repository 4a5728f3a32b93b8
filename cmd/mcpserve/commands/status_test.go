package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

func TestSchemeStatusesCoversAllSchemes(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.WebServer.Auth.Enabled = true
	cfg.WebServer.Auth.PermanentServerTokens = []string{"tok-1"}

	statuses := schemeStatuses(cfg)
	require.Len(t, statuses, 5)

	byScheme := make(map[string]SchemeStatus, len(statuses))
	for _, s := range statuses {
		byScheme[s.Scheme] = s
	}

	assert.True(t, byScheme["permanentServerTokens"].Configured)
	assert.False(t, byScheme["basic"].Configured)
	assert.False(t, byScheme["ntlm"].Configured)
}

func TestProbeServerUnreachable(t *testing.T) {
	// Port 1 is never listening in the test environment.
	status := probeServer(1)
	assert.False(t, status.Running)
	assert.False(t, status.Healthy)
}
