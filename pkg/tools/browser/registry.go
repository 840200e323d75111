package browser

import (
	"github.com/entrhq/camoufox-mcp/pkg/logging"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// toolset carries what every handler needs. Handlers are methods on it so
// the Manager is injected once instead of looked up globally.
type toolset struct {
	m         *Manager
	t         timeouts
	artifacts *ArtifactWriter
	logger    *logging.Logger
	version   string
}

// page resolves the tab a page tool operates on.
func (s *toolset) page(target TabTarget) (*Tab, error) {
	return s.m.Tab(target.TabID)
}

// ToolRegistry builds the browser tools around one Manager.
type ToolRegistry struct {
	manager   *Manager
	artifacts *ArtifactWriter
	version   string
	tools     []tools.Tool
}

// NewToolRegistry creates a new browser tool registry.
func NewToolRegistry(manager *Manager, artifacts *ArtifactWriter, version string) *ToolRegistry {
	return &ToolRegistry{
		manager:   manager,
		artifacts: artifacts,
		version:   version,
	}
}

// RegisterTools creates and returns all browser tools in the order they are
// advertised to clients.
func (r *ToolRegistry) RegisterTools() []tools.Tool {
	if len(r.tools) > 0 {
		return r.tools
	}

	s := &toolset{
		m:         r.manager,
		t:         timeouts{cfg: r.manager.cfg.Timeouts},
		artifacts: r.artifacts,
		logger:    logging.NewLogger("tools"),
		version:   r.version,
	}

	groups := [][]tools.Tool{
		s.lifecycleTools(),
		s.navigationTools(),
		s.clickTools(),
		s.fillTools(),
		s.extractionTools(),
		s.searchTools(),
		s.networkTools(),
		s.screenshotTools(),
		s.evaluateTools(),
		s.waitTools(),
		s.storageTools(),
		s.frameTools(),
		s.compoundTools(),
		s.mouseTools(),
		s.accessibilityTools(),
		s.assertionTools(),
		s.emulationTools(),
		s.deviceTools(),
		s.tracingTools(),
		s.performanceTools(),
		s.analysisTools(),
		s.inspectTools(),
		s.stateTools(),
		s.debugTools(),
	}
	for _, g := range groups {
		r.tools = append(r.tools, g...)
	}
	return r.tools
}

// GetSessionManager returns the underlying session manager.
func (r *ToolRegistry) GetSessionManager() *Manager {
	return r.manager
}
