package browser

import (
	"context"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type pageRefParams struct {
	PageID string `json:"page_id"`
}

func (s *toolset) lifecycleTools() []tools.Tool {
	return []tools.Tool{
		tools.New("launch_browser",
			"Launch the Camoufox anti-detect browser. Opens tab \"0\" as the current tab. Fails with AlreadyLaunched if a browser is running.",
			tools.BaseToolSchema(map[string]interface{}{
				"headless":       tools.Boolean("Run without a visible window (defaults to the server setting; the live viewer forces headed mode)"),
				"proxy_server":   tools.String("Proxy as host:port or http://, https://, socks4:// or socks5:// URL"),
				"proxy_username": tools.String("Proxy username"),
				"proxy_password": tools.String("Proxy password"),
				"os_type":        tools.Enum("Operating system fingerprint to spoof", osProfiles...),
				"humanize":       tools.Boolean("Human-like cursor movement (defaults to the server setting)"),
				"geoip":          tools.Boolean("Derive geolocation and timezone from the exit IP"),
				"block_images":   tools.Boolean("Block image loading for faster scraping"),
				"locale":         tools.String("Browser locale, e.g. en-US"),
			}, nil),
			s.launchBrowser),

		tools.New("close_browser",
			"Close the browser and every tab. Calling it when no browser runs is a no-op.",
			tools.BaseToolSchema(nil, nil),
			s.closeBrowser),

		tools.New("new_page",
			"Open a new tab and make it current. Returns the tab id.",
			tools.BaseToolSchema(map[string]interface{}{
				"page_id": tools.String("Optional label for the tab, usable wherever a tab id is accepted"),
			}, nil),
			s.newPage),

		tools.New("switch_page",
			"Make another tab current.",
			tools.BaseToolSchema(map[string]interface{}{
				"page_id": tools.String("Tab id or label"),
			}, []string{"page_id"}),
			s.switchPage),

		tools.New("list_pages",
			"List open tabs with their URL, title and which one is current.",
			tools.BaseToolSchema(nil, nil),
			s.listPages),

		tools.New("close_page",
			"Close a tab. If it was current, the lowest remaining tab id becomes current. The last tab cannot be closed.",
			tools.BaseToolSchema(map[string]interface{}{
				"page_id": tools.String("Tab id or label"),
			}, []string{"page_id"}),
			s.closePage),
	}
}

func (s *toolset) launchBrowser(ctx context.Context, p LaunchOptions) (any, error) {
	return s.m.Launch(ctx, p)
}

func (s *toolset) closeBrowser(ctx context.Context, _ tools.Empty) (any, error) {
	wasRunning, err := s.m.Close(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"closed": wasRunning}, nil
}

func (s *toolset) newPage(ctx context.Context, p pageRefParams) (any, error) {
	return s.m.NewPage(ctx, p.PageID)
}

func (s *toolset) switchPage(ctx context.Context, p pageRefParams) (any, error) {
	return s.m.SwitchPage(p.PageID)
}

func (s *toolset) listPages(ctx context.Context, _ tools.Empty) (any, error) {
	pages, err := s.m.ListPages(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"pages": pages, "count": len(pages)}, nil
}

func (s *toolset) closePage(ctx context.Context, p pageRefParams) (any, error) {
	return s.m.ClosePage(ctx, p.PageID)
}
