package browser

import (
	"context"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

// Web storage areas reachable from page scripts.
const (
	areaLocal   = "localStorage"
	areaSession = "sessionStorage"
)

var sameSiteValues = map[string]*playwright.SameSiteAttribute{
	"strict": playwright.SameSiteAttributeStrict,
	"lax":    playwright.SameSiteAttributeLax,
	"none":   playwright.SameSiteAttributeNone,
}

// CookieParams are the set_cookie parameters.
type CookieParams struct {
	Name     string   `json:"name"`
	Value    string   `json:"value"`
	URL      string   `json:"url"`
	Domain   string   `json:"domain"`
	Path     string   `json:"path"`
	Expires  *float64 `json:"expires"`
	HTTPOnly bool     `json:"http_only"`
	Secure   bool     `json:"secure"`
	SameSite string   `json:"same_site"`
}

// Cookie is a cookie as reported by get_cookies.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"http_only"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"same_site,omitempty"`
}

type getCookiesParams struct {
	URL string `json:"url"`
}

type storageParams struct {
	TabTarget
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *toolset) storageTools() []tools.Tool {
	setSchema := func(area string) map[string]interface{} {
		return tools.BaseToolSchema(withTab(map[string]interface{}{
			"key":   tools.String(area + " key"),
			"value": tools.String(area + " value"),
		}), []string{"key", "value"})
	}
	return []tools.Tool{
		tools.New("get_cookies",
			"List cookies in the browser context, optionally only those sent to a URL.",
			tools.BaseToolSchema(map[string]interface{}{
				"url": tools.String("Only cookies that would be sent to this URL"),
			}, nil),
			s.getCookies),

		tools.New("set_cookie",
			"Add a cookie to the browser context. Either url or domain is required.",
			tools.BaseToolSchema(map[string]interface{}{
				"name":      tools.String("Cookie name"),
				"value":     tools.String("Cookie value"),
				"url":       tools.String("URL the cookie belongs to"),
				"domain":    tools.String("Cookie domain"),
				"path":      tools.String("Cookie path (default /)"),
				"expires":   tools.Number("Expiry as Unix seconds; omitted for a session cookie"),
				"http_only": tools.Boolean("HttpOnly flag"),
				"secure":    tools.Boolean("Secure flag"),
				"same_site": tools.Enum("SameSite attribute", "Strict", "Lax", "None"),
			}, []string{"name", "value"}),
			s.setCookie),

		tools.New("clear_cookies",
			"Remove every cookie from the browser context.",
			tools.BaseToolSchema(nil, nil),
			s.clearCookies),

		tools.New("get_local_storage",
			"Return the tab's localStorage as an object.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getLocalStorage),

		tools.New("set_local_storage",
			"Set a localStorage item on the tab's origin.",
			setSchema("localStorage"),
			s.setLocalStorage),

		tools.New("clear_local_storage",
			"Remove every localStorage item on the tab's origin.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.clearLocalStorage),

		tools.New("get_session_storage",
			"Return the tab's sessionStorage as an object.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getSessionStorage),

		tools.New("set_session_storage",
			"Set a sessionStorage item on the tab's origin.",
			setSchema("sessionStorage"),
			s.setSessionStorage),
	}
}

func (s *toolset) getCookies(ctx context.Context, p getCookiesParams) (any, error) {
	if p.URL != "" {
		if err := ValidateURL(p.URL); err != nil {
			return nil, err
		}
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	raw, err := call(ctx, nil, func() ([]playwright.Cookie, error) {
		if p.URL != "" {
			return bc.Cookies(p.URL)
		}
		return bc.Cookies()
	})
	if err != nil {
		return nil, err
	}
	cookies := make([]Cookie, 0, len(raw))
	for _, c := range raw {
		out := Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HttpOnly,
			Secure:   c.Secure,
		}
		if c.SameSite != nil {
			out.SameSite = string(*c.SameSite)
		}
		cookies = append(cookies, out)
	}
	return map[string]any{"count": len(cookies), "cookies": cookies}, nil
}

// optionalCookie converts validated parameters to the driver's cookie.
func optionalCookie(p CookieParams) (playwright.OptionalCookie, error) {
	c := playwright.OptionalCookie{
		Name:     p.Name,
		Value:    p.Value,
		HttpOnly: playwright.Bool(p.HTTPOnly),
		Secure:   playwright.Bool(p.Secure),
		Expires:  p.Expires,
	}
	if p.URL != "" {
		// The driver rejects url combined with domain or path.
		c.URL = playwright.String(p.URL)
	} else {
		c.Domain = playwright.String(p.Domain)
		path := p.Path
		if path == "" {
			path = "/"
		}
		c.Path = playwright.String(path)
	}
	if p.SameSite != "" {
		ss, ok := sameSiteValues[strings.ToLower(p.SameSite)]
		if !ok {
			return c, invalid("invalid same_site %q, expected Strict, Lax or None", p.SameSite)
		}
		c.SameSite = ss
	}
	return c, nil
}

func (s *toolset) setCookie(ctx context.Context, p CookieParams) (any, error) {
	if err := ValidateCookie(p); err != nil {
		return nil, err
	}
	cookie, err := optionalCookie(p)
	if err != nil {
		return nil, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	if err := run(ctx, nil, func() error { return bc.AddCookies([]playwright.OptionalCookie{cookie}) }); err != nil {
		return nil, err
	}
	return map[string]any{"set": true, "name": p.Name}, nil
}

func (s *toolset) clearCookies(ctx context.Context, _ tools.Empty) (any, error) {
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	if err := run(ctx, nil, func() error { return bc.ClearCookies() }); err != nil {
		return nil, err
	}
	return map[string]bool{"cleared": true}, nil
}

// readStorage returns every item of area as a string map.
func (s *toolset) readStorage(ctx context.Context, target TabTarget, area string) (map[string]string, error) {
	tab, err := s.page(target)
	if err != nil {
		return nil, err
	}
	v, err := call(ctx, tab, func() (interface{}, error) {
		return tab.Page.Evaluate(`area => Object.fromEntries(Object.entries(window[area]))`, area)
	})
	if err != nil {
		return nil, err
	}
	items := map[string]string{}
	if obj, ok := v.(map[string]interface{}); ok {
		for k, val := range obj {
			str, _ := val.(string)
			items[k] = str
		}
	}
	return items, nil
}

func (s *toolset) writeStorage(ctx context.Context, p storageParams, area string) (any, error) {
	if p.Key == "" {
		return nil, invalid("key cannot be empty")
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		_, err := tab.Page.Evaluate(`([area, key, value]) => window[area].setItem(key, value)`,
			[]interface{}{area, p.Key, p.Value})
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": true, "key": p.Key, "storage": area}, nil
}

func (s *toolset) getLocalStorage(ctx context.Context, p tabParams) (any, error) {
	items, err := s.readStorage(ctx, p.TabTarget, areaLocal)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(items), "items": items}, nil
}

func (s *toolset) setLocalStorage(ctx context.Context, p storageParams) (any, error) {
	return s.writeStorage(ctx, p, areaLocal)
}

func (s *toolset) clearLocalStorage(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	err = run(ctx, tab, func() error {
		_, err := tab.Page.Evaluate(`() => localStorage.clear()`)
		return err
	})
	if err != nil {
		return nil, err
	}
	return map[string]bool{"cleared": true}, nil
}

func (s *toolset) getSessionStorage(ctx context.Context, p tabParams) (any, error) {
	items, err := s.readStorage(ctx, p.TabTarget, areaSession)
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(items), "items": items}, nil
}

func (s *toolset) setSessionStorage(ctx context.Context, p storageParams) (any, error) {
	return s.writeStorage(ctx, p, areaSession)
}
