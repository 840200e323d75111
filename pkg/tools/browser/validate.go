package browser

import (
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/entrhq/camoufox-mcp/pkg/config"
	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const (
	maxSelectorLength = 2000
	maxScriptLength   = 100000
	maxCookieName     = 256
	maxCookieValue    = 4096
)

var (
	whileTrue = regexp.MustCompile(`while\s*\(\s*true\s*\)`)
	forEver   = regexp.MustCompile(`for\s*\(\s*;\s*;\s*\)`)
)

func invalid(format string, args ...any) error {
	return tools.Errorf(tools.KindInvalidArgument, format, args...)
}

// ValidateURL accepts http, https and file URLs plus about:blank.
func ValidateURL(raw string) error {
	if raw == "" {
		return invalid("url cannot be empty")
	}
	if raw == "about:blank" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return invalid("invalid url %q: %v", raw, err)
	}
	if u.Scheme == "" {
		return invalid("url must have a scheme (http/https): %s", raw)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return invalid("url must have a domain: %s", raw)
		}
	case "file":
	default:
		return invalid("invalid url scheme %q, allowed: http, https, file", u.Scheme)
	}
	return nil
}

// ValidateSelector rejects empty, oversized and obviously unbalanced
// selectors before they reach the driver.
func ValidateSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return invalid("selector cannot be empty")
	}
	if len(selector) > maxSelectorLength {
		return invalid("selector too long (max %d characters)", maxSelectorLength)
	}
	kind := "CSS"
	if strings.HasPrefix(selector, "//") || strings.HasPrefix(selector, "(//") {
		kind = "XPath"
	} else if strings.HasSuffix(strings.TrimSpace(selector), ",") {
		return invalid("selector cannot end with a comma")
	}
	if strings.Count(selector, "[") != strings.Count(selector, "]") {
		return invalid("unbalanced brackets in %s selector", kind)
	}
	if strings.Count(selector, "(") != strings.Count(selector, ")") {
		return invalid("unbalanced parentheses in %s selector", kind)
	}
	return nil
}

// ValidateScript rejects empty or oversized expressions and the two
// infinite-loop shapes that would hang the page.
func ValidateScript(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return invalid("javascript expression cannot be empty")
	}
	if len(expr) > maxScriptLength {
		return invalid("javascript expression too long (max 100KB)")
	}
	if whileTrue.MatchString(expr) {
		return invalid("potential infinite loop detected (while(true))")
	}
	if forEver.MatchString(expr) {
		return invalid("potential infinite loop detected (for(;;))")
	}
	return nil
}

// ValidateViewport checks viewport bounds.
func ValidateViewport(width, height int) error {
	if width < config.MinViewportWidth || width > config.MaxViewportWidth {
		return invalid("width must be between %d and %d", config.MinViewportWidth, config.MaxViewportWidth)
	}
	if height < config.MinViewportHeight || height > config.MaxViewportHeight {
		return invalid("height must be between %d and %d", config.MinViewportHeight, config.MaxViewportHeight)
	}
	return nil
}

// ValidatePath rejects traversal, optionally requiring the file to exist and
// to carry one of the allowed extensions.
func ValidatePath(path string, mustExist bool, extensions ...string) error {
	if path == "" {
		return invalid("file path cannot be empty")
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		return invalid("path traversal not allowed: %s", path)
	}
	if mustExist {
		if _, err := os.Stat(path); err != nil {
			return invalid("file does not exist: %s", path)
		}
	}
	if len(extensions) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(extensions, ext) {
			return invalid("invalid file extension %q, allowed: %v", ext, extensions)
		}
	}
	return nil
}

// ValidateProxy accepts host:port or an http, https, socks4 or socks5 URL.
func ValidateProxy(server string) error {
	if server == "" {
		return invalid("proxy server cannot be empty")
	}
	if !strings.Contains(server, "://") {
		if !strings.Contains(server, ":") {
			return invalid("proxy must include port (host:port or full URL)")
		}
		return nil
	}
	u, err := url.Parse(server)
	if err != nil {
		return invalid("invalid proxy %q: %v", server, err)
	}
	switch u.Scheme {
	case "http", "https", "socks4", "socks5":
		return nil
	}
	return invalid("invalid proxy scheme: %s", u.Scheme)
}

// ValidateCookie checks a cookie before it is handed to the browser.
func ValidateCookie(c CookieParams) error {
	if c.Name == "" || len(c.Name) > maxCookieName {
		return invalid("cookie name must be 1-%d characters", maxCookieName)
	}
	if len(c.Value) > maxCookieValue {
		return invalid("cookie value too long (max %d)", maxCookieValue)
	}
	if c.URL == "" && c.Domain == "" {
		return invalid("either url or domain must be specified")
	}
	if c.URL != "" {
		if err := ValidateURL(c.URL); err != nil {
			return err
		}
	}
	if c.Expires != nil && *c.Expires < 0 {
		return invalid("cookie expiration must be positive")
	}
	return nil
}
