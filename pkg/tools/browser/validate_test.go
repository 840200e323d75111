package browser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

func assertInvalid(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, tools.KindInvalidArgument, tools.KindOf(err))
}

func TestValidateURL(t *testing.T) {
	for _, ok := range []string{"https://example.com", "http://localhost:8080/x?y=1", "file:///tmp/a.html", "about:blank"} {
		assert.NoError(t, ValidateURL(ok), ok)
	}
	for _, bad := range []string{"", "example.com", "https://", "javascript:alert(1)", "ftp://example.com"} {
		assertInvalid(t, ValidateURL(bad))
	}
}

func TestValidateSelector(t *testing.T) {
	for _, ok := range []string{"#id", "div > a[href='/x']", "//div[@id='a']", "(//li)[2]", "text=Sign in"} {
		assert.NoError(t, ValidateSelector(ok), ok)
	}
	for _, bad := range []string{"", "   ", "a,", "div[class='x'", "//div[(@id='a']", strings.Repeat("a", maxSelectorLength+1)} {
		assertInvalid(t, ValidateSelector(bad))
	}
}

func TestValidateScript(t *testing.T) {
	assert.NoError(t, ValidateScript("document.title"))
	assertInvalid(t, ValidateScript(" "))
	assertInvalid(t, ValidateScript("while (true) {}"))
	assertInvalid(t, ValidateScript("for(;;){}"))
	assertInvalid(t, ValidateScript(strings.Repeat("x", maxScriptLength+1)))
}

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "trace.zip")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	assert.NoError(t, ValidatePath(existing, true, ".zip"))
	assert.NoError(t, ValidatePath("shots/a.PNG", false, ".png", ".jpeg"))
	assertInvalid(t, ValidatePath("", false))
	assertInvalid(t, ValidatePath("../etc/passwd", false))
	assertInvalid(t, ValidatePath(filepath.Join(dir, "missing.zip"), true))
	assertInvalid(t, ValidatePath("out.har", false, ".zip"))
}

func TestValidateProxy(t *testing.T) {
	for _, ok := range []string{"proxy.local:3128", "http://proxy:8080", "socks5://127.0.0.1:1080"} {
		assert.NoError(t, ValidateProxy(ok), ok)
	}
	for _, bad := range []string{"", "proxy.local", "ftp://proxy:21"} {
		assertInvalid(t, ValidateProxy(bad))
	}
}

func TestValidateViewport(t *testing.T) {
	assert.NoError(t, ValidateViewport(1280, 720))
	assertInvalid(t, ValidateViewport(10, 720))
	assertInvalid(t, ValidateViewport(1280, 100000))
}

func TestValidateCookie(t *testing.T) {
	neg := -1.0
	assert.NoError(t, ValidateCookie(CookieParams{Name: "sid", URL: "https://example.com"}))
	assert.NoError(t, ValidateCookie(CookieParams{Name: "sid", Domain: ".example.com"}))
	assertInvalid(t, ValidateCookie(CookieParams{Domain: ".example.com"}))
	assertInvalid(t, ValidateCookie(CookieParams{Name: "sid"}))
	assertInvalid(t, ValidateCookie(CookieParams{Name: "sid", URL: "not a url"}))
	assertInvalid(t, ValidateCookie(CookieParams{Name: "sid", Domain: "x", Value: strings.Repeat("v", maxCookieValue+1)}))
	assertInvalid(t, ValidateCookie(CookieParams{Name: "sid", Domain: "x", Expires: &neg}))
}
