package browser

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

type screenshotParams struct {
	TabTarget
	Path     string `json:"path"`
	FullPage bool   `json:"full_page"`
	Selector string `json:"selector"`
	Format   string `json:"format"`
	Quality  *int   `json:"quality"`
	Timeout  int    `json:"timeout"`
}

type viewportParams struct {
	TabTarget
	Width  int `json:"width"`
	Height int `json:"height"`
}

type pdfParams struct {
	TabTarget
	Path                string   `json:"path"`
	Scale               *float64 `json:"scale"`
	DisplayHeaderFooter bool     `json:"display_header_footer"`
	HeaderTemplate      string   `json:"header_template"`
	FooterTemplate      string   `json:"footer_template"`
	PrintBackground     *bool    `json:"print_background"`
	Landscape           bool     `json:"landscape"`
	PageRanges          string   `json:"page_ranges"`
	Format              string   `json:"format"`
	Width               string   `json:"width"`
	Height              string   `json:"height"`
	MarginTop           string   `json:"margin_top"`
	MarginBottom        string   `json:"margin_bottom"`
	MarginLeft          string   `json:"margin_left"`
	MarginRight         string   `json:"margin_right"`
	PreferCSSPageSize   bool     `json:"prefer_css_page_size"`
}

// ScreenshotResult describes a captured image.
type ScreenshotResult struct {
	Path      string `json:"path,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	Format    string `json:"format"`
	FullPage  bool   `json:"full_page"`
	Selector  string `json:"selector,omitempty"`
}

func (s *toolset) screenshotTools() []tools.Tool {
	return []tools.Tool{
		tools.New("screenshot",
			"Capture the viewport, the full page or one element. Saved to disk when a path is given or auto-save is on; otherwise returned inline.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"path":      tools.String("Output file (.png, .jpg or .jpeg)"),
				"full_page": tools.Boolean("Capture the full scrollable page"),
				"selector":  tools.String("Capture only this element"),
				"format":    tools.Enum("Image format (defaults from the path extension, else png)", "png", "jpeg"),
				"quality":   tools.IntegerRange("JPEG quality", 0, 100),
				"timeout":   tools.Timeout(),
			}), nil),
			s.screenshot),

		tools.New("get_viewport_size",
			"Return the tab's viewport size.",
			tools.BaseToolSchema(withTab(nil), nil),
			s.getViewportSize),

		tools.New("set_viewport_size",
			"Resize the tab's viewport.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"width":  tools.Integer("Width in pixels (320-7680)"),
				"height": tools.Integer("Height in pixels (240-4320)"),
			}), []string{"width", "height"}),
			s.setViewportSize),

		tools.New("save_as_pdf",
			"Print the page to a PDF file and report its page count. Firefox builds may not support printing to PDF.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"path":                  tools.String("Output .pdf file (defaults to a new file in the screenshot directory)"),
				"scale":                 map[string]interface{}{"type": "number", "minimum": 0.1, "maximum": 2, "description": "Rendering scale (default 1)"},
				"display_header_footer": tools.Boolean("Print header and footer"),
				"header_template":       tools.String("HTML template for the header"),
				"footer_template":       tools.String("HTML template for the footer"),
				"print_background":      tools.Boolean("Print background graphics (default true)"),
				"landscape":             tools.Boolean("Landscape orientation"),
				"page_ranges":           tools.String("Page ranges, e.g. 1-5, 8"),
				"format":                tools.String("Paper format, e.g. A4 or Letter"),
				"width":                 tools.String("Paper width, e.g. 8.5in"),
				"height":                tools.String("Paper height, e.g. 11in"),
				"margin_top":            tools.String("Top margin, e.g. 1cm"),
				"margin_bottom":         tools.String("Bottom margin"),
				"margin_left":           tools.String("Left margin"),
				"margin_right":          tools.String("Right margin"),
				"prefer_css_page_size":  tools.Boolean("Prefer the page size declared in CSS"),
			}), nil),
			s.saveAsPDF),
	}
}

// imageFormat picks jpeg or png from the explicit format or the path.
func imageFormat(format, path string) (string, error) {
	switch strings.ToLower(format) {
	case "png":
		return "png", nil
	case "jpeg", "jpg":
		return "jpeg", nil
	case "":
	default:
		return "", invalid("invalid format %q, expected png or jpeg", format)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg", nil
	}
	return "png", nil
}

func (s *toolset) screenshot(ctx context.Context, p screenshotParams) (any, error) {
	if p.Path != "" {
		if err := ValidatePath(p.Path, false, ".png", ".jpg", ".jpeg"); err != nil {
			return nil, err
		}
	}
	format, err := imageFormat(p.Format, p.Path)
	if err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}

	timeout := s.t.screenshot(p.Timeout)
	imgType := playwright.ScreenshotTypePng
	var quality *int
	if format == "jpeg" {
		imgType = playwright.ScreenshotTypeJpeg
		quality = p.Quality
	}

	var data []byte
	if p.Selector != "" {
		if err := ValidateSelector(p.Selector); err != nil {
			return nil, err
		}
		loc := locate(tab.Page, p.Selector).First()
		if err := present(ctx, tab, loc, p.Selector, s.t.selector(p.Timeout)); err != nil {
			return nil, err
		}
		data, err = call(ctx, tab, func() ([]byte, error) {
			return loc.Screenshot(playwright.LocatorScreenshotOptions{
				Type:    imgType,
				Quality: quality,
				Timeout: playwright.Float(timeout),
			})
		})
	} else {
		data, err = call(ctx, tab, func() ([]byte, error) {
			return tab.Page.Screenshot(playwright.PageScreenshotOptions{
				FullPage: playwright.Bool(p.FullPage),
				Type:     imgType,
				Quality:  quality,
				Timeout:  playwright.Float(timeout),
			})
		})
	}
	if err != nil {
		return nil, err
	}

	res := ScreenshotResult{SizeBytes: len(data), Format: format, FullPage: p.FullPage, Selector: p.Selector}
	if p.Path == "" && !s.m.Config().Screenshot.AutoSave {
		return &tools.Image{Data: data, MIMEType: "image/" + format, Info: res}, nil
	}

	ext := ".png"
	if format == "jpeg" {
		ext = ".jpg"
	}
	path, err := s.artifacts.Path(p.Path, ext)
	if err != nil {
		return nil, err
	}
	if err := s.artifacts.Write(path, data); err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "save screenshot")
	}
	res.Path = path
	s.logger.Debug("screenshot saved", "tab", tab.ID, "path", path, "bytes", len(data))
	return res, nil
}

func (s *toolset) getViewportSize(ctx context.Context, p tabParams) (any, error) {
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	size := tab.Page.ViewportSize()
	if size == nil {
		return Viewport{}, nil
	}
	return Viewport{Width: size.Width, Height: size.Height}, nil
}

func (s *toolset) setViewportSize(ctx context.Context, p viewportParams) (any, error) {
	if err := ValidateViewport(p.Width, p.Height); err != nil {
		return nil, err
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	if err := run(ctx, tab, func() error { return tab.Page.SetViewportSize(p.Width, p.Height) }); err != nil {
		return nil, err
	}
	return Viewport{Width: p.Width, Height: p.Height}, nil
}

func optString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (s *toolset) saveAsPDF(ctx context.Context, p pdfParams) (any, error) {
	if p.Path != "" {
		if err := ValidatePath(p.Path, false, ".pdf"); err != nil {
			return nil, err
		}
	}
	tab, err := s.page(p.TabTarget)
	if err != nil {
		return nil, err
	}
	path, err := s.artifacts.Path(p.Path, ".pdf")
	if err != nil {
		return nil, err
	}

	opts := playwright.PagePdfOptions{
		Scale:               p.Scale,
		DisplayHeaderFooter: playwright.Bool(p.DisplayHeaderFooter),
		HeaderTemplate:      optString(p.HeaderTemplate),
		FooterTemplate:      optString(p.FooterTemplate),
		PrintBackground:     playwright.Bool(p.PrintBackground == nil || *p.PrintBackground),
		Landscape:           playwright.Bool(p.Landscape),
		PageRanges:          optString(p.PageRanges),
		Format:              optString(p.Format),
		Width:               optString(p.Width),
		Height:              optString(p.Height),
		PreferCSSPageSize:   playwright.Bool(p.PreferCSSPageSize),
	}
	if p.MarginTop != "" || p.MarginBottom != "" || p.MarginLeft != "" || p.MarginRight != "" {
		opts.Margin = &playwright.Margin{
			Top:    optString(p.MarginTop),
			Bottom: optString(p.MarginBottom),
			Left:   optString(p.MarginLeft),
			Right:  optString(p.MarginRight),
		}
	}

	data, err := call(ctx, tab, func() ([]byte, error) { return tab.Page.PDF(opts) })
	if err != nil {
		return nil, err
	}
	if err := s.artifacts.Write(path, data); err != nil {
		return nil, tools.Wrap(tools.KindOperationFailed, err, "save pdf")
	}

	res := map[string]any{"path": path, "size_bytes": len(data)}
	if pages, err := PDFPageCount(data); err == nil {
		res["pages"] = pages
	} else {
		s.logger.Warn("pdf page count failed", "path", path, "error", err)
	}
	return res, nil
}
