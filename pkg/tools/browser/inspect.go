package browser

import (
	"context"
	"sort"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/camoufox-mcp/pkg/tools"
)

const pageStructureScript = `() => {
	const all = document.querySelectorAll('*');
	const tags = {};
	let shadow = 0;
	all.forEach(el => {
		const t = el.tagName.toLowerCase();
		tags[t] = (tags[t] || 0) + 1;
		if (el.shadowRoot) shadow++;
	});
	const depth = (doc, d) => {
		let max = d;
		doc.querySelectorAll('iframe').forEach(f => {
			try {
				if (f.contentDocument) max = Math.max(max, depth(f.contentDocument, d + 1));
			} catch (e) {
				max = Math.max(max, d + 1);
			}
		});
		return max;
	};
	let framework = null;
	if (window.__REACT_DEVTOOLS_GLOBAL_HOOK__ || document.querySelector('[data-reactroot]')) framework = 'React';
	else if (window.__VUE__ || document.querySelector('[data-v-app]')) framework = 'Vue';
	else if (window.ng || document.querySelector('[ng-app], [data-ng-app], .ng-scope, [ng-version]')) framework = 'Angular';
	else if (document.querySelector('[class*="svelte-"]')) framework = 'Svelte';
	else if (window.Ember) framework = 'Ember';
	else if (document.querySelector('[data-turbo], [data-turbolinks]')) framework = 'Turbo/Hotwire';
	const lazy = [];
	if (document.querySelector('[loading="lazy"]')) lazy.push('native lazy loading (loading="lazy")');
	if (document.querySelector('[data-src], [data-lazy]')) lazy.push('data attribute lazy loading');
	if (document.querySelector('.lazyload, .lazy')) lazy.push('lazy loading CSS classes');
	const markers = [];
	if (document.querySelector('[data-testid], [data-test]')) markers.push('test ids present');
	if (document.querySelectorAll('[class*="css-"], [class*="sc-"]').length > 5) markers.push('CSS-in-JS class names');
	if (document.querySelector('[data-hydrate], [data-ssr], #__NEXT_DATA__')) markers.push('server-side rendering markers');
	return {
		url: location.href,
		total_elements: all.length,
		element_counts: tags,
		shadow_dom_count: shadow,
		iframe_count: document.querySelectorAll('iframe').length,
		iframe_nesting_depth: depth(document, 0),
		form_count: document.forms.length,
		input_count: document.querySelectorAll('input, textarea, select').length,
		link_count: document.links.length,
		script_count: document.scripts.length,
		framework_detected: framework,
		lazy_load_indicators: lazy,
		dynamic_content_markers: markers,
	};
}`

const dataSourcesScript = `() => {
	const out = {json_ld: [], inline_json: [], data_attributes: [], meta_data: [], next_data: null, nuxt_data: null};
	document.querySelectorAll('script[type="application/ld+json"]').forEach(s => {
		try {
			const data = JSON.parse(s.textContent);
			out.json_ld.push({type: data['@type'] || 'unknown', preview: JSON.stringify(data).substring(0, 200)});
		} catch (e) {}
	});
	const patterns = [/window\.__[A-Z_]+__\s*=\s*(\{[\s\S]*?\});/, /window\.[a-zA-Z_]+\s*=\s*(\{[\s\S]*?\});/];
	document.querySelectorAll('script:not([src])').forEach(s => {
		const text = s.textContent || '';
		patterns.forEach(re => {
			const m = text.match(re);
			if (m) out.inline_json.push({preview: m[0].substring(0, 200), full_length: m[0].length});
		});
	});
	const next = document.querySelector('#__NEXT_DATA__');
	if (next) {
		try {
			const data = JSON.parse(next.textContent);
			out.next_data = {page: data.page, has_props: !!data.props, preview: JSON.stringify((data.props || {}).pageProps || {}).substring(0, 200)};
		} catch (e) {}
	}
	if (document.querySelector('#__NUXT_DATA__') || window.__NUXT__) out.nuxt_data = {detected: true};
	document.querySelectorAll('[data-props], [data-state], [data-initial]').forEach(el => {
		['data-props', 'data-state', 'data-initial'].forEach(attr => {
			const v = el.getAttribute(attr);
			if (v && v.startsWith('{')) {
				const cls = typeof el.className === 'string' && el.className ? '.' + el.className.split(' ')[0] : '';
				out.data_attributes.push({attribute: attr, selector: el.tagName.toLowerCase() + (el.id ? '#' + el.id : '') + cls, preview: v.substring(0, 200)});
			}
		});
	});
	document.querySelectorAll('meta[property], meta[name]').forEach(m => {
		const prop = m.getAttribute('property') || m.getAttribute('name');
		const content = m.getAttribute('content');
		if (content && (prop.startsWith('og:') || prop.startsWith('twitter:') || prop.includes('price') || prop.includes('product'))) {
			out.meta_data.push({property: prop, content});
		}
	});
	return out;
}`

const resourceLoadingScript = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	return {
		dom_interactive_ms: nav ? nav.domInteractive : 0,
		dom_complete_ms: nav ? nav.domComplete : 0,
		load_complete_ms: nav ? nav.loadEventEnd : 0,
		resources: performance.getEntriesByType('resource').map(e => ({
			url: e.name,
			type: e.initiatorType,
			duration_ms: Math.round(e.duration),
			size: e.transferSize || 0,
			start_ms: Math.round(e.startTime),
			render_blocking: e.renderBlockingStatus || '',
		})),
	};
}`

const antibotSignalsScript = `() => {
	const title = document.title.toLowerCase();
	const srcs = Array.from(document.querySelectorAll('script[src]')).map(s => s.src.toLowerCase());
	const inline = Array.from(document.querySelectorAll('script:not([src])')).map(s => s.textContent || '');
	const captcha = [];
	if (document.querySelector('.g-recaptcha, [data-sitekey]') || typeof grecaptcha !== 'undefined') captcha.push('reCAPTCHA');
	if (document.querySelector('.h-captcha, [data-hcaptcha-sitekey]')) captcha.push('hCaptcha');
	if (document.querySelector('.cf-turnstile')) captcha.push('Cloudflare Turnstile');
	return {
		cloudflare_challenge: title.includes('just a moment') || title.includes('checking your browser') ||
			!!document.querySelector('#cf-wrapper, .cf-browser-verification, #challenge-form'),
		akamai_script: srcs.some(s => s.includes('akamai') || s.includes('/_sec/')),
		perimeterx_script: srcs.some(s => s.includes('perimeterx') || s.includes('px-cdn')) || inline.some(t => t.includes('_pxAppId')),
		datadome_script: srcs.some(s => s.includes('datadome')),
		captcha,
	};
}`

// fingerprintScript hooks commonly fingerprinted APIs for duration ms,
// restores them and resolves with per-API access counts.
const fingerprintScript = `(duration) => new Promise(resolve => {
	const log = {canvas: {}, webgl: {}, audio: {}, navigator: {}, screen: {}, timing: 0};
	const bump = (bucket, key) => { bucket[key] = (bucket[key] || 0) + 1; };
	const restore = [];
	const wrap = (obj, name, onCall) => {
		if (!obj || typeof obj[name] !== 'function') return;
		const orig = obj[name];
		obj[name] = function(...args) { onCall(args); return orig.apply(this, args); };
		restore.push(() => { obj[name] = orig; });
	};
	const watch = (target, proto, prop, bucket) => {
		try {
			const desc = Object.getOwnPropertyDescriptor(proto, prop);
			if (!desc || !desc.get) return;
			Object.defineProperty(target, prop, {configurable: true, get() { bump(bucket, prop); return desc.get.call(this); }});
			restore.push(() => { delete target[prop]; });
		} catch (e) {}
	};
	wrap(window.HTMLCanvasElement && HTMLCanvasElement.prototype, 'toDataURL', () => bump(log.canvas, 'toDataURL'));
	wrap(window.HTMLCanvasElement && HTMLCanvasElement.prototype, 'toBlob', () => bump(log.canvas, 'toBlob'));
	wrap(window.CanvasRenderingContext2D && CanvasRenderingContext2D.prototype, 'getImageData', () => bump(log.canvas, 'getImageData'));
	wrap(window.CanvasRenderingContext2D && CanvasRenderingContext2D.prototype, 'measureText', () => bump(log.canvas, 'measureText'));
	const glNames = {7936: 'VENDOR', 7937: 'RENDERER', 7938: 'VERSION', 37445: 'UNMASKED_VENDOR', 37446: 'UNMASKED_RENDERER'};
	[window.WebGLRenderingContext, window.WebGL2RenderingContext].forEach(gl => {
		wrap(gl && gl.prototype, 'getParameter', ([p]) => { if (glNames[p]) bump(log.webgl, glNames[p]); });
		wrap(gl && gl.prototype, 'getExtension', ([n]) => bump(log.webgl, 'getExtension:' + n));
	});
	const AC = window.AudioContext || window.OfflineAudioContext;
	wrap(AC && AC.prototype, 'createOscillator', () => bump(log.audio, 'createOscillator'));
	wrap(AC && AC.prototype, 'createDynamicsCompressor', () => bump(log.audio, 'createDynamicsCompressor'));
	['userAgent', 'platform', 'language', 'languages', 'hardwareConcurrency', 'deviceMemory', 'webdriver',
	 'plugins', 'mimeTypes', 'cookieEnabled', 'doNotTrack', 'maxTouchPoints'].forEach(p => watch(navigator, Navigator.prototype, p, log.navigator));
	['width', 'height', 'availWidth', 'availHeight', 'colorDepth', 'pixelDepth'].forEach(p => watch(screen, Screen.prototype, p, log.screen));
	wrap(performance, 'now', () => { log.timing++; });
	setTimeout(() => {
		restore.reverse().forEach(fn => { try { fn(); } catch (e) {} });
		resolve(log);
	}, duration);
})`

const (
	defaultFingerprintMS = 5000
	maxFingerprintMS     = 60000
	maxAPIEndpoints      = 50
)

type fingerprintParams struct {
	TabTarget
	DurationMS int `json:"duration_ms"`
}

func (s *toolset) inspectTools() []tools.Tool {
	tabOnly := func() map[string]interface{} { return tools.BaseToolSchema(withTab(nil), nil) }
	return []tools.Tool{
		tools.New("analyze_page_structure",
			"Summarize the DOM: element counts by tag, shadow roots, iframe depth, framework and lazy-loading markers.",
			tabOnly(),
			s.analyzePageStructure),

		tools.New("analyze_network_patterns",
			"Classify captured traffic into API, GraphQL and WebSocket endpoints, auth headers, third-party and CDN domains.",
			tools.BaseToolSchema(nil, nil),
			s.analyzeNetworkPatterns),

		tools.New("analyze_resource_loading",
			"Summarize resource loading by type with render-blocking and slowest resources.",
			tabOnly(),
			s.analyzeResourceLoading),

		tools.New("find_data_sources",
			"Find structured data on the page: JSON-LD, inline state objects, Next.js and Nuxt payloads, data attributes and meta tags.",
			tabOnly(),
			s.findDataSources),

		tools.New("detect_antibot_protection",
			"Look for Cloudflare, Akamai, PerimeterX, DataDome, Imperva and CAPTCHA markers in cookies, headers and page content.",
			tabOnly(),
			s.detectAntibotProtection),

		tools.New("monitor_fingerprinting",
			"Hook canvas, WebGL, audio, navigator and screen APIs for a while and report which ones page scripts read.",
			tools.BaseToolSchema(withTab(map[string]interface{}{
				"duration_ms": tools.IntegerRange("How long to watch (default 5000)", 100, maxFingerprintMS),
			}), nil),
			s.monitorFingerprinting),
	}
}

func (s *toolset) analyzePageStructure(ctx context.Context, p tabParams) (any, error) {
	_, v, err := s.evalTab(ctx, p.TabTarget, pageStructureScript)
	return v, err
}

func (s *toolset) findDataSources(ctx context.Context, p tabParams) (any, error) {
	_, v, err := s.evalTab(ctx, p.TabTarget, dataSourcesScript)
	return v, err
}

func (s *toolset) monitorFingerprinting(ctx context.Context, p fingerprintParams) (any, error) {
	d := p.DurationMS
	if d == 0 {
		d = defaultFingerprintMS
	}
	if d < 100 || d > maxFingerprintMS {
		return nil, invalid("duration_ms must be between 100 and %d", maxFingerprintMS)
	}
	tab, v, err := s.evalTab(ctx, p.TabTarget, fingerprintScript, d)
	if err != nil {
		return nil, err
	}
	log, _ := v.(map[string]interface{})
	touched := []string{}
	for _, api := range []string{"canvas", "webgl", "audio", "navigator", "screen"} {
		if m, ok := log[api].(map[string]interface{}); ok && len(m) > 0 {
			touched = append(touched, api)
		}
	}
	if num(log, "timing") > 0 {
		touched = append(touched, "timing")
	}
	return map[string]any{
		"tab_id":      tab.ID,
		"url":         tab.Page.URL(),
		"duration_ms": d,
		"accessed":    log,
		"apis_read":   touched,
		"suspicious":  len(touched) >= 3,
	}, nil
}

// APIEndpoint is a fetch or XHR request seen in the network log.
type APIEndpoint struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	Status       int    `json:"status,omitempty"`
	Pattern      string `json:"pattern,omitempty"`
	ResponseType string `json:"response_type,omitempty"`
}

// NetworkPatterns is the result of analyze_network_patterns.
type NetworkPatterns struct {
	PageHost          string         `json:"page_host,omitempty"`
	Requests          int            `json:"requests"`
	APIEndpoints      []APIEndpoint  `json:"api_endpoints"`
	GraphQLEndpoints  []string       `json:"graphql_endpoints"`
	WebSocketURLs     []string       `json:"websocket_urls"`
	AuthHeaders       []string       `json:"authentication_patterns"`
	ThirdPartyDomains []string       `json:"third_party_domains"`
	CDNDomains        []string       `json:"cdn_domains"`
	ResourceStats     map[string]int `json:"resource_stats"`
	Note              string         `json:"note,omitempty"`
}

var (
	cdnMarkers  = []string{"cdn", "cloudfront", "akamai", "fastly", "cloudflare", "jsdelivr", "unpkg"}
	authMarkers = []string{"authorization", "x-auth-token", "x-api-key", "x-csrf-token", "bearer"}
	apiMarkers  = []string{"/api/", "/v1/", "/v2/", "/v3/", "/rest/"}
)

// networkPatterns classifies entries relative to the page's host.
func networkPatterns(entries []NetworkEntry, pageHost string) NetworkPatterns {
	out := NetworkPatterns{
		PageHost:          pageHost,
		Requests:          len(entries),
		APIEndpoints:      []APIEndpoint{},
		GraphQLEndpoints:  []string{},
		WebSocketURLs:     []string{},
		AuthHeaders:       []string{},
		ThirdPartyDomains: []string{},
		CDNDomains:        []string{},
		ResourceStats:     map[string]int{},
	}
	if len(entries) == 0 {
		out.Note = "no requests captured; navigate first or enable capture with set_network_capture"
		return out
	}
	graphql := map[string]bool{}
	ws := map[string]bool{}
	auth := map[string]bool{}
	hosts := map[string]bool{}
	for _, e := range entries {
		lowerURL := strings.ToLower(e.URL)
		if h := hostOf(e.URL); h != "" {
			hosts[h] = true
		}
		rtype := e.ResourceType
		if rtype == "" {
			rtype = "other"
		}
		out.ResourceStats[rtype]++

		if (e.ResourceType == "fetch" || e.ResourceType == "xhr") && len(out.APIEndpoints) < maxAPIEndpoints {
			ep := APIEndpoint{URL: e.URL, Method: e.Method, Status: e.Status}
			if containsAny(lowerURL, apiMarkers...) || strings.Contains(lowerURL, "/graphql") {
				ep.Pattern = "API endpoint"
			}
			if strings.Contains(headerValue(e.ResponseHeaders, "content-type"), "json") {
				ep.ResponseType = "JSON"
			}
			out.APIEndpoints = append(out.APIEndpoints, ep)
		}
		if strings.Contains(lowerURL, "/graphql") || (e.Method == "POST" && looksLikeGraphQL(e.RequestBody)) {
			graphql[e.URL] = true
		}
		if strings.HasPrefix(lowerURL, "ws://") || strings.HasPrefix(lowerURL, "wss://") || e.ResourceType == "websocket" {
			ws[e.URL] = true
		}
		for name := range e.RequestHeaders {
			if containsAny(strings.ToLower(name), authMarkers...) {
				auth["auth header: "+strings.ToLower(name)] = true
			}
		}
	}
	for h := range hosts {
		if h == pageHost {
			continue
		}
		if containsAny(strings.ToLower(h), cdnMarkers...) {
			out.CDNDomains = append(out.CDNDomains, h)
		} else {
			out.ThirdPartyDomains = append(out.ThirdPartyDomains, h)
		}
	}
	out.GraphQLEndpoints = sortedKeys(graphql)
	out.WebSocketURLs = sortedKeys(ws)
	out.AuthHeaders = sortedKeys(auth)
	sort.Strings(out.CDNDomains)
	sort.Strings(out.ThirdPartyDomains)
	return out
}

func looksLikeGraphQL(body string) bool {
	return strings.Contains(body, "{") && (strings.Contains(body, "query") || strings.Contains(body, "mutation"))
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *toolset) analyzeNetworkPatterns(ctx context.Context, _ tools.Empty) (any, error) {
	if _, err := s.m.instance(); err != nil {
		return nil, err
	}
	pageHost := ""
	if tab, err := s.page(TabTarget{}); err == nil {
		pageHost = hostOf(tab.Page.URL())
	}
	return networkPatterns(s.m.Network().Entries(), pageHost), nil
}

// TypeLoad aggregates resources of one initiator type.
type TypeLoad struct {
	Count           int     `json:"count"`
	TotalSize       float64 `json:"total_size"`
	TotalDurationMS float64 `json:"total_duration_ms"`
}

// ResourceLoading is the result of analyze_resource_loading.
type ResourceLoading struct {
	Timing         map[string]float64  `json:"timing"`
	ByType         map[string]TypeLoad `json:"resource_summary"`
	RenderBlocking []ResourceSample    `json:"render_blocking"`
	Slowest        []ResourceSample    `json:"slowest_resources"`
	Total          int                 `json:"total_resources"`
	TotalTransfer  float64             `json:"total_transfer_size"`
}

const resourceListLimit = 10

// summarizeLoading groups resources by type and picks out blocking and
// slow ones. A script that started before DOM interactive counts as
// blocking when the browser does not report renderBlockingStatus.
func summarizeLoading(resources []ResourceSample, timing map[string]float64) ResourceLoading {
	out := ResourceLoading{
		Timing:         timing,
		ByType:         map[string]TypeLoad{},
		RenderBlocking: []ResourceSample{},
		Slowest:        []ResourceSample{},
		Total:          len(resources),
	}
	sorted := append([]ResourceSample(nil), resources...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartMS < sorted[j].StartMS })
	interactive := timing["dom_interactive_ms"]
	for _, r := range sorted {
		t := out.ByType[r.Type]
		t.Count++
		t.TotalSize += r.Size
		t.TotalDurationMS += r.DurationMS
		out.ByType[r.Type] = t
		out.TotalTransfer += r.Size

		blocking := r.RenderBlocking == "blocking" ||
			(r.RenderBlocking == "" && r.Type == "script" && interactive > 0 && r.StartMS < interactive)
		if blocking && len(out.RenderBlocking) < resourceListLimit {
			out.RenderBlocking = append(out.RenderBlocking, r)
		}
		if r.DurationMS > slowResourceMS {
			out.Slowest = append(out.Slowest, r)
		}
	}
	sort.SliceStable(out.Slowest, func(i, j int) bool { return out.Slowest[i].DurationMS > out.Slowest[j].DurationMS })
	out.Slowest = firstN(out.Slowest, resourceListLimit)
	return out
}

func (s *toolset) analyzeResourceLoading(ctx context.Context, p tabParams) (any, error) {
	_, v, err := s.evalTab(ctx, p.TabTarget, resourceLoadingScript)
	if err != nil {
		return nil, err
	}
	m, _ := v.(map[string]interface{})
	timing := map[string]float64{
		"dom_interactive_ms": num(m, "dom_interactive_ms"),
		"dom_complete_ms":    num(m, "dom_complete_ms"),
		"load_complete_ms":   num(m, "load_complete_ms"),
	}
	return summarizeLoading(parseResources(m["resources"]), timing), nil
}

// AntibotSignals are the in-page markers antibotSignalsScript reports.
type AntibotSignals struct {
	CloudflareChallenge bool
	AkamaiScript        bool
	PerimeterXScript    bool
	DataDomeScript      bool
	Captcha             []string
}

// ProtectionReport lists the indicators found for one vendor.
type ProtectionReport struct {
	Detected   bool     `json:"detected"`
	Indicators []string `json:"indicators"`
}

// AntibotReport is the result of detect_antibot_protection.
type AntibotReport struct {
	Cloudflare ProtectionReport `json:"cloudflare"`
	Akamai     ProtectionReport `json:"akamai"`
	PerimeterX ProtectionReport `json:"perimeterx"`
	DataDome   ProtectionReport `json:"datadome"`
	Captcha    ProtectionReport `json:"captcha"`
	Other      []string         `json:"other_protections"`
	Detected   bool             `json:"any_detected"`
}

func report(indicators []string) ProtectionReport {
	if indicators == nil {
		indicators = []string{}
	}
	return ProtectionReport{Detected: len(indicators) > 0, Indicators: indicators}
}

// detectAntibot combines cookie names, the document's response headers
// and in-page signals into per-vendor verdicts.
func detectAntibot(cookies []string, headers map[string]string, sig AntibotSignals) AntibotReport {
	has := map[string]bool{}
	for _, c := range cookies {
		has[c] = true
	}
	var cf, ak, px, dd []string
	if headerValue(headers, "cf-ray") != "" {
		cf = append(cf, "cf-ray header present")
	}
	if strings.EqualFold(headerValue(headers, "server"), "cloudflare") {
		cf = append(cf, "server: cloudflare")
	}
	if has["__cf_bm"] {
		cf = append(cf, "__cf_bm cookie")
	}
	if has["cf_clearance"] {
		cf = append(cf, "cf_clearance cookie (challenge passed)")
	}
	if sig.CloudflareChallenge {
		cf = append(cf, "challenge page detected")
	}

	if has["_abck"] {
		ak = append(ak, "_abck cookie (Akamai Bot Manager)")
	}
	if has["bm_sz"] {
		ak = append(ak, "bm_sz cookie")
	}
	if sig.AkamaiScript {
		ak = append(ak, "Akamai script detected")
	}

	var pxCookies []string
	for _, c := range cookies {
		if strings.HasPrefix(c, "_px") {
			pxCookies = append(pxCookies, c)
		}
	}
	sort.Strings(pxCookies)
	if len(pxCookies) > 0 {
		px = append(px, "PerimeterX cookies: "+strings.Join(pxCookies, ", "))
	}
	if sig.PerimeterXScript {
		px = append(px, "PerimeterX script detected")
	}

	if has["datadome"] {
		dd = append(dd, "datadome cookie")
	}
	if headerValue(headers, "x-datadome") != "" {
		dd = append(dd, "x-datadome header")
	}
	if sig.DataDomeScript {
		dd = append(dd, "DataDome script detected")
	}

	var captcha []string
	for _, c := range sig.Captcha {
		captcha = append(captcha, c+" element found")
	}

	other := []string{}
	incap, distil := false, false
	for _, c := range cookies {
		lc := strings.ToLower(c)
		incap = incap || strings.HasPrefix(lc, "incap_ses") || strings.HasPrefix(lc, "visid_incap")
		distil = distil || strings.Contains(lc, "distil")
	}
	if incap || headerValue(headers, "x-iinfo") != "" {
		other = append(other, "Imperva/Incapsula")
	}
	if distil {
		other = append(other, "Distil Networks")
	}

	r := AntibotReport{
		Cloudflare: report(cf),
		Akamai:     report(ak),
		PerimeterX: report(px),
		DataDome:   report(dd),
		Captcha:    report(captcha),
		Other:      other,
	}
	r.Detected = r.Cloudflare.Detected || r.Akamai.Detected || r.PerimeterX.Detected ||
		r.DataDome.Detected || r.Captcha.Detected || len(other) > 0
	return r
}

// documentHeaders returns the response headers of the latest document
// request of tabID in the network log.
func documentHeaders(entries []NetworkEntry, tabID string) map[string]string {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.TabID == tabID && e.ResourceType == "document" && len(e.ResponseHeaders) > 0 {
			return e.ResponseHeaders
		}
	}
	return nil
}

func (s *toolset) detectAntibotProtection(ctx context.Context, p tabParams) (any, error) {
	tab, v, err := s.evalTab(ctx, p.TabTarget, antibotSignalsScript)
	if err != nil {
		return nil, err
	}
	bc, err := s.m.Context()
	if err != nil {
		return nil, err
	}
	cookies, err := call(ctx, nil, func() ([]playwright.Cookie, error) { return bc.Cookies() })
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cookies))
	for _, c := range cookies {
		names = append(names, c.Name)
	}
	m, _ := v.(map[string]interface{})
	flag := func(k string) bool { b, _ := m[k].(bool); return b }
	sig := AntibotSignals{
		CloudflareChallenge: flag("cloudflare_challenge"),
		AkamaiScript:        flag("akamai_script"),
		PerimeterXScript:    flag("perimeterx_script"),
		DataDomeScript:      flag("datadome_script"),
	}
	if items, ok := m["captcha"].([]interface{}); ok {
		for _, it := range items {
			if c, ok := it.(string); ok {
				sig.Captcha = append(sig.Captcha, c)
			}
		}
	}
	headers := documentHeaders(s.m.Network().Entries(), tab.ID)
	r := detectAntibot(names, headers, sig)
	out := map[string]any{"url": tab.Page.URL(), "report": r}
	if headers == nil {
		out["note"] = "no document response in the network log; header checks skipped"
	}
	return out, nil
}
