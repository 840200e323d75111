// Package browser drives a Camoufox browser through playwright-go and exposes
// it as a static set of tools.
//
// # Architecture
//
// The package is built around three core concepts:
//
//  1. Manager: owns the single browser session (browser, context, tabs),
//     the network log, dialog handler and console buffers. It is created
//     once and injected into every tool handler; there is no global.
//  2. Launcher: the capability that starts Camoufox. PlaywrightLauncher runs
//     the playwright driver and launches Firefox with the Camoufox binary;
//     tests substitute a fake.
//  3. ToolRegistry: builds every tool around one Manager. The tool list is
//     fixed at startup; tools that need a browser fail with
//     PreconditionViolation until launch_browser succeeds.
//
// # Session Lifecycle
//
//  1. Launch: launch_browser starts Camoufox and opens the first tab. A
//     second launch fails with AlreadyLaunched.
//  2. Use: page tools act on the current tab or on the tab named by tab_id.
//  3. Close: close_browser releases everything and is idempotent. A crash
//     is recorded and, with auto recovery enabled, browser_recover relaunches
//     with the previous settings.
//
// # Events
//
// Driver callbacks never touch session state directly. They push events onto
// a bounded queue drained by one goroutine that feeds the network log, the
// dialog handler and the console buffers. Waits such as wait_for_request
// subscribe to the same stream and end with SessionClosed when their tab or
// the session goes away.
//
// # Errors
//
// Driver failures are classified into the tools error taxonomy (Timeout,
// ElementNotFound, SessionClosed, ...) so every call yields one envelope.
// Compound tools attach their partial progress to the error.
//
// # Example Usage
//
//	mgr := browser.NewManager(cfg, browser.NewPlaywrightLauncher(true), metrics.New())
//	reg := browser.NewToolRegistry(mgr, browser.NewArtifactWriter(cfg.Screenshot.Dir), version)
//	registry, err := tools.NewRegistry(reg.RegisterTools())
package browser
