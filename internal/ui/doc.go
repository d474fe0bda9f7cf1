// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for price tracking:
//  1. [CartView] : Browse tracked products, refresh, remove, or open them in a browser
//  2. [ConfirmView] : Confirm removal of the selected product
//  3. [LookupView] : Paste an Amazon URL and fetch the product snapshot
//  4. [TargetView] : Enter a target price for the fetched product
//  5. [SubmitView] : Monitor the tracking submission as it moves through its phases
//  6. [ResultView] : Display the tracked product and expected savings
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the TrackingSubmitter, providing non-blocking status reporting during submission.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
