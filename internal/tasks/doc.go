// Package tasks implements the tracking workflow: product lookup, target price
// validation, tracking submission, and cart synchronisation.
//
// # Components
//
//  1. [ProductLookup] : fetches a [models.ProductSnapshot] for a product link
//     - Blank input is rejected before any request
//     - One lookup at a time; a concurrent call fails with [shared.ErrBusy]
//
//  2. Target price validation : [ParseTargetPrice], [ValidateTargetPrice], [CheckTargetPrice]
//     - Pure functions; a target must be positive and strictly below the current price
//
//  3. [TrackingSubmitter] : validate, submit, notify, report
//     - Requires a session and a valid target before any request
//     - The "tracking started" email is handed to a [Notifier] and never affects the outcome
//
//  4. [CartSync] : the user's tracked products
//     - Every fetch replaces the cached [models.CartSummary] wholesale
//     - A successful removal triggers exactly one refetch
//
//  5. [Account] : profile updates and account statistics
//
// # Progress Reporting
//
// [TrackingSubmitter] reports its [Phase] on an optional channel. Updates use
// select with default so a slow reader never blocks the workflow.
//
// # Session Access
//
// Components read the session through [session.Reader] and ask it for a token
// at the point of use; none of them can change it.
package tasks
