// Package services implements HTTP clients for the systems pricepal talks to.
//
// # Price Tracker Backend
//
// [APIService] makes raw JSON requests to the backend and returns an [APIResponse].
// Every request is rate limited on the client side, bounded by a timeout, and tagged
// with an X-Request-ID header. Authenticated calls carry "Authorization: Bearer <token>".
//
// [Tracker] wraps [APIService] with one method per backend operation:
//
//	POST   /price/fetch-product        FetchProduct
//	POST   /price/add-to-cart          AddToCart
//	POST   /auth/send-tracking-email   SendTrackingEmail
//	POST   /auth/send-login-email      SendLoginEmail
//	GET    /api/user/cart              GetCart
//	DELETE /api/user/cart/{id}         RemoveFromCart
//	PUT    /api/user/profile           UpdateProfile
//	GET    /api/stats                  GetStats
//	GET    /health                     Health
//
// # Error Handling
//
// Non-success responses become [shared.APIError] values whose Kind identifies the
// operation (e.g. [shared.ErrLookupFailed]) and whose Detail is the backend's
// "detail" message, forwarded verbatim. Expired deadlines wrap [shared.ErrTimeout].
// Nothing is retried.
package services
