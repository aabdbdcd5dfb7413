// Package middleware adapts goCaptcha.Engine decisions to net/http.
//
//   - [ClientIP] resolves the caller address and stores it with
//     goCaptcha.WithClientIP.
//   - [RequireAllowedCaller] answers 403 with an empty body for callers
//     outside the engine's allow-list.
//
// Decisions are delegated to the Engine; this package only translates them
// into HTTP status codes.
package middleware
