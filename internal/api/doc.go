// Package api exposes every registered model as a JSON:API resource over
// HTTP. Handlers build a fresh Manager and ResponseManager per request,
// translate query parameters and bodies into manager calls and map
// failures to error documents without leaking internal details.
package api
