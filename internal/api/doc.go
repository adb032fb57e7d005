// Package api handles incoming HTTP requests, request validation and
// response formatting. It adapts HTTP calls to the task, library and auth
// services, and maps their errors to status codes in one place.
package api
