// Package httpapi is the service's HTTP surface. It stays deliberately thin:
// handlers decode input, call the export and realtime components and encode
// the result. All domain rules live in the components themselves.
//
// Error responses use the same envelope as the live gateway: a JSON object
// with an "error" member mapping failing fields to messages.
package httpapi
