// Package api exposes the crawl flows and the detail extractor over HTTP.
//
// Every response is an Envelope. Rejected bodies and crawler errors answer
// 400, anything unexpected 500, and the HTTP status always equals
// Envelope.Code.
package api
