// Package xhs is the signed HTTP client for the Xiaohongshu PC web API and
// the creator platform API.
//
// Every call returns the parsed JSON envelope or an error of kind
// upstream_request_failed. Callers never see a half-classified response.
package xhs
