// Package record keeps the list of notes the detail extractor has already
// downloaded, so repeated requests can skip them. The list lives in a single
// JSON file that is replaced atomically on every change.
package record
