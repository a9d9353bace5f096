// Package documents stores submissions in the local cache, together with
// their sync state.
package documents
