// Package release resolves the host architecture to a release artifact and
// downloads it over HTTPS to a local file.
//
// Unrecognized architectures and non-200 responses fail the install; a broken
// transfer never leaves a partial artifact behind.
package release
