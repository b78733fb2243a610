// Package archive extracts gzip-compressed release tarballs into the
// installation directory, refusing entries that would escape it.
package archive
