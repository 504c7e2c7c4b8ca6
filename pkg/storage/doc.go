// Package storage lays archived items out on disk. Each item owns a
// numbered directory under the archive root containing an HTML
// rendering, a plain text version, a metadata record and any
// downloaded images; the archive root also holds the saved item list.
// All writes go through a temp-file-and-rename step so interrupted
// runs never leave partial artifacts.
package storage
