// Package components converts SocialDB widget records into the on-disk source
// layout and back.
//
// A component named "a.b.widget" lives at a/b/widget.jsx, with its metadata, if
// any, pretty-printed next to it at a/b/widget.metadata.json. Paths inside a
// FileTree are slash separated and relative to the download root; OSFS
// converts them to the platform separator.
package components
