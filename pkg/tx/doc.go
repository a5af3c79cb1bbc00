// Package tx assembles the single function call a SocialDB write turns into
// and reports the terminal status returned by whoever signs and broadcasts it.
// The package performs no network I/O: a Submitter is supplied by the caller.
package tx
