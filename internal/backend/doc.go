// Package backend talks to the monitoring backend before installation starts.
//
// It exposes a single health probe that must answer HTTP 200 for the install
// to proceed; any other outcome aborts the run before a byte is downloaded.
package backend
