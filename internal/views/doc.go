// Package views builds the derived read models served to assistant hosts:
// study status, leeches and the review forecast.
//
// Everything here is computed from the local mirror; no view ever reaches
// upstream. [Builder] aggregates repository reads into JSON-ready structs,
// and the Render* helpers produce the styled terminal output used by the CLI.
package views
