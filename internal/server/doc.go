// Package server exposes the proxy over HTTP to assistant hosts.
//
// The surface mirrors an MCP tool/resource layout:
//
//	GET  /                      service banner
//	GET  /health                liveness probe
//	POST /register              exchange a WaniKani token for a local API key
//	GET  /mcp/tools             list callable tools
//	POST /mcp/tools/call        invoke get_status, get_leeches or sync_data
//	GET  /mcp/resources         list readable resources
//	GET  /mcp/resources/read    read one wanikani:// resource by uri
//
// All /mcp routes require the locally issued key as a bearer token. The
// /register route sits behind a token-bucket throttle so credential guessing
// stays slow.
package server
