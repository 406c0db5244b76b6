package ui

import "embed"

// Dist embeds the frontend served when server.static_dir is unset. The
// checked-in dist/ holds a placeholder page; a release build replaces it
// with the compiled dashboard.
//
//go:embed all:dist
var Dist embed.FS
