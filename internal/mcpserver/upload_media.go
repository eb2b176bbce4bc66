package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/veleda/skald/internal/render"
)

const maxMediaSize = 10 << 20 // 10 MB

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".webp": true, ".svg": true, ".pdf": true,
		".mp3": true, ".wav": true, ".ogg": true,
		".mp4": true, ".webm": true,
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// uploadMedia stores base64-encoded media in the vault and returns the
// embed syntax ready to paste into a note body.
func (s *Server) uploadMedia(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filename, err := req.RequireString("filename")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	encoded, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ext := strings.ToLower(path.Ext(filename))
	if !allowedExtensions[ext] {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported extension: %s", ext)), nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return mcp.NewToolResultError("content must be base64-encoded"), nil
	}
	if len(data) > maxMediaSize {
		return mcp.NewToolResultError(fmt.Sprintf("media exceeds %d bytes", maxMediaSize)), nil
	}

	clean := safeFilenameRe.ReplaceAllString(path.Base(filename), "-")
	saved, err := s.ctrl.SaveMedia("", clean, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf(
		"saved: %s\nurl: %s%s\nembed: ![[%s]]",
		saved, render.MediaURLPrefix, saved, path.Base(saved))), nil
}
