package render

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/veleda/skald/internal/models"
)

var (
	externalAnchorRe = regexp.MustCompile(`<a href="(https?://[^"]*)"`)
	imgTagRe         = regexp.MustCompile(`<img ([^>]*?)src="([^"]*)"([^>]*?)/?>`)
	attrAltRe        = regexp.MustCompile(`alt="([^"]*)"`)
)

// postProcess adjusts the converted HTML: off-site anchors open in a new
// tab, and image elements whose source lives in the vault are rewritten
// to the stable media address. A Markdown image pointing at a non-image
// file (audio, video, document) becomes the matching semantic element.
func (r *Renderer) postProcess(htmlStr string) string {
	htmlStr = externalAnchorRe.ReplaceAllString(htmlStr,
		`<a href="$1" target="_blank" rel="noopener noreferrer"`)

	return imgTagRe.ReplaceAllStringFunc(htmlStr, func(tag string) string {
		sub := imgTagRe.FindStringSubmatch(tag)
		before, src, after := sub[1], sub[2], sub[3]

		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") ||
			strings.HasPrefix(src, "data:") {
			return tag
		}

		vaultPath := r.resolveImageSrc(src)
		if vaultPath == "" {
			// Unknown reference: keep the author's original element.
			return tag
		}

		title := imgAlt(before + after)
		if title == "" {
			title = stem(vaultPath)
		}
		newSrc := mediaURL(vaultPath)
		esc := html.EscapeString(title)
		switch models.KindForPath(vaultPath) {
		case models.KindAudio:
			return fmt.Sprintf(`<audio controls src="%s" title="%s"></audio>`, newSrc, esc)
		case models.KindVideo:
			return fmt.Sprintf(`<video controls src="%s" title="%s"></video>`, newSrc, esc)
		case models.KindDocument:
			return fmt.Sprintf(`<iframe src="%s" class="embed-document" title="%s"></iframe>`, newSrc, esc)
		default:
			return fmt.Sprintf(`<img %ssrc="%s"%s>`, before, newSrc, after)
		}
	})
}

// resolveImageSrc maps an image src attribute to a vault path, or ""
// when the source does not resolve to known media.
func (r *Renderer) resolveImageSrc(src string) string {
	if p, ok := strings.CutPrefix(src, MediaURLPrefix); ok {
		if unescaped, err := url.PathUnescape(p); err == nil {
			return unescaped
		}
		return p
	}
	filename := src
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	if unescaped, err := url.PathUnescape(filename); err == nil {
		filename = unescaped
	}
	return r.resolver.ResolveMedia(filename)
}

func imgAlt(attrs string) string {
	if m := attrAltRe.FindStringSubmatch(attrs); m != nil {
		return m[1]
	}
	return ""
}
