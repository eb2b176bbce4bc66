// Package render turns raw note text into navigable HTML through a
// fixed-order pipeline: protect literal regions, expand media embeds,
// expand wikilinks, restore literals, convert Markdown, post-process.
//
// The stage order is load-bearing. Media embeds must run before
// wikilinks so a filename inside ![[...]] is never captured as a note
// target, and literal regions must be protected first so link-like
// substrings inside code are left alone.
package render

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/styles"
	highlighting "github.com/yuin/goldmark-highlighting/v2"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/veleda/skald/internal/models"
)

// MediaURLPrefix is the stable address scheme for vault media. Embeds
// and post-processed image references always resolve through it.
const MediaURLPrefix = "/api/media/"

// NoteURLPrefix addresses notes in emitted wikilink anchors.
const NoteURLPrefix = "/notes/"

// Resolver is the subset of the note index the renderer consumes.
type Resolver interface {
	Exists(target string) bool
	ResolveMedia(filename string) string
	Generation() uint64
}

// Renderer is safe for concurrent use. It keeps a single-slot memo
// keyed by (input text, index generation): the editor invokes Render on
// every keystroke through its reactive binding, and unchanged text must
// not re-run the pipeline.
type Renderer struct {
	resolver Resolver
	md       goldmark.Markdown

	mu       sync.Mutex
	memoText string
	memoGen  uint64
	memoOut  string
	memoSet  bool
	runs     int // pipeline executions, read by tests
}

// New creates a renderer against the given resolver.
func New(resolver Resolver) *Renderer {
	return &Renderer{
		resolver: resolver,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithCustomStyle(styles.Get("github")),
				),
			),
			// Stages 2 and 3 inject embed and anchor elements into the
			// Markdown source; they must pass through untouched.
			goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe()),
		),
	}
}

// Render converts raw note text to HTML. For fixed text and a fixed
// index state the output is a pure function of the input.
func (r *Renderer) Render(text string) string {
	gen := r.resolver.Generation()

	r.mu.Lock()
	if r.memoSet && r.memoText == text && r.memoGen == gen {
		out := r.memoOut
		r.mu.Unlock()
		return out
	}
	r.mu.Unlock()

	out := r.run(text)

	r.mu.Lock()
	r.memoText = text
	r.memoGen = gen
	r.memoOut = out
	r.memoSet = true
	r.runs++
	r.mu.Unlock()
	return out
}

func (r *Renderer) run(text string) string {
	protected, regions := stage(protectLiterals)(text)
	expanded := stageStr(r.expandEmbeds)(protected)
	expanded = stageStr(r.expandWikilinks)(expanded)
	restored := restoreLiterals(expanded, regions)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(restored), &buf); err != nil {
		// Conversion failure degrades to escaped literal text rather
		// than propagating out of the pipeline.
		return "<pre>" + html.EscapeString(restored) + "</pre>"
	}
	return stageStr(r.postProcess)(buf.String())
}

// stage wraps a two-return pipeline stage so a panic degrades to the
// unmodified input instead of escaping the renderer.
func stage(fn func(string) (string, []string)) func(string) (string, []string) {
	return func(in string) (out string, regions []string) {
		defer func() {
			if recover() != nil {
				out, regions = in, nil
			}
		}()
		return fn(in)
	}
}

func stageStr(fn func(string) string) func(string) string {
	return func(in string) (out string) {
		defer func() {
			if recover() != nil {
				out = in
			}
		}()
		return fn(in)
	}
}

func mediaURL(vaultPath string) string {
	segs := strings.Split(vaultPath, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return MediaURLPrefix + strings.Join(segs, "/")
}

func noteURL(target, anchor string) string {
	u := NoteURLPrefix + url.PathEscape(target)
	if anchor != "" {
		u += "#" + url.PathEscape(anchor)
	}
	return u
}

// mediaEmbed emits the kind-appropriate element for a resolved media
// path, or a visibly broken placeholder carrying the original filename.
func (r *Renderer) mediaEmbed(filename, caption string) string {
	resolved := r.resolver.ResolveMedia(filename)
	if resolved == "" {
		return fmt.Sprintf(`<span class="embed-missing" data-target="%s">%s</span>`,
			html.EscapeString(filename), html.EscapeString(filename))
	}
	if caption == "" {
		caption = stem(filename)
	}
	src := mediaURL(resolved)
	esc := html.EscapeString(caption)
	switch models.KindForPath(resolved) {
	case models.KindImage:
		return fmt.Sprintf(`<img src="%s" alt="%s" loading="lazy">`, src, esc)
	case models.KindAudio:
		return fmt.Sprintf(`<audio controls src="%s" title="%s"></audio>`, src, esc)
	case models.KindVideo:
		return fmt.Sprintf(`<video controls src="%s" title="%s"></video>`, src, esc)
	default:
		return fmt.Sprintf(`<iframe src="%s" class="embed-document" title="%s"></iframe>`, src, esc)
	}
}

func stem(filename string) string {
	if i := strings.LastIndex(filename, "/"); i >= 0 {
		filename = filename[i+1:]
	}
	if i := strings.LastIndex(filename, "."); i > 0 {
		filename = filename[:i]
	}
	return filename
}
