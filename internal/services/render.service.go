package services

import (
	"bytes"
	"html"
	"praid/internal/logger"
	"praid/internal/stream"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const highlightStyle = "github"

// RenderService turns assistant markdown and structured JSON into HTML fragments.
// Raw HTML inside markdown is escaped, not passed through.
type RenderService struct {
	markdown  goldmark.Markdown
	formatter *chromahtml.Formatter
	style     *chroma.Style
	log       logger.Logger
}

var (
	renderServiceInstance *RenderService
	renderServiceOnce     sync.Once
)

func NewRenderService() *RenderService {
	renderServiceOnce.Do(func() {
		renderServiceInstance = &RenderService{
			markdown: goldmark.New(
				goldmark.WithExtensions(extension.GFM),
			),
			formatter: chromahtml.New(
				chromahtml.WithClasses(false),
				chromahtml.PreventSurroundingPre(false),
			),
			style: styles.Get(highlightStyle),
			log:   logger.New("renderService"),
		}
	})
	return renderServiceInstance
}

func (r *RenderService) Markdown(source string) (string, error) {
	log := r.log.Function("Markdown")

	if strings.TrimSpace(source) == "" {
		return "", nil
	}

	var buffer bytes.Buffer
	if err := r.markdown.Convert([]byte(source), &buffer); err != nil {
		return "", log.Err("failed to render markdown", err, "length", len(source))
	}
	return buffer.String(), nil
}

// HighlightJSON renders text as highlighted HTML. Text that is not JSON still renders.
func (r *RenderService) HighlightJSON(text string) (string, error) {
	log := r.log.Function("HighlightJSON")

	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return "", log.Err("failed to tokenise json", err)
	}

	var buffer bytes.Buffer
	if err := r.formatter.Format(&buffer, r.style, iterator); err != nil {
		return "", log.Err("failed to format json", err)
	}
	return buffer.String(), nil
}

// StructuredHTML renders a structured extraction. Finished documents are normalised
// first; an in-flight one is rendered through the partial renderer with its marker.
func (r *RenderService) StructuredHTML(raw string) (string, error) {
	if pretty, ok := stream.FinalizeJSON(raw); ok {
		return r.HighlightJSON(pretty)
	}

	rendered := stream.RenderPartialJSON(raw)
	if !strings.Contains(rendered.Text, "{") && !strings.Contains(rendered.Text, "[") {
		return "<pre>" + html.EscapeString(rendered.Text) + "</pre>", nil
	}
	return r.HighlightJSON(rendered.Text)
}
