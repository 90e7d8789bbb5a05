package procedure

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

const (
	DefaultPrefix   = "agent-sop-"
	DefaultAudience = "agent"

	blockHeader = "RELEVANT PROCEDURES"
)

// Observer receives one event per procedure lookup: cache, retrieval, missing or error.
type Observer interface {
	ObserveProcedure(source string)
}

type Procedure struct {
	Tool string
	Text string
}

// Injection is what one turn gets: the detected tools and the procedures
// found for them, both in detection order.
type Injection struct {
	Tools      []string
	Procedures []Procedure
}

// Block renders the procedures as one instructional block, or "" when none were found.
func (in Injection) Block() string {
	if len(in.Procedures) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(blockHeader)
	b.WriteString("\nFollow these procedures when using the corresponding tools in this conversation.\n")
	for _, p := range in.Procedures {
		b.WriteString("\n## ")
		b.WriteString(p.Tool)
		b.WriteString("\n")
		b.WriteString(p.Text)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

type Injector struct {
	detector  *Detector
	cache     *Cache
	retriever contractx.Retriever
	prefix    string
	audience  string
	timeout   time.Duration
	observer  Observer
}

type Option func(*Injector)

func WithPrefix(prefix string) Option {
	return func(i *Injector) {
		if strings.TrimSpace(prefix) != "" {
			i.prefix = strings.TrimSpace(prefix)
		}
	}
}

func WithAudience(audience string) Option {
	return func(i *Injector) {
		if strings.TrimSpace(audience) != "" {
			i.audience = strings.TrimSpace(audience)
		}
	}
}

// WithLookupTimeout bounds each retrieval call.
func WithLookupTimeout(d time.Duration) Option {
	return func(i *Injector) {
		i.timeout = d
	}
}

func WithObserver(o Observer) Option {
	return func(i *Injector) {
		i.observer = o
	}
}

func NewInjector(detector *Detector, cache *Cache, retriever contractx.Retriever, opts ...Option) *Injector {
	if detector == nil {
		detector = NewDetector(DefaultRules)
	}
	if cache == nil {
		cache = NewCache()
	}
	i := &Injector{
		detector:  detector,
		cache:     cache,
		retriever: retriever,
		prefix:    DefaultPrefix,
		audience:  DefaultAudience,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// DocumentID is the knowledge-store id of the procedure for tool.
func (i *Injector) DocumentID(tool string) string {
	return i.prefix + strings.ReplaceAll(tool, "_", "-")
}

// Inject resolves the procedures relevant to userText. Missing documents and
// retrieval failures only drop that procedure; the error is non-nil only when
// ctx itself is done.
func (i *Injector) Inject(ctx context.Context, userText string) (Injection, error) {
	out := Injection{Tools: i.detector.Detect(userText)}
	for _, tool := range out.Tools {
		if err := ctx.Err(); err != nil {
			return Injection{}, err
		}
		text, ok := i.lookup(ctx, tool)
		if !ok {
			continue
		}
		out.Procedures = append(out.Procedures, Procedure{Tool: tool, Text: text})
	}
	return out, nil
}

func (i *Injector) lookup(ctx context.Context, tool string) (string, bool) {
	if text, ok := i.cache.Get(tool); ok {
		i.observe("cache")
		return text, true
	}
	if i.retriever == nil {
		i.observe("missing")
		return "", false
	}

	lookupCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	id := i.DocumentID(tool)
	text, found, err := i.retriever.Lookup(lookupCtx, id, i.audience)
	switch {
	case err != nil:
		i.observe("error")
		evt := log.Warn()
		if errors.Is(err, context.Canceled) {
			evt = log.Debug()
		}
		evt.Err(err).Str("tool", tool).Str("procedure_id", id).Msg("procedure retrieval failed")
		return "", false
	case !found || strings.TrimSpace(text) == "":
		i.observe("missing")
		log.Debug().Str("tool", tool).Str("procedure_id", id).Msg("no procedure document")
		return "", false
	}

	text = strings.TrimSpace(text)
	i.cache.Put(tool, text)
	i.observe("retrieval")
	return text, true
}

func (i *Injector) observe(source string) {
	if i.observer != nil {
		i.observer.ObserveProcedure(source)
	}
}
