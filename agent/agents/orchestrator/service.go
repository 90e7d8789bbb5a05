package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	nodex "github.com/tanpawarit/chative-commerce-agent/agent/nodes/orchestrator"
	"github.com/tanpawarit/chative-commerce-agent/agent/procedure"
	"github.com/tanpawarit/chative-commerce-agent/agent/prompt"
	statex "github.com/tanpawarit/chative-commerce-agent/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
)

const partialSaveTimeout = 5 * time.Second

type Config struct {
	MaxToolRounds     int           `envconfig:"MAX_TOOL_ROUNDS" split_words:"true" default:"5"`
	ReasonTimeout     time.Duration `envconfig:"REASON_TIMEOUT" split_words:"true" default:"60s"`
	ToolTimeout       time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"20s"`
	LookupTimeout     time.Duration `envconfig:"LOOKUP_TIMEOUT" split_words:"true" default:"5s"`
	ProcedurePrefix   string        `envconfig:"PROCEDURE_PREFIX" split_words:"true" default:"agent-sop-"`
	ProcedureAudience string        `envconfig:"PROCEDURE_AUDIENCE" split_words:"true" default:"agent"`
}

// ProcedureOptions maps the procedure settings onto injector options.
func (c Config) ProcedureOptions() []procedure.Option {
	return []procedure.Option{
		procedure.WithPrefix(c.ProcedurePrefix),
		procedure.WithAudience(c.ProcedureAudience),
		procedure.WithLookupTimeout(c.LookupTimeout),
	}
}

// TurnObserver receives one event per finished turn.
type TurnObserver interface {
	ObserveTurn(outcome string, rounds int)
}

type Option func(*Orchestrator)

func WithObserver(o TurnObserver) Option {
	return func(orc *Orchestrator) { orc.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(orc *Orchestrator) {
		if now != nil {
			orc.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(orc *Orchestrator) {
		if newID != nil {
			orc.newID = newID
		}
	}
}

type Orchestrator struct {
	store    statex.Store
	reasoner nodex.Reasoner
	tools    contractx.ToolGateway
	injector nodex.ProcedureInjector
	prompts  prompt.PromptSet
	cfg      Config
	observer TurnObserver

	// One mutex per conversation; turns of one conversation never overlap.
	locks *xsync.MapOf[string, *sync.Mutex]

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	reasoner nodex.Reasoner,
	tools contractx.ToolGateway,
	injector nodex.ProcedureInjector,
	prompts prompt.PromptSet,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("conversation store is required")
	}
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if tools == nil {
		return nil, errors.New("tool gateway is required")
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = 5
	}

	o := &Orchestrator{
		store:    store,
		reasoner: reasoner,
		tools:    tools,
		injector: injector,
		prompts:  prompts,
		cfg:      cfg,
		locks:    xsync.NewMapOf[string, *sync.Mutex](),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// Welcome is the greeting for a new conversation.
func (o *Orchestrator) Welcome() string {
	return o.prompts.Welcome
}

// HandleMessage runs one turn. An empty conversationID starts a new conversation.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID string, text string) (contractx.TurnResult, error) {
	// Rejected before a lock entry is created for the conversation.
	if strings.TrimSpace(text) == "" {
		return contractx.TurnResult{}, ErrInvalidMessage
	}

	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		conversationID = o.newID()
	}

	mu, _ := o.locks.LoadOrCompute(conversationID, func() *sync.Mutex { return &sync.Mutex{} })
	mu.Lock()
	defer mu.Unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID: conversationID,
		Text:           text,
	})
	if err != nil {
		o.observe("error", 0)
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("turn failed")
		o.savePartial(ctx, conversationID, err)
		return contractx.TurnResult{}, err
	}

	outcome := "answered"
	if out.Result.Degraded {
		outcome = "degraded"
	}
	o.observe(outcome, out.Result.Rounds)
	log.Info().
		Str("conversation_id", conversationID).
		Int("rounds", out.Result.Rounds).
		Int("tool_calls", len(out.Result.ToolCalls)).
		Bool("degraded", out.Result.Degraded).
		Msg("turn finished")
	return out.Result, nil
}

// savePartial keeps committed tool rounds of a failed turn in the history so
// the next turn sees what was already written.
func (o *Orchestrator) savePartial(ctx context.Context, conversationID string, turnErr error) {
	var partial *nodex.PartialTurnError
	if !errors.As(turnErr, &partial) || len(partial.Pending) == 0 {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), partialSaveTimeout)
	defer cancel()
	if err := o.store.Append(saveCtx, conversationID, partial.Pending...); err != nil {
		log.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to save committed tool rounds")
		return
	}
	log.Warn().
		Str("conversation_id", conversationID).
		Int("entries", len(partial.Pending)).
		Msg("saved committed tool rounds of a failed turn")
}

func (o *Orchestrator) observe(outcome string, rounds int) {
	if o.observer != nil {
		o.observer.ObserveTurn(outcome, rounds)
	}
}
