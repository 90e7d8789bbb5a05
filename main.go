package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/chative-commerce-agent/agent/agents/assistant"
	"github.com/tanpawarit/chative-commerce-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-commerce-agent/agent/api"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce/memstore"
	"github.com/tanpawarit/chative-commerce-agent/agent/commerce/pgstore"
	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
	"github.com/tanpawarit/chative-commerce-agent/agent/knowledge"
	"github.com/tanpawarit/chative-commerce-agent/agent/llm"
	"github.com/tanpawarit/chative-commerce-agent/agent/procedure"
	"github.com/tanpawarit/chative-commerce-agent/agent/prompt"
	statex "github.com/tanpawarit/chative-commerce-agent/agent/state"
	"github.com/tanpawarit/chative-commerce-agent/agent/tool"
	configx "github.com/tanpawarit/chative-commerce-agent/pkg/config"
	databasex "github.com/tanpawarit/chative-commerce-agent/pkg/database"
	kafkax "github.com/tanpawarit/chative-commerce-agent/pkg/kafka"
	_ "github.com/tanpawarit/chative-commerce-agent/pkg/logger/autoload"
	metricsx "github.com/tanpawarit/chative-commerce-agent/pkg/metrics"
	openrouterx "github.com/tanpawarit/chative-commerce-agent/pkg/openrouter"
	qstashx "github.com/tanpawarit/chative-commerce-agent/pkg/qstash"
	"github.com/uptrace/bun"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	llmCfg := configx.MustNew[llm.Config]("LLM")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm config")
	}
	agentCfg := configx.MustNew[orchestrator.Config]("AGENT")
	dbCfg := configx.MustNew[databasex.Config]("DATABASE")
	qdrantCfg := configx.MustNew[knowledge.Config]("QDRANT")
	redisCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH_REDIS")
	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	kafkaCfg := configx.MustNew[kafkax.Config]("KAFKA")
	httpCfg := configx.MustNew[api.Config]("HTTP")

	metrics := metricsx.New()

	store, closeStore := openCommerceStore(ctx, *dbCfg)
	defer closeStore()
	svc := commerce.NewService(store)

	gatewayOpts := []tool.Option{
		tool.WithObserver(metrics),
		tool.WithCallTimeout(agentCfg.ToolTimeout),
	}
	var retriever contractx.Retriever
	if qdrantCfg.Enabled() {
		qdrant := knowledge.MustNewClient(*qdrantCfg)
		retriever = qdrant

		embedCfg := llmCfg.Embeddings()
		embedder, err := knowledge.NewOpenAIEmbedder(openrouterx.NewClient(embedCfg), embedCfg.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize embedder")
		}
		searcher := knowledge.NewSearcher(embedder, qdrant, qdrantCfg.SearchLimit, qdrantCfg.ScoreThreshold)
		gatewayOpts = append(gatewayOpts, tool.WithKnowledge(searcher))
	} else {
		log.Warn().Msg("QDRANT_URL not set, procedures and knowledge search are disabled")
	}
	if qstashCfg.Enabled() {
		gatewayOpts = append(gatewayOpts, tool.WithEvents(qstashx.MustNew(*qstashCfg)))
	}
	if kafkaCfg.Enabled() {
		publisher, err := kafkax.NewPublisher(*kafkaCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize kafka publisher")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka publisher")
			}
		}()
		gatewayOpts = append(gatewayOpts, tool.WithEvents(publisher))
	}
	if !qstashCfg.Enabled() && !kafkaCfg.Enabled() {
		log.Info().Msg("no event sink configured, domain events are not published")
	}
	gateway := tool.NewGateway(svc, gatewayOpts...)

	injector := procedure.NewInjector(
		procedure.NewDetector(procedure.DefaultRules),
		procedure.NewCache(),
		retriever,
		append(agentCfg.ProcedureOptions(), procedure.WithObserver(metrics))...,
	)

	routerCfg := llmCfg.OpenRouter()
	chatModel, err := routerCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize chat model")
	}
	reasoner, err := assistant.New(ctx, chatModel, tool.Infos())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize assistant")
	}

	history := openConversationStore(*redisCfg)

	orc, err := orchestrator.New(
		history,
		reasoner,
		gateway,
		injector,
		prompt.LoadPromptSet(),
		*agentCfg,
		orchestrator.WithObserver(metrics),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize orchestrator")
	}

	api.SetMode(*httpCfg)
	server := api.NewServer(*httpCfg, orc, svc, metrics)
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}

func openCommerceStore(ctx context.Context, cfg databasex.Config) (commerce.Store, func()) {
	if !cfg.Enabled() {
		log.Warn().Msg("DATABASE_DSN not set, using in-memory commerce store")
		return memstore.New(), func() {}
	}

	db := databasex.MustOpen(ctx, cfg)
	if cfg.AutoMigrate {
		if err := pgstore.Migrate(ctx, db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}
	return pgstore.New(db), func() { closeDB(db) }
}

func closeDB(db *bun.DB) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}

func openConversationStore(cfg statex.UpstashRedisConfig) statex.Store {
	if !cfg.Enabled() {
		log.Warn().Msg("UPSTASH_REDIS_URL not set, conversation history is kept in memory")
		return statex.NewMemoryStore()
	}
	store, err := statex.NewUpstashRedisStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize conversation store")
	}
	return store
}
