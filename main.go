package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/kaiyuanlo/onboarding-copilot/agent/export"
	oraclex "github.com/kaiyuanlo/onboarding-copilot/agent/oracle"
	promptx "github.com/kaiyuanlo/onboarding-copilot/agent/prompt"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
	"github.com/kaiyuanlo/onboarding-copilot/agent/turn"
	uploadx "github.com/kaiyuanlo/onboarding-copilot/agent/upload"
	configx "github.com/kaiyuanlo/onboarding-copilot/pkg/config"
	_ "github.com/kaiyuanlo/onboarding-copilot/pkg/logger/autoload"
	openaix "github.com/kaiyuanlo/onboarding-copilot/pkg/openai"
	qstashx "github.com/kaiyuanlo/onboarding-copilot/pkg/qstash"
	serverx "github.com/kaiyuanlo/onboarding-copilot/server"
)

type AppConfig struct {
	DatabaseURL       string `envconfig:"DATABASE_URL" split_words:"true" required:"true"`
	TableNamespace    string `envconfig:"TABLE_NAMESPACE" split_words:"true"`
	ExportEnabled     bool   `envconfig:"EXPORT_ENABLED" split_words:"true" default:"false"`
	ExportDestination string `envconfig:"EXPORT_DESTINATION" split_words:"true"`
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	appCfg := configx.MustNew[AppConfig]("")
	httpCfg := configx.MustNew[serverx.Config]("HTTP")
	openaiCfg := configx.MustNew[openaix.Config]("OPENAI")

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(appCfg.DatabaseURL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	store := statex.NewBunStore(db, appCfg.TableNamespace)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	oracle := oraclex.NewChatOracle(openaix.NewClient(*openaiCfg), openaiCfg.Model)

	var exporter *export.QStashExporter
	if appCfg.ExportEnabled {
		qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
		var err error
		exporter, err = export.NewQStashExporter(qstashx.MustNew(*qstashCfg), appCfg.ExportDestination)
		if err != nil {
			log.Fatal().Err(err).Msg("configure exporter")
		}
	}

	var processor *turn.Processor
	var err error
	if exporter != nil {
		processor, err = turn.New(store, oracle, exporter)
	} else {
		processor, err = turn.New(store, oracle, nil)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("build turn processor")
	}

	prompts := promptx.LoadPromptSet()
	extractCfg := openaiCfg.ForExtraction()
	extractor, err := uploadx.NewExtractor(ctx, store, &extractCfg, prompts.UploadSystem)
	if err != nil {
		log.Fatal().Err(err).Msg("build document extractor")
	}

	srv := serverx.New(*httpCfg, store, processor, extractor)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
