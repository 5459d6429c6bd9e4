package cli

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/grognard-labs/aslcat/internal/config"
	"github.com/grognard-labs/aslcat/internal/db"
	"github.com/grognard-labs/aslcat/internal/logger"
	"github.com/grognard-labs/aslcat/internal/search"
	"github.com/grognard-labs/aslcat/internal/startup"
	"github.com/grognard-labs/aslcat/internal/store"
)

// app is the wired application: configuration, storage and the search
// pipeline, shared by every command that touches the catalog.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	sdb       *sql.DB
	store     *store.Store
	index     *search.Index
	aliases   *search.Aliases
	weights   search.WeightTable
	authors   search.AuthorAliases
	formatter *search.Formatter
	msgs      *startup.Messages
}

// newApp loads config, opens the database and builds the search pipeline.
// Problems in the search tuning tables (unknown aliases, bad weights) are
// collected as startup messages rather than failing the boot.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.Load(cfgFile); err != nil {
			return nil, err
		}
	}

	log, err := logger.New(cfg.Env, logLevel)
	if err != nil {
		return nil, err
	}

	sdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DB, err)
	}

	st := store.New(sdb)
	if err := st.Init(); err != nil {
		sdb.Close()
		return nil, err
	}

	msgs := startup.New(log)
	if fp := cfg.Fingerprint(); fp != "" {
		msgs.Info("Loaded config %s (%s).", cfgFile, fp)
	}

	aliases := search.NewAliases(cfg.Search.Aliases, cfg.Search.Groups, msgs.Warning)
	weights := search.NewWeights(cfg.Search.Weights, msgs.Warning)
	authors := search.ResolveAuthorAliases(ctx, cfg.Search.AuthorAliases, st, msgs.Warning)

	index := search.NewIndex(sdb, log)
	if err := index.Init(ctx); err != nil {
		sdb.Close()
		return nil, err
	}

	linker := search.NewRuleLinker(cfg.ASLRBBaseURL)
	formatter := search.NewFormatter(st, linker, log)

	return &app{
		cfg:       cfg,
		log:       log,
		sdb:       sdb,
		store:     st,
		index:     index,
		aliases:   aliases,
		weights:   weights,
		authors:   authors,
		formatter: formatter,
		msgs:      msgs,
	}, nil
}

func (a *app) Close() {
	_ = a.log.Sync()
	_ = a.sdb.Close()
}
