package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/itsu-games/itsu/internal/bot"
	"github.com/itsu-games/itsu/internal/cache/cachelru"
	"github.com/itsu-games/itsu/internal/database"
	itemDb "github.com/itsu-games/itsu/internal/database/item/database"
	"github.com/itsu-games/itsu/internal/database/ledger"
	matchDb "github.com/itsu-games/itsu/internal/database/match/database"
	queueDb "github.com/itsu-games/itsu/internal/database/queue/database"
	userDb "github.com/itsu-games/itsu/internal/database/user/database"
	"github.com/itsu-games/itsu/internal/game"
	"github.com/itsu-games/itsu/internal/genai"
	"github.com/itsu-games/itsu/internal/logging"
	"github.com/itsu-games/itsu/internal/matchmaker"
	"github.com/itsu-games/itsu/internal/resource"
	"github.com/itsu-games/itsu/internal/server"
	"github.com/itsu-games/itsu/internal/shutdown"
	"github.com/kelseyhightower/envconfig"
)

type config struct {
	// Logging at debug level
	Debug bool `envconfig:"ITSU_DEBUG" default:"false"`

	// Number of user records held in the LRU cache
	CacheSize int `envconfig:"ITSU_CACHE_SIZE" default:"1024"`

	// Port on which the health check is launched
	Port string `envconfig:"ITSU_PORT" default:"1234"`

	// profile port
	ProfPort string `envconfig:"ITSU_PROF_PORT" default:"8888"`

	Db         database.Config
	Matchmaker matchmaker.Config
	Genai      genai.Config
}

func main() {
	_, _ = fmt.Fprint(os.Stdout, resource.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		resource.GreetingCLI,
		resource.ProjectName,
		resource.ProjectVersion,
		resource.GithubItsuUrl,
	)

	ctx, done := shutdown.New()
	defer done()
	logger := logging.FromContext(ctx)
	if err := realMain(ctx, done); err != nil {
		logger.Fatalf("main.realMain: %v", err)
	}
}

func realMain(ctx context.Context, done func()) error {
	config := config{}
	if err := envconfig.Process("", &config); err != nil {
		return fmt.Errorf("processing the config: %v", err)
	}

	ctx = logging.WithLogger(ctx, logging.NewLogger(config.Debug))
	logger := logging.FromContext(ctx)

	if config.Genai.APIKey == "" {
		return fmt.Errorf("generation api key not found, set ITSU_GENAI_API_KEY")
	}

	db, err := database.NewFromEnv(ctx, &config.Db)
	if err != nil {
		return fmt.Errorf("new database from env: %v", err)
	}

	defer db.Close(ctx)

	userCache, err := cachelru.NewLRU(config.CacheSize)
	if err != nil {
		return fmt.Errorf("can not create lru cache: %v", err)
	}

	users := userDb.New(db, userCache)
	matches := matchDb.New(db)
	queue := queueDb.New(db)
	items := itemDb.New(db)
	led := ledger.New(db, users, matches, queue)

	registry := game.NewRegistry(nil)
	fanout := &game.Fanout{}
	engine := game.NewEngine(registry, led, fanout, nil)

	completer := genai.New(config.Genai)
	bots := bot.New(completer, engine)
	bots.Run(ctx)
	registry.OnRemove(bots.ClearMatch)
	fanout.Add(bots)
	fanout.Add(game.BroadcasterFunc(func(matchID string, snapshot game.Match) {
		logger.Debugf("match %s state changed: %s", matchID, snapshot.Status)
	}))

	maker := matchmaker.New(config.Matchmaker, queue, items, led, engine, nil)

	go registry.Run(ctx)
	go engine.Run(ctx)
	go maker.Run(ctx)

	srv, err := server.New(config.Port)
	if err != nil {
		return fmt.Errorf("server.New: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/health", server.HandleHealth(ctx))

	go func() {
		if err := srv.ServeHTTP(ctx, &http.Server{Handler: mux}); err != nil {
			logger.Errorf("srv.ServeHTTP: %v", err)
			done()
		}
	}()

	go func() {
		if err := http.ListenAndServe(":"+config.ProfPort, nil); err != nil {
			logger.Errorf("pprof default server: %v", err)
			done()
		}
	}()

	logger.Infof("itsu server started, matchmaker currency: %s", config.Matchmaker.Currency)
	<-ctx.Done()

	return nil
}
