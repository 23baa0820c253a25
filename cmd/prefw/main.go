// Package main starts a prefw server.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/TincheHK/prefw/engine"
	enginehttp "github.com/TincheHK/prefw/engine/http"
	httpprefw "github.com/TincheHK/prefw/http"
	"github.com/TincheHK/prefw/log/logkeys"
	workhttp "github.com/TincheHK/prefw/subsystem/work/http"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/envflag"
	nanohttp "github.com/micromdm/nanolib/http"
	"github.com/micromdm/nanolib/http/trace"
	"github.com/micromdm/nanolib/log/stdlogfmt"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// overridden by -ldflags -X
var version = "unknown"

const (
	apiUsername = "prefw"
	apiRealm    = "prefw"
)

func main() {
	var (
		flDebug      = flag.Bool("debug", false, "log debug messages")
		flListen     = flag.String("listen", ":9004", "HTTP listen address")
		flVersion    = flag.Bool("version", false, "print version and exit")
		flDump       = flag.Bool("dump", false, "dump request bodies")
		flAPIKey     = flag.String("api", "", "API key for API endpoints")
		flStorage    = flag.String("storage", "file", "name of storage backend")
		flDSN        = flag.String("storage-dsn", "", "data source name (e.g. connection string or path)")
		flDefs       = flag.String("definitions", "", "path to JSON task and work definitions")
		flPublishers = flag.String("publisher", "log", "comma separated notification publishers (log, bayeux, kafka, redis)")
		flBayeuxURL  = flag.String("bayeux-url", "", "URL of Bayeux (Faye) server")
		flKafka      = flag.String("kafka-brokers", "", "comma separated Kafka brokers")
		flKafkaTopic = flag.String("kafka-topic", "prefw.notifications", "Kafka notification topic")
		flRedisAddr  = flag.String("redis-addr", "localhost:6379", "Redis address")
		flWebhookURL = flag.String("webhook-url", "", "default URL of the webhook processor")
		flSchedule   = flag.String("headless-schedule", "@every 1m", "cron schedule of the headless task worker; empty disables")
		flHeadlessTO = flag.Duration("headless-timeout", 50*time.Second, "deadline of each headless worker run; 0 disables")
		flNotifyTO   = flag.Duration("notify-timeout", engine.DefaultNotifyTimeout, "deadline of each notification fan-out")
		flSuperGroup = flag.String("super-group", "", "group whose members are super users")
		flOTel       = flag.String("otel-endpoint", "", "OTLP HTTP endpoint for traces")
	)
	envflag.Parse("PREFW_", []string{"version"})

	if *flVersion {
		fmt.Println(version)
		return
	}

	logger := stdlogfmt.New(stdlogfmt.WithDebugFlag(*flDebug))
	ctx := context.Background()

	shutdownTracer, err := initTracer(ctx, "prefw", *flOTel)
	if err != nil {
		logger.Info(logkeys.Message, "init tracer", logkeys.Error, err)
		os.Exit(1)
	}
	defer shutdownTracer()

	var (
		redisMu      sync.Mutex
		redisClients = make(map[string]redis.UniversalClient)
	)
	newRedis := func(addr string) redis.UniversalClient {
		if addr == "" {
			addr = *flRedisAddr
		}
		redisMu.Lock()
		defer redisMu.Unlock()
		if c, ok := redisClients[addr]; ok {
			return c
		}
		c := redis.NewClient(&redis.Options{Addr: addr})
		redisClients[addr] = c
		return c
	}

	// configure storage
	storage, err := parseStorage(*flStorage, *flDSN, newRedis)
	if err != nil {
		logger.Info(logkeys.Message, "parse storage", logkeys.Error, err)
		os.Exit(1)
	}

	// configure notifications
	pub, closers, err := parsePublishers(*flPublishers, &publisherConfig{
		bayeuxURL:    *flBayeuxURL,
		kafkaBrokers: *flKafka,
		kafkaTopic:   *flKafkaTopic,
		newRedis:     newRedis,
	}, logger.With("service", "notify"))
	if err != nil {
		logger.Info(logkeys.Message, "parse publishers", logkeys.Error, err)
		os.Exit(1)
	}
	for _, c := range closers {
		defer c.Close()
	}

	// configure the workflow engine
	eOpts := []engine.Option{
		engine.WithLogger(logger.With("service", "engine")),
		engine.WithNotifyTimeout(*flNotifyTO),
	}
	if pub != nil {
		eOpts = append(eOpts, engine.WithPublisher(pub))
	}
	e := engine.New(storage.engine, storage.work, eOpts...)

	// register processors with the engine
	err = registerProcessors(e, *flWebhookURL, logger)
	if err != nil {
		logger.Info(logkeys.Message, "registering processors", logkeys.Error, err)
		os.Exit(1)
	}

	if *flDefs != "" {
		defs, err := readDefinitions(*flDefs)
		if err == nil {
			err = loadDefinitions(ctx, defs, e, storage.work, logger)
		}
		if err != nil {
			logger.Info(logkeys.Message, "loading definitions", logkeys.Error, err)
			os.Exit(1)
		}
	}

	// configure the headless task worker
	if *flSchedule != "" {
		w := engine.NewWorker(e, storage.engine, engine.WithWorkerLogger(logger.With("service", "engine worker")))
		c, err := scheduleWorker(ctx, *flSchedule, *flHeadlessTO, w, logger.With("service", "scheduler"))
		if err != nil {
			logger.Info(logkeys.Message, "scheduling worker", logkeys.Error, err)
			os.Exit(1)
		}
		defer c.Stop()
	}

	mux := flow.New()

	mux.Handle("/version", nanohttp.NewJSONVersionHandler(version))
	mux.Handle("/metrics", promhttp.Handler(), "GET")

	if *flAPIKey != "" {
		mux.Group(func(mux *flow.Mux) {
			mux.Use(func(h http.Handler) http.Handler {
				return nanohttp.NewSimpleBasicAuthHandler(h, apiUsername, *flAPIKey, apiRealm)
			})
			if *flDump {
				mux.Use(func(h http.Handler) http.Handler {
					return httpprefw.DumpHandler(h, os.Stdout)
				})
			}

			enginehttp.HandleAPIv1("/v1", mux, logger, e, *flSuperGroup)
			workhttp.HandleAPIv1("/v1", mux, logger, storage.work)
		})
	} else {
		logger.Info(logkeys.Message, "no API key configured, API endpoints disabled")
	}

	// seed for newTraceID
	rand.Seed(time.Now().UnixNano())

	logger.Info(logkeys.Message, "starting server", "listen", *flListen)
	err = http.ListenAndServe(*flListen, trace.NewTraceLoggingHandler(mux, logger.With("handler", "log"), newTraceID))
	logs := []interface{}{logkeys.Message, "server shutdown"}
	if err != nil {
		logs = append(logs, logkeys.Error, err)
	}
	logger.Info(logs...)
	e.Wait()
}

// newTraceID generates a new HTTP trace ID for context logging.
func newTraceID(_ *http.Request) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
