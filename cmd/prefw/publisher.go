package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/TincheHK/prefw/notify"
	"github.com/TincheHK/prefw/notify/bayeux"
	"github.com/TincheHK/prefw/notify/kafka"
	notifyredis "github.com/TincheHK/prefw/notify/redis"

	"github.com/micromdm/nanolib/log"
	"github.com/redis/go-redis/v9"
)

type publisherConfig struct {
	bayeuxURL    string
	kafkaBrokers string
	kafkaTopic   string
	newRedis     func(addr string) redis.UniversalClient
}

// parsePublishers configures the comma separated publisher names.
// The returned closers must be closed on shutdown.
func parsePublishers(names string, cfg *publisherConfig, logger log.Logger) (notify.Publisher, []io.Closer, error) {
	var (
		pubs    notify.Multi
		closers []io.Closer
	)
	for _, name := range strings.Split(names, ",") {
		switch name = strings.TrimSpace(name); name {
		case "":
		case "log":
			pubs = append(pubs, notify.NewLogPublisher(logger))
		case "bayeux":
			if cfg.bayeuxURL == "" {
				return nil, closers, fmt.Errorf("publisher %s: missing url", name)
			}
			pubs = append(pubs, bayeux.New(cfg.bayeuxURL))
		case "kafka":
			if cfg.kafkaBrokers == "" {
				return nil, closers, fmt.Errorf("publisher %s: missing brokers", name)
			}
			p := kafka.New(strings.Split(cfg.kafkaBrokers, ","), cfg.kafkaTopic)
			pubs = append(pubs, p)
			closers = append(closers, p)
		case "redis":
			pubs = append(pubs, notifyredis.New(cfg.newRedis(""), ""))
		default:
			return nil, closers, fmt.Errorf("unknown publisher: %s", name)
		}
	}
	switch len(pubs) {
	case 0:
		return nil, closers, nil
	case 1:
		return pubs[0], closers, nil
	}
	return pubs, closers, nil
}
