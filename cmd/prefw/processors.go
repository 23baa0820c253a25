package main

import (
	"github.com/TincheHK/prefw/processor/approval"
	"github.com/TincheHK/prefw/processor/form"
	"github.com/TincheHK/prefw/processor/webhook"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
)

type processorRegisterer interface {
	RegisterProcessor(endpoint string, p workflow.Processor) error
}

// registerProcessors binds the built-in processors to their endpoints.
func registerProcessors(r processorRegisterer, webhookURL string, logger log.Logger) error {
	wh := webhook.New(
		webhook.WithURL(webhookURL),
		webhook.WithLogger(logger.With("processor", webhook.Endpoint)),
	)
	for endpoint, p := range map[string]workflow.Processor{
		form.Endpoint:     form.New(),
		approval.Endpoint: approval.New(),
		webhook.Endpoint:  wh,
	} {
		if err := r.RegisterProcessor(endpoint, p); err != nil {
			return err
		}
	}
	return nil
}
