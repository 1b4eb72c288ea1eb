package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/apex/log"
	"github.com/aws/aws-lambda-go/cfn"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/awsclient"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/cfnresponse"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/config"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/crr"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/handler"
)

const (
	defaultLogicalResourceID = "BidirectionalCRR"
	localLogStream           = "crrctl/local"
)

func invokeCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "invoke",
		Usage: "run the deployer handler on a custom resource event file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "event",
				Usage:    "path to the CloudFormation custom resource request JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "response-url",
				Usage: "override the event's ResponseURL; with neither set the envelope is printed",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			event, err := readEvent(cmd.String("event"))
			if err != nil {
				return err
			}
			if u := cmd.String("response-url"); u != "" {
				event.ResponseURL = u
			}

			clients, err := awsclient.New(ctx, cfg, awsclient.WithProfile(cmd.String("profile")))
			if err != nil {
				return err
			}

			h := newLocalHandler(cfg, crr.New(cfg, clients.Primary, clients.Secondary), event, out)
			return h.Handle(ctx, event)
		},
	}
}

// newLocalHandler wires the handler the way the Lambda does, except that the
// envelope is printed to out when there is nowhere to PUT it.
func newLocalHandler(cfg config.Config, runner handler.Runner, event cfn.Event, out io.Writer) *handler.Handler {
	var sender cfnresponse.Sender = cfnresponse.WriterSender{W: out}
	if event.ResponseURL != "" {
		sender = cfnresponse.NewNotifier(&http.Client{Timeout: cfg.CallbackTimeout})
	}

	h := handler.New(runner, sender)
	h.LogContext = func(context.Context) cfnresponse.LogContext {
		return cfnresponse.LogContext{LogStreamName: localLogStream}
	}
	return h
}

// readEvent decodes a custom resource request and fills in the identifiers
// CloudFormation would have supplied.
func readEvent(path string) (cfn.Event, error) {
	var event cfn.Event

	f, err := os.Open(path)
	if err != nil {
		return event, fmt.Errorf("open event file: %w", err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&event); err != nil {
		return event, fmt.Errorf("decode event file %s: %w", path, err)
	}

	switch event.RequestType {
	case cfn.RequestCreate, cfn.RequestUpdate, cfn.RequestDelete:
	default:
		return event, fmt.Errorf("event RequestType must be Create, Update or Delete, got %q", event.RequestType)
	}

	if event.RequestID == "" {
		event.RequestID = uuid.NewString()
		log.Debugf("Generated RequestId %s", event.RequestID)
	}
	if event.LogicalResourceID == "" {
		event.LogicalResourceID = defaultLogicalResourceID
	}
	return event, nil
}
