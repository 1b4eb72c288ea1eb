package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/config"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/logging"
)

// envFlags maps each configuration variable to the global flag carrying it
var envFlags = map[string]string{
	config.EnvBucket1:           "bucket-1",
	config.EnvRoleARN1:          "role-arn-1",
	config.EnvRegion1:           "region-1",
	config.EnvBucket2:           "bucket-2",
	config.EnvRoleARN2:          "role-arn-2",
	config.EnvRegion2:           "region-2",
	config.EnvLogLevel:          "log-level",
	config.EnvDeleteWaitTimeout: "delete-wait-timeout",
	config.EnvCallbackTimeout:   "callback-timeout",
}

var envUsage = map[string]string{
	config.EnvBucket1:           "primary bucket (already exists)",
	config.EnvRoleARN1:          "role S3 assumes to replicate out of the primary bucket",
	config.EnvRegion1:           "primary bucket region",
	config.EnvBucket2:           "secondary bucket (created and deleted by invoke)",
	config.EnvRoleARN2:          "role S3 assumes to replicate out of the secondary bucket",
	config.EnvRegion2:           "secondary bucket region",
	config.EnvLogLevel:          "log level (debug, info, warn, error)",
	config.EnvDeleteWaitTimeout: "how long Delete waits for the bucket to disappear",
	config.EnvCallbackTimeout:   "HTTP timeout for the ResponseURL PUT",
}

var envOrder = []string{
	config.EnvBucket1, config.EnvRoleARN1, config.EnvRegion1,
	config.EnvBucket2, config.EnvRoleARN2, config.EnvRegion2,
	config.EnvLogLevel, config.EnvDeleteWaitTimeout, config.EnvCallbackTimeout,
}

func globalFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(envOrder)+1)
	for _, env := range envOrder {
		flags = append(flags, &cli.StringFlag{
			Name:    envFlags[env],
			Usage:   envUsage[env],
			Sources: cli.EnvVars(env),
		})
	}
	flags = append(flags, &cli.StringFlag{
		Name:    "profile",
		Usage:   "shared config profile for AWS credentials",
		Sources: cli.EnvVars("AWS_PROFILE"),
	})
	return flags
}

// configFromFlags loads the replication Config through the same validation
// the Lambda applies to its environment.
func configFromFlags(cmd *cli.Command) (config.Config, error) {
	return config.Load(flagLookup(cmd))
}

// bucketConfigFromFlags is configFromFlags without the role ARNs, for
// commands that only read bucket settings.
func bucketConfigFromFlags(cmd *cli.Command) (config.Config, error) {
	return config.LoadBuckets(flagLookup(cmd))
}

func flagLookup(cmd *cli.Command) func(string) string {
	return func(env string) string {
		name, ok := envFlags[env]
		if !ok {
			return os.Getenv(env)
		}
		return cmd.String(name)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "crrctl",
		Usage:     "operate the bidirectional cross region replication deployer locally",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags:     globalFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := cmd.String("log-level")
			if level == "" {
				level = config.DefaultLogLevel
			}
			logging.Init(os.Stderr, logging.CLI, level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			invokeCommand(out),
			describeCommand(out),
		},
	}
}
