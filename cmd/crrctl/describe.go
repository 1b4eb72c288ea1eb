package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/awsclient"
	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/config"
)

// bucketInspector is the read side of *s3.Client used by describe
type bucketInspector interface {
	GetBucketVersioning(ctx context.Context, params *s3.GetBucketVersioningInput, optFns ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error)
	GetBucketReplication(ctx context.Context, params *s3.GetBucketReplicationInput, optFns ...func(*s3.Options)) (*s3.GetBucketReplicationOutput, error)
}

type siteReport struct {
	Site        config.Site        `yaml:",inline"`
	Versioning  string             `yaml:"versioning"`
	Replication *replicationReport `yaml:"replication,omitempty"`
	Error       string             `yaml:"error,omitempty"`
}

type replicationReport struct {
	Role  string       `yaml:"role"`
	Rules []ruleReport `yaml:"rules"`
}

type ruleReport struct {
	ID          string `yaml:"id"`
	Status      string `yaml:"status"`
	Prefix      string `yaml:"prefix"`
	Destination string `yaml:"destination"`
}

type report struct {
	Primary   siteReport `yaml:"primary"`
	Secondary siteReport `yaml:"secondary"`
}

func describeCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "describe",
		Usage: "print versioning and replication settings of both buckets as YAML (role ARNs not required)",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := bucketConfigFromFlags(cmd)
			if err != nil {
				return err
			}
			clients, err := awsclient.New(ctx, cfg, awsclient.WithProfile(cmd.String("profile")))
			if err != nil {
				return err
			}
			return describe(ctx, out, cfg, clients.Primary, clients.Secondary)
		},
	}
}

func describe(ctx context.Context, out io.Writer, cfg config.Config, primary, secondary bucketInspector) error {
	r := report{
		Primary:   inspect(ctx, primary, cfg.Primary),
		Secondary: inspect(ctx, secondary, cfg.Secondary),
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// inspect never fails; lookup errors are recorded in the report so one
// missing bucket does not hide the other.
func inspect(ctx context.Context, client bucketInspector, site config.Site) siteReport {
	sr := siteReport{Site: site}

	v, err := client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{Bucket: aws.String(site.Bucket)})
	if err != nil {
		sr.Error = err.Error()
		return sr
	}
	sr.Versioning = string(v.Status)
	if sr.Versioning == "" {
		sr.Versioning = "Unversioned"
	}

	rep, err := client.GetBucketReplication(ctx, &s3.GetBucketReplicationInput{Bucket: aws.String(site.Bucket)})
	if err != nil {
		if !isAPIErrorCode(err, "ReplicationConfigurationNotFoundError") {
			sr.Error = err.Error()
		}
		return sr
	}
	if rep.ReplicationConfiguration == nil {
		return sr
	}

	rr := &replicationReport{Role: aws.ToString(rep.ReplicationConfiguration.Role)}
	for _, rule := range rep.ReplicationConfiguration.Rules {
		rt := ruleReport{
			ID:     aws.ToString(rule.ID),
			Status: string(rule.Status),
			Prefix: aws.ToString(rule.Prefix),
		}
		if rule.Destination != nil {
			rt.Destination = aws.ToString(rule.Destination.Bucket)
		}
		rr.Rules = append(rr.Rules, rt)
	}
	sr.Replication = rr
	return sr
}

// isAPIErrorCode checks smithy APIError code
func isAPIErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
