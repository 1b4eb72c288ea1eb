package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/config"
)

type fakeInspector struct {
	versioning     types.BucketVersioningStatus
	replication    *types.ReplicationConfiguration
	versioningErr  error
	replicationErr error
}

func (f fakeInspector) GetBucketVersioning(context.Context, *s3.GetBucketVersioningInput, ...func(*s3.Options)) (*s3.GetBucketVersioningOutput, error) {
	if f.versioningErr != nil {
		return nil, f.versioningErr
	}
	return &s3.GetBucketVersioningOutput{Status: f.versioning}, nil
}

func (f fakeInspector) GetBucketReplication(context.Context, *s3.GetBucketReplicationInput, ...func(*s3.Options)) (*s3.GetBucketReplicationOutput, error) {
	if f.replicationErr != nil {
		return nil, f.replicationErr
	}
	return &s3.GetBucketReplicationOutput{ReplicationConfiguration: f.replication}, nil
}

func replicationTo(role, bucket string) *types.ReplicationConfiguration {
	return &types.ReplicationConfiguration{
		Role: aws.String(role),
		Rules: []types.ReplicationRule{{
			ID:          aws.String("test"),
			Prefix:      aws.String(""),
			Status:      types.ReplicationRuleStatusEnabled,
			Destination: &types.Destination{Bucket: aws.String("arn:aws:s3:::" + bucket)},
		}},
	}
}

func TestDescribe(t *testing.T) {
	cfg := config.Config{
		Primary:   config.Site{Bucket: "crr-primary", RoleARN: "role-1", Region: "us-east-1"},
		Secondary: config.Site{Bucket: "crr-secondary", RoleARN: "role-2", Region: "us-west-2"},
	}
	primary := fakeInspector{
		versioning:  types.BucketVersioningStatusEnabled,
		replication: replicationTo("role-1", "crr-secondary"),
	}
	secondary := fakeInspector{
		versioning:     types.BucketVersioningStatusEnabled,
		replicationErr: &smithy.GenericAPIError{Code: "ReplicationConfigurationNotFoundError"},
	}

	var buf bytes.Buffer
	require.NoError(t, describe(context.Background(), &buf, cfg, primary, secondary))

	var got report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "crr-primary", got.Primary.Site.Bucket)
	assert.Equal(t, "Enabled", got.Primary.Versioning)
	require.NotNil(t, got.Primary.Replication)
	assert.Equal(t, "role-1", got.Primary.Replication.Role)
	assert.Equal(t, []ruleReport{{ID: "test", Status: "Enabled", Prefix: "", Destination: "arn:aws:s3:::crr-secondary"}}, got.Primary.Replication.Rules)

	assert.Equal(t, "us-west-2", got.Secondary.Site.Region)
	assert.Nil(t, got.Secondary.Replication)
	assert.Empty(t, got.Secondary.Error)
}

func TestInspectErrors(t *testing.T) {
	site := config.Site{Bucket: "crr-secondary"}

	t.Run("missing bucket", func(t *testing.T) {
		sr := inspect(context.Background(), fakeInspector{versioningErr: &types.NoSuchBucket{}}, site)
		assert.Contains(t, sr.Error, "NoSuchBucket")
		assert.Empty(t, sr.Versioning)
	})

	t.Run("unversioned", func(t *testing.T) {
		sr := inspect(context.Background(), fakeInspector{replicationErr: &smithy.GenericAPIError{Code: "ReplicationConfigurationNotFoundError"}}, site)
		assert.Equal(t, "Unversioned", sr.Versioning)
		assert.Empty(t, sr.Error)
	})

	t.Run("replication lookup denied", func(t *testing.T) {
		sr := inspect(context.Background(), fakeInspector{
			versioning:     types.BucketVersioningStatusSuspended,
			replicationErr: errors.New("AccessDenied"),
		}, site)
		assert.Equal(t, "Suspended", sr.Versioning)
		assert.Equal(t, "AccessDenied", sr.Error)
	})
}

func TestIsAPIErrorCode(t *testing.T) {
	assert.True(t, isAPIErrorCode(&smithy.GenericAPIError{Code: "NoSuchBucket"}, "NoSuchBucket"))
	assert.False(t, isAPIErrorCode(&smithy.GenericAPIError{Code: "AccessDenied"}, "NoSuchBucket"))
	assert.False(t, isAPIErrorCode(errors.New("NoSuchBucket"), "NoSuchBucket"))
}
