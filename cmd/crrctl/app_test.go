package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CYarros10/aws-bidirectional-crossregion-replication/internal/config"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, env := range envOrder {
		t.Setenv(env, "")
	}
}

func TestEveryConfigVariableHasAFlag(t *testing.T) {
	assert.Len(t, envOrder, len(envFlags))
	for _, env := range envOrder {
		assert.NotEmpty(t, envFlags[env], env)
		assert.NotEmpty(t, envUsage[env], env)
	}
}

func TestInvokeRequiresConfig(t *testing.T) {
	clearConfigEnv(t)
	path := writeEvent(t, `{"RequestType":"Create"}`)

	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"crrctl", "--bucket-1", "crr-primary", "invoke", "--event", path})
	require.Error(t, err)
	for _, env := range []string{config.EnvRoleARN1, config.EnvRegion1, config.EnvBucket2, config.EnvRoleARN2, config.EnvRegion2} {
		assert.Contains(t, err.Error(), env)
	}
	assert.NotContains(t, err.Error(), config.EnvBucket1)
}

func TestInvokeConfigFromEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv(config.EnvBucket1, "crr-primary")
	t.Setenv(config.EnvRoleARN1, "arn:aws:iam::111122223333:role/crr-1")
	t.Setenv(config.EnvRegion1, "us-east-1")
	t.Setenv(config.EnvBucket2, "crr-secondary")
	t.Setenv(config.EnvRoleARN2, "arn:aws:iam::111122223333:role/crr-2")
	t.Setenv(config.EnvRegion2, "us-west-2")
	path := writeEvent(t, `{"RequestType":"Rollback"}`)

	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"crrctl", "invoke", "--event", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `got "Rollback"`)
}

func TestDescribeDoesNotRequireRoles(t *testing.T) {
	clearConfigEnv(t)

	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"crrctl", "--bucket-1", "crr-primary", "--region-1", "us-east-1", "--bucket-2", "crr-secondary", "describe"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvRegion2)
	assert.NotContains(t, err.Error(), config.EnvRoleARN1)
	assert.NotContains(t, err.Error(), config.EnvRoleARN2)
}
