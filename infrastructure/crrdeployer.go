package main

import (
	"encoding/json"

	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/cloudformation"
	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/lambda"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const customResourceType = "Custom::BidirectionalCRR"

// DeployerResources holds the custom resource Lambda and the stack that drives it
type DeployerResources struct {
	DeployerLambda *lambda.Function
	Stack          *cloudformation.Stack
}

// customResourceTemplate renders a template with one custom resource bound to serviceToken
func customResourceTemplate(serviceToken, secondaryBucket string) (string, error) {
	template := map[string]interface{}{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              "Bidirectional cross-region replication for " + secondaryBucket,
		"Resources": map[string]interface{}{
			"BidirectionalCRR": map[string]interface{}{
				"Type": customResourceType,
				"Properties": map[string]interface{}{
					"ServiceToken":    serviceToken,
					"SecondaryBucket": secondaryBucket,
				},
			},
		},
	}
	b, err := json.Marshal(template)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// createDeployerResources creates the crrdeployer Lambda and a CloudFormation stack
// whose only resource is the custom resource it serves
func createDeployerResources(ctx *pulumi.Context, settings *Settings, s3Resources *S3Resources, iamResources *IamResources) (*DeployerResources, error) {
	deployerLambda, err := lambda.NewFunction(ctx, "crr-deployer", &lambda.FunctionArgs{
		Runtime:     pulumi.String("provided.al2023"),
		Code:        pulumi.NewFileArchive("../build/crrdeployer.zip"),
		Handler:     pulumi.String("bootstrap"),
		Role:        iamResources.LambdaRole.Arn,
		MemorySize:  pulumi.Int(settings.DeployerMemory),
		Timeout:     pulumi.Int(settings.DeployerTimeout),
		Description: pulumi.String("Bidirectional S3 cross-region replication custom resource"),
		Architectures: pulumi.StringArray{
			pulumi.String("arm64"),
		},
		Environment: &lambda.FunctionEnvironmentArgs{
			Variables: pulumi.StringMap{
				"S3_BUCKET_1": s3Resources.PrimaryBucket.ID().ToStringOutput(),
				"ROLE_ARN_1":  iamResources.PrimaryReplicationRole.Arn,
				"REGION_1":    pulumi.String(settings.PrimaryRegion),
				"S3_BUCKET_2": pulumi.String(settings.SecondaryBucket),
				"ROLE_ARN_2":  iamResources.SecondaryReplicationRole.Arn,
				"REGION_2":    pulumi.String(settings.SecondaryRegion),
				"LOG_LEVEL":   pulumi.String(settings.LogLevel),
			},
		},
		Tags: pulumi.StringMap{
			"Name": pulumi.String("crr-deployer"),
		},
	}, pulumi.DependsOn(iamResources.LambdaPolicyAttachments))
	if err != nil {
		return nil, err
	}

	templateBody := deployerLambda.Arn.ApplyT(func(arn string) (string, error) {
		return customResourceTemplate(arn, settings.SecondaryBucket)
	}).(pulumi.StringOutput)

	// Destroying this stack sends Delete, which empties and removes the secondary bucket
	stack, err := cloudformation.NewStack(ctx, "crr-stack", &cloudformation.StackArgs{
		Name:             pulumi.String(projectName),
		TemplateBody:     templateBody,
		TimeoutInMinutes: pulumi.Int(settings.DeployerTimeout/60 + 5),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(projectName),
		},
	}, pulumi.DependsOn([]pulumi.Resource{deployerLambda}))
	if err != nil {
		return nil, err
	}

	return &DeployerResources{
		DeployerLambda: deployerLambda,
		Stack:          stack,
	}, nil
}
