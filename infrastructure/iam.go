package main

import (
	"fmt"

	"github.com/pulumi/pulumi-aws/sdk/v5/go/aws/iam"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// IamResources holds all the IAM roles
type IamResources struct {
	PrimaryReplicationRole   *iam.Role
	SecondaryReplicationRole *iam.Role
	LambdaRole               *iam.Role
	// Attachments the Lambda needs before the custom resource can run
	LambdaPolicyAttachments []pulumi.Resource
}

const s3AssumeRolePolicy = `{
	"Version": "2012-10-17",
	"Statement": [{
		"Action": "sts:AssumeRole",
		"Principal": {
			"Service": "s3.amazonaws.com"
		},
		"Effect": "Allow",
		"Sid": ""
	}]
}`

// replicationPolicy lets S3 read versions from source and write replicas to destination
func replicationPolicy(source, destination string) string {
	return fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Action": [
					"s3:GetReplicationConfiguration",
					"s3:ListBucket"
				],
				"Effect": "Allow",
				"Resource": "arn:aws:s3:::%[1]s"
			},
			{
				"Action": [
					"s3:GetObjectVersionForReplication",
					"s3:GetObjectVersionAcl",
					"s3:GetObjectVersionTagging"
				],
				"Effect": "Allow",
				"Resource": "arn:aws:s3:::%[1]s/*"
			},
			{
				"Action": [
					"s3:ReplicateObject",
					"s3:ReplicateDelete",
					"s3:ReplicateTags"
				],
				"Effect": "Allow",
				"Resource": "arn:aws:s3:::%[2]s/*"
			}
		]
	}`, source, destination)
}

func createReplicationRole(ctx *pulumi.Context, name, source, destination string) (*iam.Role, error) {
	role, err := iam.NewRole(ctx, name, &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(s3AssumeRolePolicy),
		Tags: pulumi.StringMap{
			"Name": pulumi.String(name),
		},
	})
	if err != nil {
		return nil, err
	}

	policy, err := iam.NewPolicy(ctx, name+"-policy", &iam.PolicyArgs{
		Description: pulumi.Sprintf("Replication from %s to %s", source, destination),
		Policy:      pulumi.String(replicationPolicy(source, destination)),
	})
	if err != nil {
		return nil, err
	}

	_, err = iam.NewRolePolicyAttachment(ctx, name+"-policy-attachment", &iam.RolePolicyAttachmentArgs{
		Role:      role.Name,
		PolicyArn: policy.Arn,
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// createIamResources creates both replication roles and the deployer Lambda role
func createIamResources(ctx *pulumi.Context, settings *Settings, s3Resources *S3Resources) (*IamResources, error) {
	primaryRole, err := createReplicationRole(ctx, "crr-replication-primary", settings.PrimaryBucket, settings.SecondaryBucket)
	if err != nil {
		return nil, err
	}
	secondaryRole, err := createReplicationRole(ctx, "crr-replication-secondary", settings.SecondaryBucket, settings.PrimaryBucket)
	if err != nil {
		return nil, err
	}

	lambdaRole, err := iam.NewRole(ctx, "crr-deployer-lambda-role", &iam.RoleArgs{
		AssumeRolePolicy: pulumi.String(`{
			"Version": "2012-10-17",
			"Statement": [{
				"Action": "sts:AssumeRole",
				"Principal": {
					"Service": "lambda.amazonaws.com"
				},
				"Effect": "Allow",
				"Sid": ""
			}]
		}`),
		Tags: pulumi.StringMap{
			"Name": pulumi.String("crr-deployer-lambda-role"),
		},
	})
	if err != nil {
		return nil, err
	}

	basicExecution, err := iam.NewRolePolicyAttachment(ctx, "crr-deployer-basic-execution", &iam.RolePolicyAttachmentArgs{
		Role:      lambdaRole.Name,
		PolicyArn: pulumi.String("arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"),
	})
	if err != nil {
		return nil, err
	}

	// PutBucketReplication passes the replication role to S3
	deployerPolicy, err := iam.NewPolicy(ctx, "crr-deployer-policy", &iam.PolicyArgs{
		Description: pulumi.String("Create, configure and remove the replicated secondary bucket"),
		Policy: pulumi.All(s3Resources.PrimaryBucket.Arn, primaryRole.Arn, secondaryRole.Arn).ApplyT(func(args []interface{}) string {
			primaryArn := args[0].(string)
			primaryRoleArn := args[1].(string)
			secondaryRoleArn := args[2].(string)
			secondaryArn := "arn:aws:s3:::" + settings.SecondaryBucket
			return `{
				"Version": "2012-10-17",
				"Statement": [
					{
						"Action": [
							"s3:CreateBucket",
							"s3:DeleteBucket",
							"s3:ListBucket",
							"s3:ListBucketVersions",
							"s3:GetBucketVersioning",
							"s3:PutBucketVersioning",
							"s3:PutEncryptionConfiguration",
							"s3:GetReplicationConfiguration",
							"s3:PutReplicationConfiguration"
						],
						"Effect": "Allow",
						"Resource": [
							"` + primaryArn + `",
							"` + secondaryArn + `"
						]
					},
					{
						"Action": [
							"s3:DeleteObject",
							"s3:DeleteObjectVersion"
						],
						"Effect": "Allow",
						"Resource": "` + secondaryArn + `/*"
					},
					{
						"Action": [
							"iam:PassRole"
						],
						"Effect": "Allow",
						"Resource": [
							"` + primaryRoleArn + `",
							"` + secondaryRoleArn + `"
						]
					}
				]
			}`
		}).(pulumi.StringOutput),
	})
	if err != nil {
		return nil, err
	}

	deployerAttachment, err := iam.NewRolePolicyAttachment(ctx, "crr-deployer-policy-attachment", &iam.RolePolicyAttachmentArgs{
		Role:      lambdaRole.Name,
		PolicyArn: deployerPolicy.Arn,
	})
	if err != nil {
		return nil, err
	}

	return &IamResources{
		PrimaryReplicationRole:   primaryRole,
		SecondaryReplicationRole: secondaryRole,
		LambdaRole:               lambdaRole,
		LambdaPolicyAttachments:  []pulumi.Resource{basicExecution, deployerAttachment},
	}, nil
}
