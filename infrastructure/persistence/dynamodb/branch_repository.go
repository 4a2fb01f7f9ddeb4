// Package dynamodb stores person branches in a single DynamoDB table.
//
// Table layout:
//
//	PK = PERSON#<id>, SK = BRANCH            one item per person branch
//	GSI1PK = GEN#<n>#SEX#<sex>, GSI1SK = PK  root lookups by generation
//
// The repository implements both the branch fetcher and writer ports, so the
// seeder and the tree service share one adapter.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kujisan/application/ports"
	"kujisan/domain/core/entities"
	"kujisan/domain/core/valueobjects"
	"kujisan/infrastructure/validation"
	pkgerrors "kujisan/pkg/errors"
	"kujisan/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const sourceName = "dynamodb"

// API is the subset of the DynamoDB client the repository uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// BranchRepository reads and writes person branches
type BranchRepository struct {
	client    API
	tableName string
	indexName string
	logger    *zap.Logger
	metrics   *observability.Collector
	now       func() time.Time
}

var (
	_ ports.BranchFetcher = (*BranchRepository)(nil)
	_ ports.BranchWriter  = (*BranchRepository)(nil)
	_ ports.HealthChecker = (*BranchRepository)(nil)
)

// NewBranchRepository creates a repository over tableName; indexName is the
// generation GSI used for root lookups
func NewBranchRepository(client API, tableName, indexName string, logger *zap.Logger, metrics *observability.Collector) *BranchRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger.Named("branch_repository"),
		metrics:   metrics,
		now:       time.Now,
	}
}

// FetchBranch loads one branch; an unknown id yields nil, nil
func (r *BranchRepository) FetchBranch(ctx context.Context, id valueobjects.PersonID) (person *entities.TreePerson, err error) {
	if id.IsPlaceholder() {
		return nil, nil
	}

	start := time.Now()
	defer func() { r.metrics.RecordFetch(sourceName, "branch", time.Since(start), err) }()

	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       personKey(id),
	})
	if err != nil {
		return nil, classify("GetItem", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	person, err = parseItem(out.Item)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("parse branch", err)
	}
	report, err := validation.Sanitize(person)
	if err != nil {
		r.logger.Warn("Ignoring malformed stored branch",
			zap.String("person_id", id.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	if report.Dropped() {
		r.logger.Warn("Dropped malformed entries from stored branch",
			zap.String("person_id", id.String()),
			zap.Int("partners", report.DroppedPartners),
			zap.Int("children", report.DroppedChildren),
		)
	}
	return person, nil
}

// FetchRoot queries the generation index for generation-1 men
func (r *BranchRepository) FetchRoot(ctx context.Context) (roots []*entities.TreePerson, err error) {
	start := time.Now()
	defer func() { r.metrics.RecordFetch(sourceName, "root", time.Since(start), err) }()

	keyCond := expression.Key("GSI1PK").Equal(expression.Value(rootPartition(valueobjects.RootGeneration, valueobjects.SexMale)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("build root query").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var people []*entities.TreePerson
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, classify("Query", err)
		}
		for _, item := range out.Items {
			p, err := parseItem(item)
			if err != nil {
				r.logger.Warn("Failed to parse root item", zap.Error(err))
				continue
			}
			people = append(people, p)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	roots, report := validation.SanitizeAll(people)
	if report.Dropped() {
		r.logger.Warn("Dropped malformed entries from root branches",
			zap.Int("partners", report.DroppedPartners),
			zap.Int("children", report.DroppedChildren),
		)
	}
	return roots, nil
}

// SaveBranch writes or replaces one branch
func (r *BranchRepository) SaveBranch(ctx context.Context, person *entities.TreePerson) error {
	if person == nil {
		return pkgerrors.NewValidationError("branch is required")
	}
	clean := person.Clone()
	if _, err := validation.Sanitize(clean); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}

	item, err := toItem(clean, r.now())
	if err != nil {
		return pkgerrors.NewInternalError("marshal branch").WithCause(err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return classify("PutItem", err)
	}

	r.logger.Debug("Saved branch",
		zap.String("person_id", clean.ID.String()),
		zap.Int("unions", len(clean.Unions)),
	)
	return nil
}

// HealthCheck verifies the table is reachable
func (r *BranchRepository) HealthCheck(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return classify("DescribeTable", err)
	}
	return nil
}

// EnsureTable creates the table and its generation index when missing.
// Used by the seeder against local DynamoDB.
func (r *BranchRepository) EnsureTable(ctx context.Context) (created bool, err error) {
	_, err = r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, classify("DescribeTable", err)
	}

	_, err = r.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(r.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1PK"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("GSI1SK"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(r.indexName),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("GSI1PK"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("GSI1SK"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		return false, classify("CreateTable", err)
	}

	r.logger.Info("Created table", zap.String("table", r.tableName), zap.String("index", r.indexName))
	return true, nil
}

// classify maps SDK errors onto application error types
func classify(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.NewTimeoutError(sourceName + " " + operation).WithCause(err)
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return pkgerrors.NewDatabaseError(operation, err)
	}

	switch ae.ErrorCode() {
	case "ResourceNotFoundException":
		return pkgerrors.NewUnavailableError(sourceName).
			WithCause(err).
			WithDetails(map[string]interface{}{"operation": operation, "reason": ae.ErrorMessage()})
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return pkgerrors.NewRateLimitError(fmt.Sprintf("%s throughput exceeded", sourceName)).WithCause(err)
	case "InternalServerError", "ServiceUnavailable":
		return pkgerrors.NewUnavailableError(sourceName).WithCause(err)
	case "ValidationException":
		return pkgerrors.NewValidationError(ae.ErrorMessage()).WithCause(err)
	default:
		return pkgerrors.NewDatabaseError(operation, err)
	}
}
