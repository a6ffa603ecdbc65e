package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/zzenonn/imgateway/internal/domain"
)

var ErrRenditionNotFound = errors.New("rendition not found")

// ItemAPI is the subset of the DynamoDB client the ledger uses.
type ItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// RenditionRepository manages DynamoDB interactions for the rendition ledger.
type RenditionRepository struct {
	client    ItemAPI
	tableName string
}

// NewRenditionRepository initializes a new RenditionRepository.
func NewRenditionRepository(client ItemAPI, tableName string) RenditionRepository {
	return RenditionRepository{
		client:    client,
		tableName: tableName,
	}
}

// RecordRendition stores a completed fill. Refills overwrite the previous record.
func (repo *RenditionRepository) RecordRendition(ctx context.Context, r domain.Rendition) (domain.Rendition, error) {
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("failed to marshal rendition: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(repo.tableName),
		Item:      item,
	}

	if _, err := repo.client.PutItem(ctx, input); err != nil {
		return domain.Rendition{}, fmt.Errorf("failed to record rendition: %w", err)
	}

	return r, nil
}

// GetRendition retrieves the record for one rendition of an original.
func (repo *RenditionRepository) GetRendition(ctx context.Context, sourceKey, renditionKey string) (domain.Rendition, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"source_key":    &types.AttributeValueMemberS{Value: sourceKey},
			"rendition_key": &types.AttributeValueMemberS{Value: renditionKey},
		},
	}

	result, err := repo.client.GetItem(ctx, input)
	if err != nil {
		return domain.Rendition{}, fmt.Errorf("failed to get rendition: %w", err)
	}

	if result.Item == nil {
		return domain.Rendition{}, ErrRenditionNotFound
	}

	var r domain.Rendition
	if err := attributevalue.UnmarshalMap(result.Item, &r); err != nil {
		return domain.Rendition{}, fmt.Errorf("failed to unmarshal rendition: %w", err)
	}

	return r, nil
}

// ListRenditionsBySource retrieves every recorded rendition of an original.
func (repo *RenditionRepository) ListRenditionsBySource(ctx context.Context, sourceKey string) ([]domain.Rendition, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(repo.tableName),
		KeyConditionExpression: aws.String("#source = :source"),
		ExpressionAttributeNames: map[string]string{
			"#source": "source_key",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":source": &types.AttributeValueMemberS{Value: sourceKey},
		},
	}

	var renditions []domain.Rendition
	for {
		result, err := repo.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query renditions by source: %w", err)
		}

		for _, item := range result.Items {
			var r domain.Rendition
			if err := attributevalue.UnmarshalMap(item, &r); err != nil {
				return nil, fmt.Errorf("failed to unmarshal rendition: %w", err)
			}
			renditions = append(renditions, r)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return renditions, nil
}

// DeleteRendition removes a rendition record.
func (repo *RenditionRepository) DeleteRendition(ctx context.Context, sourceKey, renditionKey string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(repo.tableName),
		Key: map[string]types.AttributeValue{
			"source_key":    &types.AttributeValueMemberS{Value: sourceKey},
			"rendition_key": &types.AttributeValueMemberS{Value: renditionKey},
		},
	}

	if _, err := repo.client.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("failed to delete rendition: %w", err)
	}
	return nil
}
