package migrate

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	RenditionLedgerTableName = "rendition_ledger"
	RenditionLedgerVersion   = "20250801000000_rendition_ledger_table"
)

// CreateRenditionLedgerTable creates the table completed fills are recorded in.
type CreateRenditionLedgerTable struct {
	Table string
	// Wait bounds how long Up waits for the table to become active. Zero means five minutes.
	Wait time.Duration
}

func (m *CreateRenditionLedgerTable) Version() string {
	return RenditionLedgerVersion
}

func (m *CreateRenditionLedgerTable) TableName() string {
	if m.Table == "" {
		return RenditionLedgerTableName
	}
	return m.Table
}

func (m *CreateRenditionLedgerTable) Up(ctx context.Context, client TableAPI) error {
	input := &dynamodb.CreateTableInput{
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("source_key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("rendition_key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("source_key"),
				KeyType:       types.KeyTypeHash, // Partition Key
			},
			{
				AttributeName: aws.String("rendition_key"),
				KeyType:       types.KeyTypeRange, // Sort Key
			},
		},
		TableName:   aws.String(m.TableName()),
		BillingMode: types.BillingModePayPerRequest,
		Tags: []types.Tag{
			{
				Key:   aws.String("Purpose"),
				Value: aws.String("ImageGatewayRenditions"),
			},
		},
	}

	if _, err := client.CreateTable(ctx, input); err != nil {
		return err
	}

	wait := m.Wait
	if wait == 0 {
		wait = 5 * time.Minute
	}
	waiter := dynamodb.NewTableExistsWaiter(client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(m.TableName()),
	}, wait)
}

func (m *CreateRenditionLedgerTable) Down(ctx context.Context, client TableAPI) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(m.TableName()),
	})
	return err
}
