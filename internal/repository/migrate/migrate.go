package migrate

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// TableAPI is the subset of the DynamoDB client migrations use.
type TableAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	dynamodb.DescribeTableAPIClient
}

// Migration is a reversible schema change.
type Migration interface {
	Version() string
	TableName() string
	Up(ctx context.Context, client TableAPI) error
	Down(ctx context.Context, client TableAPI) error
}

// All returns the migrations for tableName in application order.
func All(tableName string) []Migration {
	return []Migration{
		&CreateRenditionLedgerTable{Table: tableName},
	}
}
