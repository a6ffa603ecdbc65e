package db

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/repository/migrate"
)

type DynamoDb struct {
	Client    *dynamodb.Client
	TableName string
}

func NewDatabase(awsConfig aws.Config, tableName string) (*DynamoDb, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamodb table name is empty")
	}

	client := dynamodb.NewFromConfig(awsConfig)
	if client == nil {
		return nil, fmt.Errorf("failed to create DynamoDB client")
	}

	return &DynamoDb{
		Client:    client,
		TableName: tableName,
	}, nil
}

// MigrateDb applies every migration in order.
func (d *DynamoDb) MigrateDb(ctx context.Context) error {
	return Up(ctx, d.Client, migrate.All(d.TableName))
}

// MigrateDown reverts every migration in reverse order.
func (d *DynamoDb) MigrateDown(ctx context.Context) error {
	return Down(ctx, d.Client, migrate.All(d.TableName))
}

func Up(ctx context.Context, client migrate.TableAPI, migrations []migrate.Migration) error {
	for _, m := range migrations {
		log.Infof("Applying migration %s on %s", m.Version(), m.TableName())
		if err := m.Up(ctx, client); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.Version(), err)
		}
	}
	return nil
}

func Down(ctx context.Context, client migrate.TableAPI, migrations []migrate.Migration) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		log.Infof("Reverting migration %s on %s", m.Version(), m.TableName())
		if err := m.Down(ctx, client); err != nil {
			return fmt.Errorf("rollback of %s failed: %w", m.Version(), err)
		}
	}
	return nil
}
