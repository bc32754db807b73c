package repository

import (
	"log/slog"

	"github.com/hirosato/finance-ledger/internal/platform/dynamodb/client"
)

// Factory creates repository instances
type Factory struct {
	client    client.Client
	tableName string
	logger    *slog.Logger
}

// NewFactory creates a new repository factory
func NewFactory(client client.Client, tableName string, logger *slog.Logger) *Factory {
	return &Factory{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// ImportSessionRepository returns the DynamoDB-backed import session store
func (f *Factory) ImportSessionRepository() *DynamoDBImportSessionRepository {
	return NewDynamoDBImportSessionRepository(f.client, f.tableName, f.logger)
}
