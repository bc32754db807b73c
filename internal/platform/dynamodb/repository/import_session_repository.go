package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	commonErrors "github.com/hirosato/finance-ledger/internal/domain/errors"
	"github.com/hirosato/finance-ledger/internal/domain/ledger"
	"github.com/hirosato/finance-ledger/internal/domain/reconcile"
	"github.com/hirosato/finance-ledger/internal/platform/dynamodb/client"
)

const (
	sessionSK    = "IMPORT_SESSION"
	userIndex    = "GSI1"
	ttlAttribute = "ttl"
)

// DynamoDBImportSessionRepository implements the reconcile.SessionRepository interface
type DynamoDBImportSessionRepository struct {
	client client.Client
	table  string
	logger *slog.Logger
}

// NewDynamoDBImportSessionRepository creates a new DynamoDBImportSessionRepository
func NewDynamoDBImportSessionRepository(client client.Client, table string, logger *slog.Logger) *DynamoDBImportSessionRepository {
	return &DynamoDBImportSessionRepository{
		client: client,
		table:  table,
		logger: logger,
	}
}

// ImportSessionDDB is the stored form of a session; amounts are kept as
// decimal strings and expiry doubles as the table's TTL attribute
type ImportSessionDDB struct {
	reconcile.Session
	Records []ImportRecordDDB `dynamodbav:"Records"`
	TTL     int64             `dynamodbav:"ttl,omitempty"`
}

type ImportRecordDDB struct {
	ledger.ImportRecord
	Amount string `dynamodbav:"Amount"`
}

func sessionPK(id string) string {
	return fmt.Sprintf("IMPORT_SESSION#%s", id)
}

func userPK(userID int64) string {
	return fmt.Sprintf("USER#%d", userID)
}

func (r *DynamoDBImportSessionRepository) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: sessionPK(id)},
		"SK": &types.AttributeValueMemberS{Value: sessionSK},
	}
}

// SaveSession writes the session, replacing any previous version
func (r *DynamoDBImportSessionRepository) SaveSession(ctx context.Context, s *reconcile.Session) error {
	stored := ImportSessionDDB{
		Session: *s,
		Records: make([]ImportRecordDDB, len(s.Records)),
	}
	for i, rec := range s.Records {
		stored.Records[i] = ImportRecordDDB{ImportRecord: rec, Amount: rec.Amount.String()}
	}
	if !s.ExpiresAt.IsZero() {
		stored.TTL = s.ExpiresAt.Unix()
	}

	item, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return commonErrors.NewInternalError("failed to marshal import session", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: sessionPK(s.ID)}
	item["SK"] = &types.AttributeValueMemberS{Value: sessionSK}
	item["GSI1PK"] = &types.AttributeValueMemberS{Value: userPK(s.UserID)}
	item["GSI1SK"] = &types.AttributeValueMemberS{Value: sessionPK(s.ID)}
	item["Type"] = &types.AttributeValueMemberS{Value: "import_session"}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to save import session", err)
	}
	r.logger.Debug("import session saved", "sessionId", s.ID, "records", len(s.Records))
	return nil
}

// GetSession loads one session
func (r *DynamoDBImportSessionRepository) GetSession(ctx context.Context, id string) (*reconcile.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to get import session", err)
	}
	if len(out.Item) == 0 {
		return nil, commonErrors.NewNotFoundError(fmt.Sprintf("import session %s not found", id))
	}
	return unmarshalSession(out.Item)
}

// ListSessions queries the user index, newest first
func (r *DynamoDBImportSessionRepository) ListSessions(ctx context.Context, userID int64) ([]reconcile.Session, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(userPK(userID))).
		And(expression.Key("GSI1SK").BeginsWith("IMPORT_SESSION#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, commonErrors.NewInternalError("failed to build session query", err)
	}

	sessions := []reconcile.Session{}
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.table),
			IndexName:                 aws.String(userIndex),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(false),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, commonErrors.NewInternalError("failed to query import sessions", err)
		}
		for _, item := range out.Items {
			s, err := unmarshalSession(item)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, *s)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	slices.SortFunc(sessions, func(a, b reconcile.Session) int { return strings.Compare(b.ID, a.ID) })
	return sessions, nil
}

// DeleteSession removes a session; deleting a missing one is not an error
func (r *DynamoDBImportSessionRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(id),
	})
	if err != nil {
		return commonErrors.NewInternalError("failed to delete import session", err)
	}
	return nil
}

func unmarshalSession(item map[string]types.AttributeValue) (*reconcile.Session, error) {
	var stored ImportSessionDDB
	if err := attributevalue.UnmarshalMap(item, &stored); err != nil {
		return nil, commonErrors.NewInternalError("failed to unmarshal import session", err)
	}
	s := stored.Session
	s.Records = make([]ledger.ImportRecord, len(stored.Records))
	for i, rec := range stored.Records {
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return nil, commonErrors.NewInternalError("invalid amount in import session", err)
		}
		s.Records[i] = rec.ImportRecord
		s.Records[i].Amount = amount
	}
	return &s, nil
}

var _ reconcile.SessionRepository = (*DynamoDBImportSessionRepository)(nil)
