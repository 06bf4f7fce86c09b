package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"covercraft/internal/models"
	"covercraft/internal/storage"
)

const (
	attrUserID     = "user_id"
	attrCoversUsed = "covers_used"
	attrBalance    = "balance"
)

// dynamodbAPI is the minimal DynamoDB interface required by Ledger.
// *dynamodb.Client satisfies it.
type dynamodbAPI interface {
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// Ledger stores one item per user and mutates counters with atomic ADD updates.
type Ledger struct {
	api       dynamodbAPI
	tableName string
}

// New creates a DynamoDB-backed ledger.
func New(api dynamodbAPI, tableName string) (*Ledger, error) {
	if api == nil {
		return nil, errors.New("dynamo: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("dynamo: table name must not be empty")
	}
	return &Ledger{api: api, tableName: tableName}, nil
}

// Initialize is a no-op; the table is provisioned outside the application.
func (l *Ledger) Initialize(ctx context.Context) error {
	return nil
}

// GetAccount reads the user's item, creating zeroed counters when absent.
func (l *Ledger) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	if userID == "" {
		return models.Account{}, storage.ErrInvalidUserID
	}

	out, err := l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.tableName),
		Key:              userKey(userID),
		UpdateExpression: aws.String("SET covers_used = if_not_exists(covers_used, :zero), balance = if_not_exists(balance, :zero)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero": numberAttr(0),
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("dynamo: GetAccount: %w", err)
	}
	if out == nil || len(out.Attributes) == 0 {
		return models.Account{UserID: userID}, nil
	}

	covers, err := int64Attr(out.Attributes, attrCoversUsed)
	if err != nil {
		return models.Account{}, fmt.Errorf("dynamo: GetAccount: %w", err)
	}
	balance, err := int64Attr(out.Attributes, attrBalance)
	if err != nil {
		return models.Account{}, fmt.Errorf("dynamo: GetAccount: %w", err)
	}

	return models.Account{UserID: userID, CoversUsed: covers, Balance: balance}, nil
}

// IncrementCovers atomically adds one to covers_used.
func (l *Ledger) IncrementCovers(ctx context.Context, userID string) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	_, err := l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.tableName),
		Key:              userKey(userID),
		UpdateExpression: aws.String("ADD covers_used :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numberAttr(1),
		},
	})
	if err != nil {
		return fmt.Errorf("dynamo: IncrementCovers: %w", err)
	}
	return nil
}

// AddBalance atomically adds amount to balance. Debits carry a condition so the
// balance never drops below zero.
func (l *Ledger) AddBalance(ctx context.Context, userID string, amount int64) error {
	if userID == "" {
		return storage.ErrInvalidUserID
	}

	in := &dynamodb.UpdateItemInput{
		TableName:        aws.String(l.tableName),
		Key:              userKey(userID),
		UpdateExpression: aws.String("ADD balance :amount"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amount": numberAttr(amount),
		},
	}
	if amount < 0 {
		in.ConditionExpression = aws.String("balance >= :need")
		in.ExpressionAttributeValues[":need"] = numberAttr(-amount)
	}

	if _, err := l.api.UpdateItem(ctx, in); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return storage.ErrInsufficientBalance
		}
		return fmt.Errorf("dynamo: AddBalance: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no connections to release.
func (l *Ledger) Close() error {
	return nil
}

func userKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrUserID: &types.AttributeValueMemberS{Value: userID},
	}
}

func numberAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, nil
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
