package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-identity-api/internal/domain"
)

// TokenRepo manages the auth_tokens table: one API token row per user,
// PK user_id.
type TokenRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTokenRepo(client *dynamodb.Client, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName}
}

// GetOrCreate returns the user's token row, minting it when absent.
// The conditional put plus re-read makes concurrent callers converge on a
// single row: whoever loses the write race reads the winner's token.
func (r *TokenRepo) GetOrCreate(ctx context.Context, userID, freshToken string) (*domain.AuthToken, error) {
	if t, err := r.get(ctx, userID); err == nil {
		return t, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	t := &domain.AuthToken{
		UserID:    userID,
		Token:     freshToken,
		CreatedAt: time.Now().UTC(),
	}
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return nil, fmt.Errorf("marshal auth token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(user_id)"),
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return r.get(ctx, userID)
		}
		return nil, fmt.Errorf("put auth token: %w", domain.ErrStoreUnavailable)
	}
	return t, nil
}

func (r *TokenRepo) get(ctx context.Context, userID string) (*domain.AuthToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, fmt.Errorf("get auth token: %w", domain.ErrStoreUnavailable)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("auth token for %s: %w", userID, domain.ErrNotFound)
	}
	var t domain.AuthToken
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
