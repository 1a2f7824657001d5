package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

type collectionItem struct {
	Name      string `dynamodbav:"name"`
	Payload   string `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// DynamoBackend keeps one item per collection, keyed by "name".
type DynamoBackend struct {
	client    dynamoAPI
	tableName string
	prefix    string
}

// NewDynamoBackend builds a backend over the provided DynamoDB client.
func NewDynamoBackend(client dynamoAPI, tableName, prefix string) *DynamoBackend {
	if client == nil {
		panic("store: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("store: table name cannot be empty")
	}
	return &DynamoBackend{client: client, tableName: tableName, prefix: prefix}
}

func (b *DynamoBackend) Save(ctx context.Context, collection string, payload []byte) error {
	item, err := attributevalue.MarshalMap(collectionItem{
		Name:      b.prefix + collection,
		Payload:   string(payload),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("store: marshal collection %s: %w", collection, err)
	}
	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(b.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("store: put collection %s: %w", collection, err)
	}
	return nil
}

func (b *DynamoBackend) Load(ctx context.Context, collection string) ([]byte, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(b.tableName),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: b.prefix + collection},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("store: get collection %s: %w", collection, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var item collectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("store: decode collection %s: %w", collection, err)
	}
	return []byte(item.Payload), nil
}
