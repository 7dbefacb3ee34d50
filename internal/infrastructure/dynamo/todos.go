package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/taskminder-api/internal/domain"
)

// TodoRepo provides typed DynamoDB operations for the todos table.
type TodoRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTodoRepo(client *dynamodb.Client, tableName string) *TodoRepo {
	return &TodoRepo{client: client, tableName: tableName}
}

func (r *TodoRepo) Put(ctx context.Context, t *domain.Todo) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal todo: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TodoRepo) Get(ctx context.Context, todoID string) (*domain.Todo, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("todo_id", todoID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("todo %s: %w", todoID, domain.ErrNotFound)
	}
	var t domain.Todo
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUsername returns all todos owned by the user via the username GSI.
func (r *TodoRepo) ListByUsername(ctx context.Context, username string) ([]domain.Todo, error) {
	var todos []domain.Todo
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("username-index"),
			KeyConditionExpression: aws.String("username = :u"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":u": &types.AttributeValueMemberS{Value: username},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Todo
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		todos = append(todos, page...)
		if out.LastEvaluatedKey == nil {
			return todos, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

func (r *TodoRepo) Update(ctx context.Context, todoID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("todo_id", todoID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *TodoRepo) Delete(ctx context.Context, todoID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("todo_id", todoID),
	})
	return err
}
