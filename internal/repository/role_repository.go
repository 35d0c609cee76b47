package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/apperr"
	"github.com/gatehouse/gatehouse/internal/models"
)

const roleGuardPrefix = "UNIQ#ROLE#"

// DynamoRoleRepository stores roles in the shared single table with a name
// guard item per live role, same transaction shape as the user repository.
type DynamoRoleRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoRoleRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoRoleRepository {
	return &DynamoRoleRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *DynamoRoleRepository) Create(ctx context.Context, role *models.Role) error {
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now

	item, err := attributevalue.MarshalMap(role)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: role.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: role.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: r.guardPut(roleGuardPrefix+role.Name, role.ID)},
		},
	})
	if err != nil {
		if mapped := mapCancellation(err, map[int]error{1: apperr.ErrRoleNameTaken}); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to create role in DynamoDB")
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *DynamoRoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "ROLE#" + id},
			"SK": &types.AttributeValueMemberS{Value: guardSK},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get role from DynamoDB")
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	if result.Item == nil {
		return nil, apperr.ErrNotFound
	}

	var role models.Role
	if err := attributevalue.UnmarshalMap(result.Item, &role); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal role from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal role: %w", err)
	}
	return &role, nil
}

func (r *DynamoRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: roleGuardPrefix + name},
			"SK": &types.AttributeValueMemberS{Value: guardSK},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get role guard from DynamoDB")
		return nil, fmt.Errorf("failed to get role guard: %w", err)
	}
	if result.Item == nil {
		return nil, apperr.ErrNotFound
	}
	owner, ok := result.Item["owner_id"].(*types.AttributeValueMemberS)
	if !ok {
		return nil, apperr.ErrNotFound
	}
	role, err := r.GetByID(ctx, owner.Value)
	if err != nil {
		return nil, err
	}
	if role.Deleted() {
		return nil, apperr.ErrNotFound
	}
	return role, nil
}

func (r *DynamoRoleRepository) Update(ctx context.Context, role *models.Role) error {
	current, err := r.GetByID(ctx, role.ID)
	if err != nil {
		return err
	}
	role.CreatedAt = current.CreatedAt
	role.UpdatedAt = time.Now()

	item, err := attributevalue.MarshalMap(role)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: role.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: role.GetSK()}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_exists(PK)"),
		}},
	}
	failures := map[int]error{}
	if !current.Deleted() && role.Name != current.Name {
		items = append(items, types.TransactWriteItem{Delete: r.guardDelete(roleGuardPrefix + current.Name)})
		items = append(items, types.TransactWriteItem{Put: r.guardPut(roleGuardPrefix+role.Name, role.ID)})
		failures[len(items)-1] = apperr.ErrRoleNameTaken
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if mapped := mapCancellation(err, failures); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to update role in DynamoDB")
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

func (r *DynamoRoleRepository) List(ctx context.Context, page, perPage int) ([]models.Role, int, error) {
	items, err := scanPrefix(ctx, r.client, r.tableName, "ROLE#", r.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}

	roles := make([]models.Role, 0, len(items))
	for _, item := range items {
		var role models.Role
		if err := attributevalue.UnmarshalMap(item, &role); err != nil {
			r.logger.WithError(err).Error("Failed to unmarshal role from DynamoDB")
			continue
		}
		if role.Deleted() {
			continue
		}
		roles = append(roles, role)
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].CreatedAt.Equal(roles[j].CreatedAt) {
			return roles[i].ID < roles[j].ID
		}
		return roles[i].CreatedAt.Before(roles[j].CreatedAt)
	})

	total := len(roles)
	return pageSlice(roles, page, perPage), total, nil
}

func (r *DynamoRoleRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Deleted() {
		return nil
	}
	current.DeletedAt = &at
	current.UpdatedAt = at

	item, err := attributevalue.MarshalMap(current)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: current.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: current.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item}},
			{Delete: r.guardDelete(roleGuardPrefix + current.Name)},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to soft delete role in DynamoDB")
		return fmt.Errorf("failed to soft delete role: %w", err)
	}
	return nil
}

func (r *DynamoRoleRepository) Restore(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.Deleted() {
		return nil
	}
	current.DeletedAt = nil
	current.UpdatedAt = time.Now()

	item, err := attributevalue.MarshalMap(current)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: current.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: current.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item}},
			{Put: r.guardPut(roleGuardPrefix+current.Name, current.ID)},
		},
	})
	if err != nil {
		if mapped := mapCancellation(err, map[int]error{1: apperr.ErrRoleNameTaken}); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to restore role in DynamoDB")
		return fmt.Errorf("failed to restore role: %w", err)
	}
	return nil
}

func (r *DynamoRoleRepository) HardDelete(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	items := []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: current.GetPK()},
				"SK": &types.AttributeValueMemberS{Value: current.GetSK()},
			},
		}},
	}
	if !current.Deleted() {
		items = append(items, types.TransactWriteItem{Delete: r.guardDelete(roleGuardPrefix + current.Name)})
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		r.logger.WithError(err).Error("Failed to delete role in DynamoDB")
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

func (r *DynamoRoleRepository) guardPut(pk, ownerID string) *types.Put {
	return &types.Put{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"PK":       &types.AttributeValueMemberS{Value: pk},
			"SK":       &types.AttributeValueMemberS{Value: guardSK},
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}
}

func (r *DynamoRoleRepository) guardDelete(pk string) *types.Delete {
	return &types.Delete{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: guardSK},
		},
	}
}
