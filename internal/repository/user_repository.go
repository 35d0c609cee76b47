package repository

import (
	"context"
	"errors"
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

const (
	emailGuardPrefix = "UNIQ#EMAIL#"
	phoneGuardPrefix = "UNIQ#PHONE#"
	guardSK          = "METADATA"
)

// DynamoUserRepository stores users in the shared single table. Each live
// user owns two guard items reserving its email and phone; guards travel
// with the user in one TransactWriteItems call so a registration either
// lands completely or not at all.
type DynamoUserRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoUserRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoUserRepository {
	return &DynamoUserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *DynamoUserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: user.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: user.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(PK)"),
			}},
			{Put: r.guardPut(emailGuardPrefix+user.Email, user.ID)},
			{Put: r.guardPut(phoneGuardPrefix+user.Phone, user.ID)},
		},
	})
	if err != nil {
		// Item order above: 0 user, 1 email guard, 2 phone guard.
		if mapped := mapCancellation(err, map[int]error{
			1: apperr.ErrEmailTaken,
			2: apperr.ErrPhoneTaken,
		}); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to create user in DynamoDB")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "USER#" + id},
		"SK": &types.AttributeValueMemberS{Value: guardSK},
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get user from DynamoDB")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, apperr.ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		r.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (r *DynamoUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ownerID, err := r.guardOwner(ctx, emailGuardPrefix+email)
	if err != nil {
		return nil, err
	}
	user, err := r.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if user.Deleted() {
		return nil, apperr.ErrNotFound
	}
	return user, nil
}

func (r *DynamoUserRepository) Update(ctx context.Context, user *models.User) error {
	current, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return err
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now()

	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: user.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: user.GetSK()}

	items := []types.TransactWriteItem{
		{Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                item,
			ConditionExpression: aws.String("attribute_exists(PK)"),
		}},
	}

	// Reservations move only while the user is live; a soft-deleted user
	// holds none to move.
	failures := map[int]error{}
	if !current.Deleted() {
		if user.Email != current.Email {
			items = append(items, types.TransactWriteItem{Delete: r.guardDelete(emailGuardPrefix + current.Email)})
			items = append(items, types.TransactWriteItem{Put: r.guardPut(emailGuardPrefix+user.Email, user.ID)})
			failures[len(items)-1] = apperr.ErrEmailTaken
		}
		if user.Phone != current.Phone {
			items = append(items, types.TransactWriteItem{Delete: r.guardDelete(phoneGuardPrefix + current.Phone)})
			items = append(items, types.TransactWriteItem{Put: r.guardPut(phoneGuardPrefix+user.Phone, user.ID)})
			failures[len(items)-1] = apperr.ErrPhoneTaken
		}
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if mapped := mapCancellation(err, failures); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to update user in DynamoDB")
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) List(ctx context.Context, page, perPage int) ([]models.User, int, error) {
	items, err := scanPrefix(ctx, r.client, r.tableName, "USER#", r.logger)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]models.User, 0, len(items))
	for _, item := range items {
		var user models.User
		if err := attributevalue.UnmarshalMap(item, &user); err != nil {
			r.logger.WithError(err).Error("Failed to unmarshal user from DynamoDB")
			continue
		}
		if user.Deleted() {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	total := len(users)
	return pageSlice(users, page, perPage), total, nil
}

func (r *DynamoUserRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
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
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: current.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: current.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item}},
			{Delete: r.guardDelete(emailGuardPrefix + current.Email)},
			{Delete: r.guardDelete(phoneGuardPrefix + current.Phone)},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to soft delete user in DynamoDB")
		return fmt.Errorf("failed to soft delete user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) Restore(ctx context.Context, id string) error {
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
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: current.GetPK()}
	item["SK"] = &types.AttributeValueMemberS{Value: current.GetSK()}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{TableName: aws.String(r.tableName), Item: item}},
			{Put: r.guardPut(emailGuardPrefix+current.Email, current.ID)},
			{Put: r.guardPut(phoneGuardPrefix+current.Phone, current.ID)},
		},
	})
	if err != nil {
		if mapped := mapCancellation(err, map[int]error{
			1: apperr.ErrEmailTaken,
			2: apperr.ErrPhoneTaken,
		}); mapped != nil {
			return mapped
		}
		r.logger.WithError(err).Error("Failed to restore user in DynamoDB")
		return fmt.Errorf("failed to restore user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) HardDelete(ctx context.Context, id string) error {
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
	// Guards exist only while the user is live.
	if !current.Deleted() {
		items = append(items,
			types.TransactWriteItem{Delete: r.guardDelete(emailGuardPrefix + current.Email)},
			types.TransactWriteItem{Delete: r.guardDelete(phoneGuardPrefix + current.Phone)},
		)
	}

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		r.logger.WithError(err).Error("Failed to delete user in DynamoDB")
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *DynamoUserRepository) guardPut(pk, ownerID string) *types.Put {
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

func (r *DynamoUserRepository) guardDelete(pk string) *types.Delete {
	return &types.Delete{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: guardSK},
		},
	}
}

func (r *DynamoUserRepository) guardOwner(ctx context.Context, pk string) (string, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: guardSK},
		},
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get uniqueness guard from DynamoDB")
		return "", fmt.Errorf("failed to get guard item: %w", err)
	}
	if result.Item == nil {
		return "", apperr.ErrNotFound
	}
	owner, ok := result.Item["owner_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", apperr.ErrNotFound
	}
	return owner.Value, nil
}

// mapCancellation translates a TransactWriteItems cancellation into the
// domain error registered for the transact item whose condition failed.
func mapCancellation(err error, failures map[int]error) error {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return nil
	}
	for i, reason := range canceled.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		if mapped, ok := failures[i]; ok {
			return mapped
		}
	}
	return nil
}

// scanPrefix collects every item whose PK starts with the given prefix.
// Fine for admin listings at this scale; a GSI would replace it if the
// table grew past casual Scan territory.
func scanPrefix(ctx context.Context, client *dynamodb.Client, tableName, prefix string, logger *logrus.Logger) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue

	for {
		out, err := client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(tableName),
			FilterExpression: aws.String("begins_with(PK, :prefix) AND SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: prefix},
				":sk":     &types.AttributeValueMemberS{Value: guardSK},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			logger.WithError(err).Error("Failed to scan DynamoDB table")
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return items, nil
}

func pageSlice[T any](all []T, page, perPage int) []T {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start >= len(all) {
		return []T{}
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
