package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/gatehouse/gatehouse/internal/models"
)

// DynamoAuditRepository appends audit entries to the shared table,
// partitioned by day so a day's trail reads as one item collection.
type DynamoAuditRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

func NewDynamoAuditRepository(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoAuditRepository {
	return &DynamoAuditRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (r *DynamoAuditRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: "AUDIT#" + entry.CreatedAt.UTC().Format("2006-01-02")}
	item["SK"] = &types.AttributeValueMemberS{Value: entry.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") + "#" + entry.ID}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	}); err != nil {
		r.logger.WithError(err).Error("Failed to record audit entry in DynamoDB")
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}
