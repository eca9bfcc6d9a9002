package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/sentiscope/internal/models"
)

const (
	// BatchWriteItem accepts at most 25 requests.
	maxBatchSize = 25
	maxRetries   = 3
	recordTTL    = 30 * 24 * time.Hour
)

type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDBRecorder stores analysis records in a DynamoDB table keyed by id.
type DynamoDBRecorder struct {
	client  BatchWriter
	table   string
	backoff time.Duration
}

func NewDynamoDBRecorder(client BatchWriter, table string) *DynamoDBRecorder {
	return &DynamoDBRecorder{client: client, table: table, backoff: 500 * time.Millisecond}
}

func (r *DynamoDBRecorder) Record(ctx context.Context, records []models.AnalysisRecord) error {
	for i := 0; i < len(records); i += maxBatchSize {
		select {
		case <-ctx.Done():
			slog.Warn("[DynamoDB] context canceled")
			return ctx.Err()
		default:
		}

		end := min(i+maxBatchSize, len(records))

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for _, record := range records[i:end] {
			item, err := RecordToDynamoDBItem(record)
			if err != nil {
				return err
			}
			writeRequests = append(writeRequests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := r.writeBatch(ctx, writeRequests); err != nil {
			return err
		}
	}

	slog.Debug("[DynamoDB] Stored analysis records", slog.Int("count", len(records)))
	return nil
}

func (r *DynamoDBRecorder) writeBatch(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			r.table: writeRequests,
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write analysis records: %w", err)
	}

	retryCount := 0
	backoff := r.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < maxRetries {
		time.Sleep(backoff)
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed items...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[r.table])))

		out, err = r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[r.table]); remaining > 0 {
		return fmt.Errorf("[DynamoDB] %d items not written after retries", remaining)
	}
	return nil
}

// RecordToDynamoDBItem marshals a record and adds the expires_at TTL
// attribute derived from its creation time.
func RecordToDynamoDBItem(record models.AnalysisRecord) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("[DynamoDB] Failed to marshal record %s: %w", record.ID, err)
	}
	item["expires_at"] = &types.AttributeValueMemberN{
		Value: fmt.Sprintf("%d", record.CreatedAt.Add(recordTTL).Unix()),
	}
	return item, nil
}
