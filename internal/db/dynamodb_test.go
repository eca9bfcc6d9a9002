package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/sentiscope/internal/models"
)

type fakeBatchWriter struct {
	calls []*dynamodb.BatchWriteItemInput
	// number of leading calls that report everything as unprocessed
	unprocessed int
	err         error
}

func (f *fakeBatchWriter) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) <= f.unprocessed {
		return &dynamodb.BatchWriteItemOutput{UnprocessedItems: params.RequestItems}, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func testRecords(n int) []models.AnalysisRecord {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]models.AnalysisRecord, n)
	for i := range records {
		records[i] = models.AnalysisRecord{
			ID:         fmt.Sprintf("id-%d", i),
			Source:     models.SourceBatch,
			Text:       "good",
			Sentiment:  "POSITIVE",
			Confidence: 91.5,
			Model:      "m",
			CreatedAt:  created,
		}
	}
	return records
}

func TestRecordToDynamoDBItem(t *testing.T) {
	item, err := RecordToDynamoDBItem(testRecords(1)[0])

	require.NoError(t, err)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "id-0"}, item["id"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "POSITIVE"}, item["sentiment"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "91.5"}, item["confidence"])
	assert.Contains(t, item, "created_at")

	expires := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expires)}, item["expires_at"])
}

func TestDynamoDBRecorderBatches(t *testing.T) {
	writer := &fakeBatchWriter{}
	recorder := NewDynamoDBRecorder(writer, "Analyses")

	err := recorder.Record(context.Background(), testRecords(30))

	require.NoError(t, err)
	require.Len(t, writer.calls, 2)
	assert.Len(t, writer.calls[0].RequestItems["Analyses"], 25)
	assert.Len(t, writer.calls[1].RequestItems["Analyses"], 5)
}

func TestDynamoDBRecorderRetriesUnprocessed(t *testing.T) {
	writer := &fakeBatchWriter{unprocessed: 2}
	recorder := NewDynamoDBRecorder(writer, "Analyses")
	recorder.backoff = time.Millisecond

	err := recorder.Record(context.Background(), testRecords(3))

	require.NoError(t, err)
	assert.Len(t, writer.calls, 3)
}

func TestDynamoDBRecorderGivesUp(t *testing.T) {
	writer := &fakeBatchWriter{unprocessed: 10}
	recorder := NewDynamoDBRecorder(writer, "Analyses")
	recorder.backoff = time.Millisecond

	err := recorder.Record(context.Background(), testRecords(3))

	assert.ErrorContains(t, err, "3 items not written")
	assert.Len(t, writer.calls, 1+maxRetries)
}

func TestDynamoDBRecorderWriteError(t *testing.T) {
	writer := &fakeBatchWriter{err: errors.New("throttled")}

	err := NewDynamoDBRecorder(writer, "Analyses").Record(context.Background(), testRecords(1))

	assert.ErrorContains(t, err, "throttled")
}

func TestDynamoDBRecorderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	writer := &fakeBatchWriter{}

	err := NewDynamoDBRecorder(writer, "Analyses").Record(ctx, testRecords(1))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, writer.calls)
}
