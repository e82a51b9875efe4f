package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobState_IsTerminal(t *testing.T) {
	assert.True(t, JobStateCompleted.IsTerminal())
	assert.True(t, JobStateFailed.IsTerminal())
	assert.False(t, JobStateCreated.IsTerminal())
	assert.False(t, JobStateRetry.IsTerminal())
	assert.False(t, JobStateActive.IsTerminal())
}

func TestJobPayload_QueueNames(t *testing.T) {
	assert.Equal(t, "send-email-confirmation", EmailConfirmationJob{}.QueueName())
	assert.Equal(t, "purge-email-confirmations", PurgeConfirmationsJob{}.QueueName())
}

func TestEmailConfirmationJob_WireShape(t *testing.T) {
	id := uuid.MustParse("0a6b8f5e-6d1a-4c8e-9a71-1f0c4f1b2c3d")
	raw, err := json.Marshal(EmailConfirmationJob{UserID: id, Email: "alice@x.io", Username: "alice", Code: "123456"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"0a6b8f5e-6d1a-4c8e-9a71-1f0c4f1b2c3d","email":"alice@x.io","username":"alice","code":"123456"}`, string(raw))

	job := &Job{Name: QueueSendEmailConfirmation, Data: raw}
	var decoded EmailConfirmationJob
	require.NoError(t, job.Decode(&decoded))
	assert.Equal(t, id, decoded.UserID)
	assert.Equal(t, "123456", decoded.Code)
}

func TestJob_DecodeInvalid(t *testing.T) {
	job := &Job{Name: QueueSendEmailConfirmation, Data: json.RawMessage(`{not json`)}
	var decoded EmailConfirmationJob
	assert.Error(t, job.Decode(&decoded))
}

func TestEmailConfirmation_IsExpired(t *testing.T) {
	now := time.Now()
	c := &EmailConfirmation{ExpiresAt: now.Add(-time.Second)}
	assert.True(t, c.IsExpired(now))

	c.ExpiresAt = now.Add(time.Minute)
	assert.False(t, c.IsExpired(now))
}
