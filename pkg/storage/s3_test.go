package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketQRKey(t *testing.T) {
	assert.Equal(t, "tickets/evt-1/tkt-9.png", TicketQRKey("evt-1", "tkt-9"))
}

func TestNewS3_RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{Region: "us-east-1"}, nil)
	assert.Error(t, err)
}

func TestPresignedDownloadURL(t *testing.T) {
	s, err := NewS3(context.Background(), S3Config{
		Region:               "us-east-1",
		AccessKeyID:          "AKIDEXAMPLE",
		SecretAccessKey:      "secret",
		Bucket:               "campusbuzz-tickets",
		PresignExpireMinutes: 5,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.PresignExpire())

	url, err := s.PresignedDownloadURL(context.Background(), TicketQRKey("e", "t"))
	require.NoError(t, err)
	assert.Contains(t, url, "campusbuzz-tickets")
	assert.Contains(t, url, "tickets/e/t.png")
	assert.Contains(t, url, "X-Amz-Signature=")
}
