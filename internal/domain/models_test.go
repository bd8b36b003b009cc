package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisTypeValid(t *testing.T) {
	assert.True(t, AnalysisTechnical.Valid())
	assert.True(t, AnalysisFundamental.Valid())
	assert.True(t, AnalysisSentiment.Valid())
	assert.True(t, AnalysisRecommendation.Valid())
	assert.False(t, AnalysisType("news").Valid())
	assert.False(t, AnalysisType("").Valid())
}

func TestAnalysisRecordExpired(t *testing.T) {
	now := time.Now()

	rec := AnalysisRecord{ValidUntil: now.Add(time.Hour)}
	assert.False(t, rec.Expired(now))

	rec.ValidUntil = now.Add(-time.Minute)
	assert.True(t, rec.Expired(now))

	// Boundary: valid_until == now counts as expired
	rec.ValidUntil = now
	assert.True(t, rec.Expired(now))
}

func TestTaskStatusTerminal(t *testing.T) {
	assert.False(t, TaskPending.Terminal())
	assert.False(t, TaskRunning.Terminal())
	assert.True(t, TaskCompleted.Terminal())
	assert.True(t, TaskFailed.Terminal())
	assert.True(t, TaskCancelled.Terminal())
}

func TestTechnicalPayloadOptionalFields(t *testing.T) {
	// Payloads with missing fields decode with nil pointers, not zeros
	var p TechnicalPayload
	require.NoError(t, json.Unmarshal([]byte(`{"commentary":"flat session"}`), &p))
	assert.Nil(t, p.RSI)
	assert.Nil(t, p.MACD)
	assert.Nil(t, p.PriceChangePercent)

	var full TechnicalPayload
	raw := `{"commentary":"x","rsi":45.2,"macd":{"macd":0.4,"signal":0.1,"histogram":0.3}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &full))
	require.NotNil(t, full.RSI)
	assert.InDelta(t, 45.2, *full.RSI, 1e-9)
	require.NotNil(t, full.MACD)
	assert.InDelta(t, 0.3, full.MACD.Histogram, 1e-9)
}

func TestSentimentPayloadRoundTrip(t *testing.T) {
	score := 0.6
	p := SentimentPayload{Commentary: "upbeat coverage", Score: &score, NewsVolume: "high"}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var back SentimentPayload
	require.NoError(t, json.Unmarshal(raw, &back))
	require.NotNil(t, back.Score)
	assert.InDelta(t, 0.6, *back.Score, 1e-9)
	assert.Equal(t, "high", back.NewsVolume)
}
