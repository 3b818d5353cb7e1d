package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/soilwatch/internal/model/entities"
	"github.com/LeonardoBeccarini/soilwatch/internal/services/classifier"
)

func TestClassifyHighRiskScenario(t *testing.T) {
	res := classifier.NewThresholdClassifier().Classify(classifier.Channels{Moisture: 65, Temperature: 32, UV: 0.75})

	require.Equal(t, 75.0, res.Percentage)
	require.Equal(t, entities.RiskHigh, res.Category)
	require.Equal(t, classifier.DefaultConfidence, res.Confidence)
}

func TestClassifyLowRiskScenario(t *testing.T) {
	res := classifier.NewThresholdClassifier().Classify(classifier.Channels{Moisture: 30, Temperature: 18, UV: 0.2})

	require.Equal(t, 25.0, res.Percentage)
	require.Equal(t, entities.RiskLow, res.Category)
}

func TestClassifyLadderBoundaries(t *testing.T) {
	cases := []struct {
		name string
		ch   classifier.Channels
		want float64
	}{
		{"all at lower edges", classifier.Channels{Moisture: 40, Temperature: 20, UV: 0.4}, 25},
		{"just above middle edges", classifier.Channels{Moisture: 40.01, Temperature: 20.01, UV: 0.41}, 50},
		{"upper edges are exclusive", classifier.Channels{Moisture: 60, Temperature: 30, UV: 0.7}, 50},
		{"all high", classifier.Channels{Moisture: 99, Temperature: 45, UV: 3.3}, 75},
		{"negative inputs", classifier.Channels{Moisture: -5, Temperature: -10, UV: -1}, 25},
	}
	c := classifier.NewThresholdClassifier()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.ch).Percentage)
		})
	}
}

func TestClassifyPercentageAlwaysInRange(t *testing.T) {
	c := classifier.NewThresholdClassifier()
	values := []float64{-1e9, -1, 0, 0.4, 0.7, 20, 30, 40, 60, 100, 1e9}
	for _, m := range values {
		for _, tp := range values {
			for _, uv := range values {
				res := c.Classify(classifier.Channels{Moisture: m, Temperature: tp, UV: uv})
				require.GreaterOrEqual(t, res.Percentage, 0.0)
				require.LessOrEqual(t, res.Percentage, 100.0)
				require.Equal(t, classifier.CategoryFor(res.Percentage), res.Category)
			}
		}
	}
}

func TestCategoryForBoundaries(t *testing.T) {
	assert.Equal(t, entities.RiskHigh, classifier.CategoryFor(70))
	assert.Equal(t, entities.RiskMedium, classifier.CategoryFor(69.999))
	assert.Equal(t, entities.RiskMedium, classifier.CategoryFor(40))
	assert.Equal(t, entities.RiskLow, classifier.CategoryFor(39.999))
	assert.Equal(t, entities.RiskLow, classifier.CategoryFor(0))
	assert.Equal(t, entities.RiskHigh, classifier.CategoryFor(100))
}

func TestBucket(t *testing.T) {
	m, tp, uv := classifier.Bucket(classifier.Channels{Moisture: 65, Temperature: 25, UV: 0.2})
	assert.Equal(t, entities.MoistureWet, m)
	assert.Equal(t, entities.TemperatureNormal, tp)
	assert.Equal(t, entities.UVLow, uv)

	m, tp, uv = classifier.Bucket(classifier.Channels{Moisture: 40, Temperature: 30.5, UV: 0.5})
	assert.Equal(t, entities.MoistureDry, m)
	assert.Equal(t, entities.TemperatureHigh, tp)
	assert.Equal(t, entities.UVModerate, uv)
}
