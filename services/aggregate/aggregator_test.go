package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindfusion/backend/services"
	"github.com/mindfusion/backend/services/providers"
)

func defaultSpecs() []providers.Spec {
	return []providers.Spec{
		{ID: "chatgpt", Label: "ChatGPT", TrustWeight: 85},
		{ID: "claude", Label: "Claude", TrustWeight: 88},
		{ID: "gemini", Label: "Gemini", TrustWeight: 90},
	}
}

func TestAggregator_Aggregate(t *testing.T) {
	tests := []struct {
		name           string
		breakdown      providers.Breakdown
		wantText       string
		wantConfidence int
		wantFrom       []string
	}{
		{
			name: "two successes and one failure",
			breakdown: providers.Breakdown{
				"chatgpt": providers.Success("Hi", 85),
				"claude":  providers.Failure(providers.ReasonNetworkError, "connection failed"),
				"gemini":  providers.Success("Hola", 90),
			},
			wantText:       "**ChatGPT:** Hi\n\n**Gemini:** Hola",
			wantConfidence: 88,
			wantFrom:       []string{"chatgpt", "gemini"},
		},
		{
			name: "single success",
			breakdown: providers.Breakdown{
				"chatgpt": providers.Failure(providers.ReasonProviderRejected, "quota"),
				"claude":  providers.Success("Bonjour", 88),
				"gemini":  providers.Failure(providers.ReasonParseError, "malformed reply"),
			},
			wantText:       "**Claude:** Bonjour",
			wantConfidence: 88,
			wantFrom:       []string{"claude"},
		},
		{
			name: "all succeed",
			breakdown: providers.Breakdown{
				"gemini":  providers.Success("c", 90),
				"claude":  providers.Success("b", 88),
				"chatgpt": providers.Success("a", 85),
			},
			wantText:       "**ChatGPT:** a\n\n**Claude:** b\n\n**Gemini:** c",
			wantConfidence: 88,
			wantFrom:       []string{"chatgpt", "claude", "gemini"},
		},
		{
			name: "rounds half up",
			breakdown: providers.Breakdown{
				"chatgpt": providers.Success("a", 50),
				"claude":  providers.Success("b", 51),
			},
			wantText:       "**ChatGPT:** a\n\n**Claude:** b",
			wantConfidence: 51,
			wantFrom:       []string{"chatgpt", "claude"},
		},
		{
			name: "unknown providers follow configured ones",
			breakdown: providers.Breakdown{
				"zeta":    providers.Success("z", 60),
				"alpha":   providers.Success("y", 70),
				"chatgpt": providers.Success("x", 80),
			},
			wantText:       "**ChatGPT:** x\n\n**alpha:** y\n\n**zeta:** z",
			wantConfidence: 70,
			wantFrom:       []string{"chatgpt", "alpha", "zeta"},
		},
	}

	agg := NewAggregator(defaultSpecs())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := agg.Aggregate(tt.breakdown)
			require.NoError(t, err)

			assert.Equal(t, tt.wantText, result.Text)
			assert.Equal(t, tt.wantConfidence, result.Confidence)
			assert.Equal(t, tt.wantFrom, result.Contributors)
		})
	}
}

func TestAggregator_AllFailed(t *testing.T) {
	breakdown := providers.Breakdown{
		"chatgpt": providers.Failure(providers.ReasonNetworkError, "deadline exceeded"),
		"claude":  providers.Failure(providers.ReasonProviderRejected, "missing credential"),
		"gemini":  providers.Failure(providers.ReasonParseError, "malformed reply"),
	}

	result, err := NewAggregator(defaultSpecs()).Aggregate(breakdown)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, services.IsNoSuccessError(err))
	assert.Equal(t, "All AI providers failed to respond", services.GetErrorMessage(err))
	assert.Equal(t, breakdown, services.GetErrorDetails(err)["responses"])

	// the shared sentinel stays untouched
	assert.Empty(t, services.ErrNoSuccess.Details)
}

func TestAggregator_EmptyBreakdown(t *testing.T) {
	_, err := NewAggregator(defaultSpecs()).Aggregate(providers.Breakdown{})
	assert.True(t, services.IsNoSuccessError(err))
}

func TestAggregator_Deterministic(t *testing.T) {
	agg := NewAggregator(defaultSpecs())
	breakdown := providers.Breakdown{
		"chatgpt": providers.Success("Hi", 85),
		"claude":  providers.Success("Hello", 88),
		"gemini":  providers.Success("Hola", 90),
	}

	first, err := agg.Aggregate(breakdown)
	require.NoError(t, err)

	// map iteration order varies between runs; the result must not
	for i := 0; i < 50; i++ {
		again, err := agg.Aggregate(breakdown)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewAggregator_DuplicateSpecs(t *testing.T) {
	agg := NewAggregator([]providers.Spec{
		{ID: "chatgpt", Label: "First"},
		{ID: "chatgpt", Label: "Second"},
		{ID: "claude"},
	})

	result, err := agg.Aggregate(providers.Breakdown{
		"chatgpt": providers.Success("a", 80),
		"claude":  providers.Success("b", 90),
	})
	require.NoError(t, err)

	assert.Equal(t, "**First:** a\n\n**claude:** b", result.Text)
	assert.Equal(t, 85, result.Confidence)
}
