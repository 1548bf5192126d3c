package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	appcfg "github.com/kotoba-space/core/internal/config"
	"github.com/kotoba-space/core/internal/models"
	"github.com/kotoba-space/core/internal/modules/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newOracleWithAI(t *testing.T, ai appcfg.AIConfig) *AIOracle {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OptionModel{}))

	cfgSvc := configs.NewService(db)
	raw, err := json.Marshal(ai)
	require.NoError(t, err)
	_, err = cfgSvc.Patch(map[string]json.RawMessage{"ai": raw})
	require.NoError(t, err)
	return NewAIOracle(cfgSvc, nil)
}

// newChatServer serves the chat-completions dialect, answering every request
// with the given message content.
func newChatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func compatibleAI(endpoint string) appcfg.AIConfig {
	return appcfg.AIConfig{
		EnableAnalysis:        true,
		DefaultTargetLanguage: "en",
		Providers: []appcfg.AIProvider{{
			ID:           "local",
			Name:         "local",
			Type:         "OpenAI-Compatible",
			APIKey:       "test-key",
			Endpoint:     endpoint,
			DefaultModel: "test-model",
			Enabled:      true,
		}},
	}
}

func TestUnmarshalAIJSONToleratesFences(t *testing.T) {
	type payload struct {
		Words []WordAnalysis `json:"words"`
	}
	cases := []struct {
		name    string
		raw     string
		wantErr bool
		words   int
	}{
		{name: "bare json", raw: `{"words":[{"word":"猫","translation":"cat"}]}`, words: 1},
		{name: "json fence", raw: "```json\n{\"words\":[{\"word\":\"猫\",\"translation\":\"cat\"}]}\n```", words: 1},
		{name: "upper fence", raw: "```JSON\n{\"words\":[]}\n```", words: 0},
		{name: "surrounding prose", raw: "Here is the analysis:\n{\"words\":[{\"word\":\"は\",\"translation\":\"(topic)\"}]}\nHope that helps!", words: 1},
		{name: "not json at all", raw: "sorry, I cannot do that", wantErr: true},
		{name: "truncated object", raw: `{"words":[{"word":"猫"`, wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out payload
			err := unmarshalAIJSON(tc.raw, &out)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrOracleUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Len(t, out.Words, tc.words)
		})
	}
}

func TestSelectProvider(t *testing.T) {
	providers := []appcfg.AIProvider{
		{ID: "disabled", DefaultModel: "m0", Enabled: false},
		{ID: "first", DefaultModel: "m1", Enabled: true},
		{ID: "second", DefaultModel: "m2", Enabled: true},
	}

	t.Run("assignment picks by provider id", func(t *testing.T) {
		got := selectProvider(appcfg.AIConfig{Providers: providers},
			&appcfg.AIModelAssignment{ProviderID: "second"})
		require.NotNil(t, got)
		assert.Equal(t, "second", got.ID)
		assert.Equal(t, "m2", got.DefaultModel)
	})

	t.Run("assignment overrides model", func(t *testing.T) {
		got := selectProvider(appcfg.AIConfig{Providers: providers},
			&appcfg.AIModelAssignment{ProviderID: "second", Model: "custom"})
		require.NotNil(t, got)
		assert.Equal(t, "custom", got.DefaultModel)
	})

	t.Run("unknown assignment falls back to first enabled", func(t *testing.T) {
		got := selectProvider(appcfg.AIConfig{Providers: providers},
			&appcfg.AIModelAssignment{ProviderID: "missing"})
		require.NotNil(t, got)
		assert.Equal(t, "first", got.ID)
	})

	t.Run("nil assignment skips disabled providers", func(t *testing.T) {
		got := selectProvider(appcfg.AIConfig{Providers: providers}, nil)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.ID)
	})

	t.Run("nothing enabled yields nil", func(t *testing.T) {
		got := selectProvider(appcfg.AIConfig{Providers: []appcfg.AIProvider{
			{ID: "off", Enabled: false},
		}}, nil)
		assert.Nil(t, got)
	})
}

func TestNormalizeEndpoints(t *testing.T) {
	cases := []struct {
		raw        string
		baseURL    string
		compatible string
	}{
		{raw: "", baseURL: "", compatible: "https://api.openai.com"},
		{raw: "https://llm.example.com", baseURL: "https://llm.example.com/v1", compatible: "https://llm.example.com"},
		{raw: "https://llm.example.com/v1", baseURL: "https://llm.example.com/v1", compatible: "https://llm.example.com"},
		{raw: "https://llm.example.com/v1/", baseURL: "https://llm.example.com/v1", compatible: "https://llm.example.com"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.baseURL, normalizeOpenAIBaseURL(tc.raw), "base url for %q", tc.raw)
		assert.Equal(t, tc.compatible, normalizeOpenAICompatibleEndpoint(tc.raw), "compatible endpoint for %q", tc.raw)
	}
}

func TestAnalyzeSentenceValidatesEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes fields", func(t *testing.T) {
		srv := newChatServer(t, `{"words":[{"word":" 猫 ","translation":"cat","pronunciation":"ねこ","pronunciationType":"HIRAGANA"},{"word":"だ","translation":"is","pronunciationType":"hiragana"}]}`)
		oracle := newOracleWithAI(t, compatibleAI(srv.URL))

		words, err := oracle.AnalyzeSentence(ctx, "猫だ", "ja")
		require.NoError(t, err)
		require.Len(t, words, 2)
		assert.Equal(t, "猫", words[0].Word)
		assert.Equal(t, "hiragana", words[0].PronunciationType)
		assert.Empty(t, words[1].PronunciationType, "type without a pronunciation is dropped")
	})

	t.Run("rejects entry without translation", func(t *testing.T) {
		srv := newChatServer(t, `{"words":[{"word":"猫","translation":""}]}`)
		oracle := newOracleWithAI(t, compatibleAI(srv.URL))

		_, err := oracle.AnalyzeSentence(ctx, "猫", "ja")
		assert.ErrorIs(t, err, ErrOracleUnavailable)
	})

	t.Run("rejects empty word list", func(t *testing.T) {
		srv := newChatServer(t, `{"words":[]}`)
		oracle := newOracleWithAI(t, compatibleAI(srv.URL))

		_, err := oracle.AnalyzeSentence(ctx, "猫", "ja")
		assert.ErrorIs(t, err, ErrOracleUnavailable)
	})

	t.Run("analysis disabled", func(t *testing.T) {
		ai := compatibleAI("http://unused.invalid")
		ai.EnableAnalysis = false
		oracle := newOracleWithAI(t, ai)

		_, err := oracle.AnalyzeSentence(ctx, "猫", "ja")
		assert.ErrorIs(t, err, ErrAnalysisDisabled)
	})

	t.Run("no enabled provider", func(t *testing.T) {
		ai := compatibleAI("http://unused.invalid")
		ai.Providers[0].Enabled = false
		oracle := newOracleWithAI(t, ai)

		_, err := oracle.AnalyzeSentence(ctx, "猫", "ja")
		assert.ErrorIs(t, err, ErrNoProvider)
	})
}

func TestReduceTranslationsWhitelistsOutput(t *testing.T) {
	ctx := context.Background()
	input := []string{"cat", "feline", "kitty"}

	cases := []struct {
		name    string
		content string
		want    []string
		wantErr bool
	}{
		{
			name:    "keeps known entries only",
			content: `{"translations":["cat","dragon","feline"]}`,
			want:    []string{"cat", "feline"},
		},
		{
			name:    "fenced output accepted",
			content: "```json\n{\"translations\":[\"cat\"]}\n```",
			want:    []string{"cat"},
		},
		{
			name:    "duplicates collapse",
			content: `{"translations":["cat","Cat","cat"]}`,
			want:    []string{"cat"},
		},
		{
			name:    "everything invented",
			content: `{"translations":["dragon","unicorn"]}`,
			wantErr: true,
		},
		{
			name:    "non-shrinking result rejected",
			content: `{"translations":["cat","feline","kitty"]}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			content: "I refuse",
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newChatServer(t, tc.content)
			oracle := newOracleWithAI(t, compatibleAI(srv.URL))

			got, err := oracle.ReduceTranslations(ctx, "猫", input, "ja", "en")
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrOracleUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
