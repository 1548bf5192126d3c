package config

// FullConfig is the DB-persisted runtime configuration, patchable at runtime
// through the configs service.
type FullConfig struct {
	AI   AIConfig    `json:"ai"`
	S3   S3Options   `json:"s3"`
	Jobs JobsConfig  `json:"jobs"`
	Bark BarkOptions `json:"bark"`
}

// BarkOptions configures operator push alerts (rate-limit trips and the
// like) through a Bark server.
type BarkOptions struct {
	Enable    bool   `json:"enable"`
	Key       string `json:"key"`
	ServerURL string `json:"server_url"`
	SiteTitle string `json:"site_title"`
}

type AIConfig struct {
	Providers             []AIProvider       `json:"providers"`
	AnalysisModel         *AIModelAssignment `json:"analysis_model,omitempty"`
	EnableAnalysis        bool               `json:"enable_analysis"`
	DefaultTargetLanguage string             `json:"default_target_language"`
}

type AIModelAssignment struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

type AIProvider struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"` // OpenAI | OpenAI-Compatible | Anthropic
	APIKey       string `json:"api_key"`
	Endpoint     string `json:"endpoint,omitempty"`
	DefaultModel string `json:"default_model"`
	Enabled      bool   `json:"enabled"`
}

type S3Options struct {
	Enable          bool   `json:"enable"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PathStyleAccess bool   `json:"path_style_access"`
	CustomDomain    string `json:"custom_domain,omitempty"`
}

type JobsConfig struct {
	ConsolidationIntervalMinutes int  `json:"consolidation_interval_minutes"`
	ReductionIntervalMinutes     int  `json:"reduction_interval_minutes"`
	TranslationThreshold         int  `json:"translation_threshold"`
	AnalysisConcurrency          int  `json:"analysis_concurrency"`
	SplitCueSentences            bool `json:"split_cue_sentences"`
}

// DefaultFullConfig returns sensible defaults for a fresh installation.
func DefaultFullConfig() FullConfig {
	return FullConfig{
		AI: AIConfig{
			Providers:             []AIProvider{},
			EnableAnalysis:        true,
			DefaultTargetLanguage: "en",
		},
		S3:   S3Options{},
		Bark: BarkOptions{SiteTitle: "Kotoba"},
		Jobs: JobsConfig{
			ConsolidationIntervalMinutes: 30,
			ReductionIntervalMinutes:     30,
			TranslationThreshold:         10,
			AnalysisConcurrency:          5,
			SplitCueSentences:            false,
		},
	}
}
