package config

// The settings schema declares every runtime-tunable key: its type, its
// default, and whether changing it must invalidate long-lived service
// instances. The runtimeconfig store is pure storage; this schema is the
// policy layer consulted by the configuration API.

type SettingType string

const (
	TypeString SettingType = "string"
	TypeInt    SettingType = "int"
	TypeFloat  SettingType = "float"
	TypeBool   SettingType = "bool"
)

type SettingSpec struct {
	Key      string      `json:"key"`
	Label    string      `json:"label"`
	Type     SettingType `json:"type"`
	Default  string      `json:"default"`
	Critical bool        `json:"critical"`
}

type SettingCategory struct {
	Name     string        `json:"name"`
	Label    string        `json:"label"`
	Settings []SettingSpec `json:"settings"`
}

// SettingsSchema is static for the process lifetime. Critical keys are the
// ones baked into service singletons at construction time: API keys, model
// names, the embedding dimension and backend addresses.
var SettingsSchema = []SettingCategory{
	{
		Name:  "providers",
		Label: "Model Providers",
		Settings: []SettingSpec{
			{Key: "OPENAI_API_KEY", Label: "OpenAI API Key", Type: TypeString, Default: "", Critical: true},
			{Key: "EMBEDDING_MODEL", Label: "Embedding Model", Type: TypeString, Default: "text-embedding-3-small", Critical: true},
			{Key: "EMBEDDING_DIMENSION", Label: "Embedding Dimension", Type: TypeInt, Default: "1536", Critical: true},
			{Key: "GOOGLE_API_KEY", Label: "Google API Key", Type: TypeString, Default: "", Critical: true},
			{Key: "OCR_MODEL", Label: "OCR Model", Type: TypeString, Default: "gemini-1.5-flash", Critical: true},
		},
	},
	{
		Name:  "pipeline",
		Label: "Ingestion Pipeline",
		Settings: []SettingSpec{
			{Key: "INGEST_CHUNK_MAX_TOKENS", Label: "Chunk Size (tokens)", Type: TypeInt, Default: "200", Critical: false},
			{Key: "INGEST_CHUNK_OVERLAP", Label: "Chunk Overlap (tokens)", Type: TypeInt, Default: "50", Critical: false},
			{Key: "INGEST_OCR_TIMEOUT_SECONDS", Label: "OCR Timeout (seconds)", Type: TypeInt, Default: "120", Critical: false},
			{Key: "INGEST_MIN_OCR_CONFIDENCE", Label: "Minimum OCR Confidence", Type: TypeFloat, Default: "0.0", Critical: false},
		},
	},
	{
		Name:  "streaming",
		Label: "Progress Streaming",
		Settings: []SettingSpec{
			{Key: "PROGRESS_IDLE_TIMEOUT_SECONDS", Label: "Stream Idle Timeout (seconds)", Type: TypeInt, Default: "300", Critical: false},
		},
	},
	{
		Name:  "logging",
		Label: "Logging",
		Settings: []SettingSpec{
			{Key: "LOG_LEVEL", Label: "Log Level", Type: TypeString, Default: "info", Critical: false},
			{Key: "LOG_PIPELINE_STAGES", Label: "Log Pipeline Stages", Type: TypeBool, Default: "false", Critical: false},
		},
	},
}

// SettingByKey returns the spec for key, or ok=false for undeclared keys.
func SettingByKey(key string) (SettingSpec, bool) {
	for _, cat := range SettingsSchema {
		for _, s := range cat.Settings {
			if s.Key == key {
				return s, true
			}
		}
	}
	return SettingSpec{}, false
}

// AllSettingKeys returns every declared key in schema order.
func AllSettingKeys() []string {
	var keys []string
	for _, cat := range SettingsSchema {
		for _, s := range cat.Settings {
			keys = append(keys, s.Key)
		}
	}
	return keys
}
