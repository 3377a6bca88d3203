// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "survey-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// RequestsPerSecond caps the request rate against a single API.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// MaxResults is the number of papers to request (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// PapersFile is where the current session's paper list is written.
	PapersFile string `json:"papers_file" yaml:"papers_file" mapstructure:"papers_file"`
}

// AcquisitionConfig holds settings for PDF downloads.
type AcquisitionConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// PDFDir is the directory PDFs are saved into, one file per paper named
	// after the sanitized title.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir" mapstructure:"pdf_dir"`

	// MinPDFSize is the smallest response body accepted as a PDF (default 1000 bytes).
	MinPDFSize int `json:"min_pdf_size" yaml:"min_pdf_size" mapstructure:"min_pdf_size"`
}

// ExtractionConfig holds settings for PDF-to-text extraction.
type ExtractionConfig struct {
	// PDFDir is the directory scanned for *.pdf files.
	PDFDir string `json:"pdf_dir" yaml:"pdf_dir" mapstructure:"pdf_dir"`

	// TextDir receives one <id>.txt file per PDF. It is the analysis corpus.
	TextDir string `json:"text_dir" yaml:"text_dir" mapstructure:"text_dir"`
}

// AnalysisConfig holds settings for the cross-paper analysis pipeline.
type AnalysisConfig struct {
	// TextDir is the corpus directory of extracted text artifacts.
	TextDir string `json:"text_dir" yaml:"text_dir" mapstructure:"text_dir"`

	// OutputDir receives the similarity, entities, and synthesis artifacts.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Extensions lists the recognized text-artifact extensions (default [".txt"]).
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`

	// MaxFeatures caps the TF-IDF vocabulary size (default 500).
	MaxFeatures int `json:"max_features" yaml:"max_features" mapstructure:"max_features"`

	// VocabularyFile optionally overrides the built-in key-phrase, dataset,
	// and method vocabularies.
	VocabularyFile string `json:"vocabulary_file,omitempty" yaml:"vocabulary_file,omitempty" mapstructure:"vocabulary_file"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxTokens bounds each response (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DraftConfig holds settings for drafting, evaluation, and revision.
type DraftConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// OutputDir receives paper_draft.md and the final report.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
}

// StoreConfig holds settings for the SQLite job and index store.
type StoreConfig struct {
	// Dir contains survey.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json" (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search      SearchConfig      `json:"search" yaml:"search" mapstructure:"search"`
	Acquisition AcquisitionConfig `json:"acquisition" yaml:"acquisition" mapstructure:"acquisition"`
	Extraction  ExtractionConfig  `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Draft       DraftConfig       `json:"draft" yaml:"draft" mapstructure:"draft"`
	Store       StoreConfig       `json:"store" yaml:"store" mapstructure:"store"`
	Log         LogConfig         `json:"log" yaml:"log" mapstructure:"log"`
}
