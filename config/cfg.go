package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"pagestyle/style"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	MarkupConfig struct {
		Bold   string `yaml:"bold" validate:"required"`
		Italic string `yaml:"italic" validate:"required"`
		Color  string `yaml:"color" validate:"required"`
	}

	StylingConfig struct {
		MarkerPattern string       `yaml:"marker_pattern"`
		NearBlack     []string     `yaml:"near_black" validate:"dive,required"`
		BoldTags      []string     `yaml:"bold_tags" validate:"min=1,dive,required"`
		ItalicTags    []string     `yaml:"italic_tags" validate:"min=1,dive,required"`
		Markup        MarkupConfig `yaml:"markup"`
	}

	BatchConfig struct {
		TreePattern           string   `yaml:"tree_pattern" validate:"required"`
		TableExt              string   `yaml:"table_ext" validate:"required,startswith=."`
		Fields                []string `yaml:"fields" validate:"dive,required"`
		ListFields            []string `yaml:"list_fields" validate:"dive,required"`
		OutputNameTemplate    string   `yaml:"output_name_template"`
		FileNameTransliterate bool     `yaml:"file_name_transliterate"`
		Workers               int      `yaml:"workers" validate:"gte=0,lte=256"`
		Ledger                string   `yaml:"ledger,omitempty" validate:"omitempty,filepath"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Styling   StylingConfig  `yaml:"styling"`
		Batch     BatchConfig    `yaml:"batch"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above, alternative is to use struct
	// field name and reflection which I want to avoid for now
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
	MarkerPatternFieldName      TemplateFieldName = "marker_pattern"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
	gencfg.WithDoNotExpandField(string(MarkerPatternFieldName)),
)

// checkConfig performs validations which cannot be expressed with tags.
func checkConfig(sl validator.StructLevel) {
	cfg, ok := sl.Current().Interface().(Config)
	if !ok {
		return
	}
	if len(cfg.Batch.Fields)+len(cfg.Batch.ListFields) == 0 {
		sl.ReportError(cfg.Batch.Fields, "fields", "Fields", "required", "")
	}
	if _, err := regexp.Compile(cfg.Styling.MarkerPattern); err != nil {
		sl.ReportError(cfg.Styling.MarkerPattern, "marker_pattern", "MarkerPattern", "regexp", "")
	}
	for _, c := range cfg.Styling.NearBlack {
		if _, err := style.ParseColor(c); err != nil {
			sl.ReportError(cfg.Styling.NearBlack, "near_black", "NearBlack", "hexcolor", c)
		}
	}
	forms := []struct {
		name, form string
		args       int
	}{
		{"bold", cfg.Styling.Markup.Bold, 1},
		{"italic", cfg.Styling.Markup.Italic, 1},
		{"color", cfg.Styling.Markup.Color, 2},
	}
	for _, f := range forms {
		args := []any{"text", "#000000"}[:f.args]
		if strings.Contains(fmt.Sprintf(f.form, args...), "%!") {
			sl.ReportError(f.form, f.name, "Markup", "markup", "")
		}
	}
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

// Options converts styling configuration into engine options.
func (conf *StylingConfig) Options() (*style.Options, error) {
	return style.NewOptions(style.Settings{
		MarkerPattern: conf.MarkerPattern,
		NearBlack:     conf.NearBlack,
		BoldTags:      conf.BoldTags,
		ItalicTags:    conf.ItalicTags,
		Markup: style.Markup{
			Bold:   conf.Markup.Bold,
			Italic: conf.Markup.Italic,
			Color:  conf.Markup.Color,
		},
	})
}
