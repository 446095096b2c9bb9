// Package rubricfile loads rubrics from YAML documents, validates them against
// an embedded JSON schema and turns them into [rubric.Rule] values.
package rubricfile

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/gradekit/nbgrade/internal/rubric"
)

//go:embed rubric.schema.json
var schemaJSON string

//go:embed climate_eda.yaml
var climateEDAYAML []byte

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// rubricSchema is the compiled JSON Schema for rubric files.
var rubricSchema = mustCompileSchema(schemaJSON, "rubric.schema.json")

// CheckType identifies a declarative check.
type CheckType string

const (
	CheckContains     CheckType = "contains"
	CheckContainsAll  CheckType = "contains_all"
	CheckMatchAny     CheckType = "match_any"
	CheckMatchGroups  CheckType = "match_groups"
	CheckCountAtLeast CheckType = "count_at_least"
)

// File is a rubric document.
type File struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Rules       []RuleDef `yaml:"rules"`
}

// RuleDef declares one rule.
type RuleDef struct {
	ID             string   `yaml:"id"`
	Description    string   `yaml:"description,omitempty"`
	Check          CheckDef `yaml:"check"`
	FailureMessage string   `yaml:"failure_message,omitempty"`
}

// CheckDef is a check type, the corpus text it reads and its type-specific
// parameters.
type CheckDef struct {
	Type   CheckType      `yaml:"type"`
	Target string         `yaml:"target,omitempty"`
	Params map[string]any `yaml:",inline"`
}

// SchemaError lists every place a rubric document breaks the schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "rubric does not match schema: " + strings.Join(e.Problems, "; ")
}

// ClimateEDABytes returns the YAML form of the built-in climate EDA rubric.
func ClimateEDABytes() []byte {
	out := make([]byte, len(climateEDAYAML))
	copy(out, climateEDAYAML)
	return out
}

// ClimateEDA parses the embedded climate EDA rubric.
func ClimateEDA() *File {
	f, err := Parse(climateEDAYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded climate_eda.yaml is invalid: %v", err))
	}
	return f
}

// Load reads and parses a rubric file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rubric: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading rubric %s: %w", path, err)
	}
	return f, nil
}

// Parse validates data against the rubric schema and decodes it.
func Parse(data []byte) (*File, error) {
	if problems := ValidateBytes(data); len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rubric: %w", err)
	}

	seen := make(map[string]bool, len(f.Rules))
	for _, r := range f.Rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
	}

	return &f, nil
}

// BuildRules builds the rubric. Patterns are compiled here, so a malformed pattern
// is reported against its rule before any notebook is graded.
func (f *File) BuildRules() ([]rubric.Rule, error) {
	rules, errs := f.build()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return rules, nil
}

func (f *File) build() ([]rubric.Rule, []error) {
	rules := make([]rubric.Rule, 0, len(f.Rules))
	var errs []error

	for _, def := range f.Rules {
		pred, err := buildPredicate(def.Check)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %q: %w", def.ID, err))
			continue
		}

		rules = append(rules, rubric.Rule{
			ID:             def.ID,
			Description:    def.Description,
			Predicate:      pred,
			FailureMessage: def.FailureMessage,
		})
	}
	return rules, errs
}

// Validate reports every schema and construction problem in a rubric
// document, one entry per problem. An empty result means the rubric can be
// used for grading.
func Validate(data []byte) []string {
	f, err := Parse(data)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return schemaErr.Problems
		}
		return []string{err.Error()}
	}

	_, errs := f.build()
	problems := make([]string, 0, len(errs))
	for _, err := range errs {
		problems = append(problems, err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

type containsParams struct {
	Substring string `mapstructure:"substring"`
}

type containsAllParams struct {
	Items  []string `mapstructure:"items"`
	Labels []string `mapstructure:"labels"`
}

type matchAnyParams struct {
	Patterns   []string `mapstructure:"patterns"`
	IgnoreCase bool     `mapstructure:"ignore_case"`
}

type matchGroupsParams struct {
	Groups []struct {
		Name     string   `mapstructure:"name"`
		Patterns []string `mapstructure:"patterns"`
	} `mapstructure:"groups"`
}

type countAtLeastParams struct {
	Patterns []string `mapstructure:"patterns"`
	Min      int      `mapstructure:"min"`
}

func buildPredicate(def CheckDef) (rubric.Predicate, error) {
	target, err := rubric.ParseTarget(def.Target)
	if err != nil {
		return nil, err
	}

	switch def.Type {
	case CheckContains:
		var v containsParams
		if err := decodeParams(def.Params, &v); err != nil {
			return nil, err
		}
		if v.Substring == "" {
			return nil, errors.New("contains check needs a substring")
		}
		return rubric.Contains(target, v.Substring), nil

	case CheckContainsAll:
		var v containsAllParams
		if err := decodeParams(def.Params, &v); err != nil {
			return nil, err
		}
		if len(v.Items) == 0 {
			return nil, errors.New("contains_all check needs items")
		}
		if len(v.Labels) > 0 && len(v.Labels) != len(v.Items) {
			return nil, fmt.Errorf("%d labels given for %d items", len(v.Labels), len(v.Items))
		}
		return rubric.ContainsAll(target, v.Items, v.Labels), nil

	case CheckMatchAny:
		var v matchAnyParams
		if err := decodeParams(def.Params, &v); err != nil {
			return nil, err
		}
		if _, err := rubric.CompilePatterns(v.Patterns, v.IgnoreCase); err != nil {
			return nil, err
		}
		return rubric.MatchAny(target, v.IgnoreCase, v.Patterns...), nil

	case CheckMatchGroups:
		var v matchGroupsParams
		if err := decodeParams(def.Params, &v); err != nil {
			return nil, err
		}
		groups := make([]rubric.PatternGroup, 0, len(v.Groups))
		for _, g := range v.Groups {
			if _, err := rubric.CompilePatterns(g.Patterns, false); err != nil {
				return nil, fmt.Errorf("group %q: %w", g.Name, err)
			}
			groups = append(groups, rubric.PatternGroup{Name: g.Name, Patterns: g.Patterns})
		}
		return rubric.MatchGroups(target, groups...), nil

	case CheckCountAtLeast:
		var v countAtLeastParams
		if err := decodeParams(def.Params, &v); err != nil {
			return nil, err
		}
		if _, err := rubric.CompilePatterns(v.Patterns, false); err != nil {
			return nil, err
		}
		return rubric.CountAtLeast(target, v.Min, v.Patterns...), nil

	default:
		return nil, fmt.Errorf("'%s' is not a valid check type", def.Type)
	}
}

func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("decoding check parameters: %w", err)
	}
	return nil
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ValidateBytes validates raw YAML bytes against the rubric schema.
func ValidateBytes(data []byte) []string {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("YAML parse error: %v", err)}
	}

	err := rubricSchema.Validate(toJSONCompatible(doc))
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{fmt.Sprintf("schema: %v", err)}
	}

	var problems []string
	collectSchemaErrors(ve, &problems)
	return problems
}

func collectSchemaErrors(ve *jsonschema.ValidationError, problems *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*problems = append(*problems, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, problems)
	}
}

// toJSONCompatible converts YAML-decoded values to the types encoding/json
// would produce, which is what the schema validator expects.
func toJSONCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, v2 := range val {
			result[k] = toJSONCompatible(v2)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, v2 := range val {
			result[i] = toJSONCompatible(v2)
		}
		return result
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}
