package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"medqc-hq/medqc/pkg/verdict"
)

// ruleDoc is the on-disk form of one rule. The single-valued order/where
// fields and llm_question are accepted for older catalog files.
type ruleDoc struct {
	ID               string   `yaml:"id"`
	Title            string   `yaml:"title"`
	Severity         string   `yaml:"severity"`
	OrderDomain      []string `yaml:"order_domain"`
	WhereDomain      []string `yaml:"where_domain"`
	Order            string   `yaml:"order"`
	Where            string   `yaml:"where"`
	EvidenceMaxChars int      `yaml:"evidence_max_chars"`
	Hint             string   `yaml:"hint"`
	LLMQuestion      string   `yaml:"llm_question"`
}

// defaultsDoc holds values applied to every rule of a file that omits them.
type defaultsDoc struct {
	Severity         string   `yaml:"severity"`
	OrderDomain      []string `yaml:"order_domain"`
	WhereDomain      []string `yaml:"where_domain"`
	EvidenceMaxChars int      `yaml:"evidence_max_chars"`
}

type fileDoc struct {
	Defaults defaultsDoc `yaml:"defaults"`
	Rules    []ruleDoc   `yaml:"rules"`
}

// Load reads a catalog from a YAML file or from every *.yml/*.yaml file of a
// directory, in sorted file-name order. Each file may contain a list of rules,
// a mapping with "defaults" and "rules" keys, or a single rule mapping.
func Load(path string) (*Catalog, error) {
	files, err := catalogFiles(path)
	if err != nil {
		return nil, err
	}

	var specs []Spec
	for _, f := range files {
		fileSpecs, err := loadFile(f)
		if err != nil {
			return nil, err
		}
		specs = append(specs, fileSpecs...)
	}

	c, err := New(specs)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		return nil, err
	}
	return c, nil
}

// catalogFiles resolves path to the ordered list of YAML files to read.
func catalogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		msg := "failed to access path"
		if os.IsNotExist(err) {
			msg = "path not found"
		}
		return nil, &LoadError{Path: path, Message: msg, Cause: err}
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, &LoadError{Path: path, Message: "not a regular file"}
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read directory", Cause: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if isCatalogFile(e.Name()) {
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, &LoadError{Path: path, Message: "no .yml or .yaml files found", Cause: ErrEmptyCatalog}
	}
	return files, nil
}

func isCatalogFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yml" || ext == ".yaml"
}

func loadFile(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Path: path, Message: "file contains invalid UTF-8 encoding", Cause: ErrInvalidRule}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Path: path, Message: "YAML parsing failed", Cause: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]

	var fd fileDoc
	switch doc.Kind {
	case yaml.SequenceNode:
		if err := doc.Decode(&fd.Rules); err != nil {
			return nil, &LoadError{Path: path, Message: "invalid rule list", Cause: err}
		}
	case yaml.MappingNode:
		if hasKey(doc, "rules") {
			if err := doc.Decode(&fd); err != nil {
				return nil, &LoadError{Path: path, Message: "invalid rules document", Cause: err}
			}
		} else {
			var single ruleDoc
			if err := doc.Decode(&single); err != nil {
				return nil, &LoadError{Path: path, Message: "invalid rule", Cause: err}
			}
			fd.Rules = []ruleDoc{single}
		}
	case yaml.ScalarNode:
		if doc.Tag == "!!null" {
			return nil, nil
		}
		fallthrough
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported top-level YAML node at line %d", doc.Line), Cause: ErrInvalidRule}
	}

	specs := make([]Spec, 0, len(fd.Rules))
	for _, r := range fd.Rules {
		specs = append(specs, r.spec(fd.Defaults))
	}
	return specs, nil
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func (r ruleDoc) spec(d defaultsDoc) Spec {
	s := Spec{
		ID:               r.ID,
		Title:            r.Title,
		DefaultSeverity:  verdict.Severity(r.Severity),
		OrderDomain:      r.OrderDomain,
		WhereDomain:      r.WhereDomain,
		EvidenceMaxChars: r.EvidenceMaxChars,
		Hint:             r.Hint,
	}
	if len(s.OrderDomain) == 0 && r.Order != "" {
		s.OrderDomain = []string{r.Order}
	}
	if len(s.WhereDomain) == 0 && r.Where != "" {
		s.WhereDomain = []string{r.Where}
	}
	if s.Hint == "" {
		s.Hint = r.LLMQuestion
	}

	if s.DefaultSeverity == "" {
		s.DefaultSeverity = verdict.Severity(d.Severity)
	}
	if len(s.OrderDomain) == 0 {
		s.OrderDomain = d.OrderDomain
	}
	if len(s.WhereDomain) == 0 {
		s.WhereDomain = d.WhereDomain
	}
	if s.EvidenceMaxChars == 0 {
		s.EvidenceMaxChars = d.EvidenceMaxChars
	}
	return s
}
