package connections

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yml
var definitionsYAML []byte

// Field는 연결 유형의 입력 항목이다.
type Field struct {
	Key     string `yaml:"key"`
	Label   string `yaml:"label"`
	Type    string `yaml:"type"`
	Default string `yaml:"default"`
}

// TypeDef는 연결 유형 정의다.
type TypeDef struct {
	Name   string  `yaml:"name"`
	Label  string  `yaml:"label"`
	Fields []Field `yaml:"fields"`
}

// Definitions는 definitions.yml 전체다.
type Definitions struct {
	DefaultType string    `yaml:"defaultType"`
	Types       []TypeDef `yaml:"types"`
}

// LoadDefinitions는 내장 definitions.yml을 파싱한다.
func LoadDefinitions() (*Definitions, error) {
	return ParseDefinitions(definitionsYAML)
}

// ParseDefinitions는 YAML 정의를 파싱하고 defaultType이 정의되어 있는지 검사한다.
func ParseDefinitions(data []byte) (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("connections.ParseDefinitions: %w", err)
	}
	if defs.DefaultType == "" {
		return nil, fmt.Errorf("connections.ParseDefinitions: defaultType 필수")
	}
	if defs.Type(defs.DefaultType) == nil {
		return nil, fmt.Errorf("connections.ParseDefinitions: defaultType %q 정의 없음", defs.DefaultType)
	}
	return &defs, nil
}

// Type은 이름으로 유형 정의를 찾는다.
func (d *Definitions) Type(name string) *TypeDef {
	for i := range d.Types {
		if d.Types[i].Name == name {
			return &d.Types[i]
		}
	}
	return nil
}

// FieldDefault는 유형의 필드 기본값을 반환한다.
func (d *Definitions) FieldDefault(typeName, key string) string {
	t := d.Type(typeName)
	if t == nil {
		return ""
	}
	for _, f := range t.Fields {
		if f.Key == key {
			return f.Default
		}
	}
	return ""
}
