package preferences

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yml
var definitionsYAML []byte

// Item은 설정 화면의 입력 항목 정의다.
type Item struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Type    Type     `yaml:"type"`
	Options []string `yaml:"options"`
	Default string   `yaml:"default"`
}

// Tab은 설정 화면의 탭 정의다.
type Tab struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
	Items []Item `yaml:"items"`
}

// Definitions는 definitions.yml 전체다.
type Definitions struct {
	DefaultTab string `yaml:"defaultTab"`
	Tabs       []Tab  `yaml:"tabs"`
}

// LoadDefinitions는 내장 definitions.yml을 파싱한다.
func LoadDefinitions() (*Definitions, error) {
	var defs Definitions
	if err := yaml.Unmarshal(definitionsYAML, &defs); err != nil {
		return nil, fmt.Errorf("preferences.LoadDefinitions: %w", err)
	}
	return &defs, nil
}

// Item은 key로 항목 정의를 찾는다.
func (d *Definitions) Item(key string) (Item, bool) {
	for _, tab := range d.Tabs {
		for _, it := range tab.Items {
			if it.Key == key {
				return it, true
			}
		}
	}
	return Item{}, false
}

// Tab은 id로 탭 정의를 찾는다.
func (d *Definitions) Tab(id string) (Tab, bool) {
	for _, tab := range d.Tabs {
		if tab.ID == id {
			return tab, true
		}
	}
	return Tab{}, false
}

// NewChange는 항목 정의에서 Change를 만든다. 정의에 없는 key는 text 유형이 된다.
// number/select 유형은 형식이 맞지 않으면 error를 반환한다.
func (d *Definitions) NewChange(key, value string) (Change, error) {
	it, ok := d.Item(key)
	if !ok {
		return NewChange(key, TypeText, value), nil
	}
	switch it.Type {
	case TypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return Change{}, fmt.Errorf("preferences.NewChange: %s: 숫자가 아닙니다: %q", key, value)
		}
	case TypeSelect:
		if len(it.Options) > 0 && !slices.Contains(it.Options, value) {
			return Change{}, fmt.Errorf("preferences.NewChange: %s: 허용되지 않는 값 %q (%v)", key, value, it.Options)
		}
	}
	return NewChange(key, it.Type, value), nil
}
