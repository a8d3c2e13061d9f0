package strategy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// 中文说明：
// profile 是策略参数的热更新通道：权重与阈值写在独立的 YAML 文件里，
// 加载前先过 JSON Schema 校验，拒绝畸形输入，避免坏 profile 污染在跑的策略。

const profileSchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "weights": {
      "type": "object",
      "additionalProperties": {"type": "number", "minimum": 0, "maximum": 1}
    },
    "fusion_threshold": {"type": "number", "exclusiveMinimum": 0, "maximum": 2},
    "basic_threshold": {"type": "number", "exclusiveMinimum": 0, "maximum": 2},
    "confluence_bonus": {"type": "number", "minimum": 0, "maximum": 0.5},
    "volatility_ceiling": {"type": "number", "exclusiveMinimum": 0},
    "high_confidence_override": {"type": "number", "exclusiveMinimum": 0, "maximum": 1}
  }
}`

var profileSchema = jsonschema.MustCompileString("profile.json", profileSchemaJSON)

// Profile 是可被热更新的参数子集，零值字段表示保持现状。
type Profile struct {
	Weights                map[string]float64 `yaml:"weights"`
	FusionThreshold        float64            `yaml:"fusion_threshold"`
	BasicThreshold         float64            `yaml:"basic_threshold"`
	ConfluenceBonus        float64            `yaml:"confluence_bonus"`
	VolatilityCeiling      float64            `yaml:"volatility_ceiling"`
	HighConfidenceOverride float64            `yaml:"high_confidence_override"`
}

// LoadProfile 读取并校验 profile 文件。
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile failed: %w", err)
	}
	return ParseProfile(raw)
}

func ParseProfile(raw []byte) (*Profile, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("profile is not valid yaml: %w", err)
	}
	// schema 校验走 JSON 类型体系，先把 yaml 值转一道
	jsonBytes, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("profile normalize failed: %w", err)
	}
	var jsonValue any
	if err := json.Unmarshal(jsonBytes, &jsonValue); err != nil {
		return nil, fmt.Errorf("profile normalize failed: %w", err)
	}
	if err := profileSchema.Validate(jsonValue); err != nil {
		return nil, fmt.Errorf("profile rejected by schema: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("profile decode failed: %w", err)
	}
	return &p, nil
}

// Apply 把 profile 覆盖到现有参数上，返回新参数。覆盖后仍需满足
// fusion 阈值高于 basic 阈值的约束。
func (p *Profile) Apply(params Params) (Params, error) {
	out := params
	if len(p.Weights) > 0 {
		merged := make(map[string]float64, len(params.Weights))
		for k, v := range params.Weights {
			merged[k] = v
		}
		for k, v := range p.Weights {
			merged[k] = v
		}
		out.Weights = merged
	}
	if p.FusionThreshold > 0 {
		out.FusionThreshold = p.FusionThreshold
	}
	if p.BasicThreshold > 0 {
		out.BasicThreshold = p.BasicThreshold
	}
	if p.ConfluenceBonus > 0 {
		out.ConfluenceBonus = p.ConfluenceBonus
	}
	if p.VolatilityCeiling > 0 {
		out.VolatilityCeiling = p.VolatilityCeiling
	}
	if p.HighConfidenceOverride > 0 {
		out.HighConfidenceOverride = p.HighConfidenceOverride
	}
	if out.FusionThreshold <= out.BasicThreshold {
		return params, fmt.Errorf("profile leaves fusion threshold %.2f at or below basic threshold %.2f",
			out.FusionThreshold, out.BasicThreshold)
	}
	return out, nil
}
