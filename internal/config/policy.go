package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HoldPolicy задаёт срок удержания средств после приёмки в зависимости от уровня продавца.
type HoldPolicy struct {
	Default time.Duration
	Tiers   map[string]time.Duration
}

type holdPolicyFile struct {
	Default string            `yaml:"default"`
	Tiers   map[string]string `yaml:"tiers"`
}

// LoadHoldPolicy читает YAML вида:
//
//	default: 72h
//	tiers:
//	  top_rated: 24h
//	  new: 120h
//
// Пустой path означает политику только с дефолтом.
func LoadHoldPolicy(path string, fallback time.Duration) (*HoldPolicy, error) {
	policy := &HoldPolicy{Default: fallback, Tiers: map[string]time.Duration{}}
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: не удалось прочитать политику удержания %s: %w", path, err)
	}
	return ParseHoldPolicy(raw, fallback)
}

func ParseHoldPolicy(raw []byte, fallback time.Duration) (*HoldPolicy, error) {
	var file holdPolicyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("config: некорректный YAML политики удержания: %w", err)
	}

	policy := &HoldPolicy{Default: fallback, Tiers: make(map[string]time.Duration, len(file.Tiers))}
	if file.Default != "" {
		d, err := parseHold(file.Default)
		if err != nil {
			return nil, fmt.Errorf("config: default: %w", err)
		}
		policy.Default = d
	}
	for tier, v := range file.Tiers {
		d, err := parseHold(v)
		if err != nil {
			return nil, fmt.Errorf("config: tier %q: %w", tier, err)
		}
		policy.Tiers[normalizeTier(tier)] = d
	}
	return policy, nil
}

// HoldPeriod возвращает срок для уровня продавца; неизвестный уровень получает дефолт.
func (p *HoldPolicy) HoldPeriod(tier string) time.Duration {
	if d, ok := p.Tiers[normalizeTier(tier)]; ok {
		return d
	}
	return p.Default
}

func parseHold(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("срок удержания не может быть отрицательным: %s", v)
	}
	return d, nil
}

func normalizeTier(tier string) string {
	return strings.ToLower(strings.TrimSpace(tier))
}
