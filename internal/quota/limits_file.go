package quota

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"hearth/pkg/domain"
)

// planFile is the YAML shape of an operator supplied plan table:
//
//	plans:
//	  FREE:
//	    limits: {members: 3, tasks: 50}
//	    features: []
//	  PREMIUM:
//	    limits: {members: -1}
//	    features: [employees, receipt_scanning]
type planFile struct {
	Plans map[string]struct {
		Limits   map[string]int `yaml:"limits"`
		Features []string       `yaml:"features"`
	} `yaml:"plans"`
}

// ParsePlanTable builds a Table from YAML. Every plan must be known, FREE
// must be present since it is the fallback, and ceilings are >= -1.
func ParsePlanTable(data []byte) (*Table, error) {
	var f planFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode plan table: %w", err)
	}

	plans := make(map[domain.Plan]PlanLimits, len(f.Plans))
	for rawPlan, entry := range f.Plans {
		plan, ok := domain.ParsePlan(rawPlan)
		if !ok {
			return nil, fmt.Errorf("unknown plan %q", rawPlan)
		}
		ceilings := make(map[ResourceKind]int, len(entry.Limits))
		for rawKind, n := range entry.Limits {
			kind, ok := ParseResourceKind(rawKind)
			if !ok {
				return nil, fmt.Errorf("plan %s: unknown resource %q", plan, rawKind)
			}
			if n < Unlimited {
				return nil, fmt.Errorf("plan %s: %s ceiling must be -1 or more", plan, kind)
			}
			ceilings[kind] = n
		}
		features := make(map[Feature]bool, len(entry.Features))
		for _, raw := range entry.Features {
			feature, ok := parseFeature(raw)
			if !ok {
				return nil, fmt.Errorf("plan %s: unknown feature %q", plan, raw)
			}
			features[feature] = true
		}
		plans[plan] = NewPlanLimits(ceilings, features)
	}
	if _, ok := plans[domain.PlanFree]; !ok {
		return nil, fmt.Errorf("plan table must define %s", domain.PlanFree)
	}
	return NewTable(plans), nil
}

// LoadPlanTable reads path, or returns DefaultPlanLimits when path is empty.
func LoadPlanTable(path string) (*Table, error) {
	if path == "" {
		return DefaultPlanLimits(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan table: %w", err)
	}
	return ParsePlanTable(data)
}

func parseFeature(s string) (Feature, bool) {
	switch f := Feature(s); f {
	case FeatureEmployees, FeatureReceiptScan, FeatureSharedCalendar:
		return f, true
	}
	return "", false
}
