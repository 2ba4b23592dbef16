package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/callguard/internal/common"
	"github.com/Veraticus/callguard/internal/model"
)

// wireAnalysis is the JSON shape the model is asked to produce.
type wireAnalysis struct {
	RiskLevel  string          `json:"riskLevel"`
	Indicators []wireIndicator `json:"indicators"`
	Guidance   []string        `json:"guidance"`
	RiskScore  float64         `json:"riskScore"`
}

type wireIndicator struct {
	ID         string  `json:"id"`
	Type       string  `json:"type"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Detected   bool    `json:"detected"`
}

// ExtractJSON isolates the JSON payload from free-form model output. A
// ```json fence wins over a bare fence; without fences the whole content is used.
func ExtractJSON(content string) string {
	if _, rest, ok := strings.Cut(content, "```json"); ok {
		body, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(body)
	}
	if _, rest, ok := strings.Cut(content, "```"); ok {
		body, _, _ := strings.Cut(rest, "```")
		return strings.TrimSpace(body)
	}
	return strings.TrimSpace(content)
}

// parseAnalysis decodes the model output into the wire shape.
func parseAnalysis(content string) (wireAnalysis, error) {
	var out wireAnalysis
	payload := ExtractJSON(content)
	if payload == "" {
		return out, fmt.Errorf("%w: empty payload", common.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	return out, nil
}

// reconcile maps parsed indicators onto the catalog. The result is in catalog
// order, unknown ids are dropped, the first of any duplicates wins, and
// missing ids are filled in as undetected.
func reconcile(parsed []wireIndicator) []model.IndicatorDetection {
	out := model.EmptyDetections()
	seen := make(map[model.IndicatorID]bool, len(parsed))

	for _, ind := range parsed {
		id := model.IndicatorID(strings.TrimSpace(ind.ID))
		if id == "" {
			id = model.IndicatorID(strings.TrimSpace(ind.Type))
		}
		idx := model.CatalogIndex(id)
		if idx < 0 || seen[id] {
			continue
		}
		seen[id] = true
		out[idx] = model.NewDetection(out[idx].IndicatorDefinition, ind.Detected, ind.Confidence, ind.Evidence)
	}

	return out
}
