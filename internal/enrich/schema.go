package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/internal/model"
)

// pageSchema guides Firecrawl's structured extraction on product sites.
var pageSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Product name"},
    "short_description": {"type": "string", "description": "One-sentence summary, at most 160 characters"},
    "description": {"type": "string", "description": "Two to four paragraph description of what the product does"},
    "features": {"type": "array", "items": {"type": "string"}, "description": "Key capabilities"},
    "use_cases": {"type": "array", "items": {"type": "string"}, "description": "Who uses it and for what"},
    "pricing_model": {"type": "string", "enum": ["UNKNOWN", "FREE", "FREEMIUM", "PAID", "ENTERPRISE", "CONTACT"]}
  },
  "required": ["name", "short_description"]
}`)

const pagePrompt = "Extract the AI agent product described by this page. " +
	"Use only information present on the page; leave fields empty when the page does not say."

// listingSchema guides extraction of the underlying product URL from an
// aggregator listing page.
var listingSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "product_url": {"type": "string", "description": "The official website of the product this listing describes, not the aggregator's own pages"},
    "product_name": {"type": "string"},
    "confidence": {"type": "number", "description": "How certain the product_url is the official site, 0 to 1"}
  },
  "required": ["product_url", "confidence"]
}`)

const listingPrompt = "This is a listing page on a directory of AI tools. " +
	"Find the official website of the listed product."

// pageExtraction mirrors pageSchema.
type pageExtraction struct {
	Name             string   `json:"name"`
	ShortDescription string   `json:"short_description"`
	Description      string   `json:"description"`
	Features         []string `json:"features"`
	UseCases         []string `json:"use_cases"`
	PricingModel     string   `json:"pricing_model"`
}

// listingExtraction mirrors listingSchema.
type listingExtraction struct {
	ProductURL  string  `json:"product_url"`
	ProductName string  `json:"product_name"`
	Confidence  float64 `json:"confidence"`
}

// parsePageExtraction decodes structured extraction output into
// EnrichmentData. Missing or unknown pricing falls back to UNKNOWN;
// a missing name is an error because the directory cannot list an
// unnamed product.
func parsePageExtraction(raw json.RawMessage, fallbackName string) (*model.EnrichmentData, error) {
	var pe pageExtraction
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &pe); err != nil {
			return nil, eris.Wrap(err, "enrich: decode page extraction")
		}
	}

	name := strings.TrimSpace(pe.Name)
	if name == "" {
		name = strings.TrimSpace(fallbackName)
	}
	if name == "" {
		return nil, eris.New("enrich: extraction produced no product name")
	}

	pricing := model.PricingUnknown
	if model.ValidPricingModel(pe.PricingModel) {
		pricing = model.PricingModel(pe.PricingModel)
	}

	short := strings.TrimSpace(pe.ShortDescription)
	if len(short) > 160 {
		short = short[:157] + "..."
	}

	return &model.EnrichmentData{
		Name:             name,
		ShortDescription: short,
		Description:      strings.TrimSpace(pe.Description),
		Features:         trimAll(pe.Features),
		UseCases:         trimAll(pe.UseCases),
		PricingModel:     pricing,
	}, nil
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
