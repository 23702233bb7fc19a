package extract

import "github.com/ttb-tools/labelcheck/pkg/anthropic"

// systemPrompt frames the model as a TTB label examiner and spells out what
// each structured field must and must not contain.
const systemPrompt = `You are a TTB (Alcohol and Tobacco Tax and Trade Bureau) label compliance expert. You are examining a photograph of an alcohol beverage label.

Extract ALL visible text from the label and organize it into the structured fields provided. Pay special attention to:

1. GOVERNMENT WARNING: Look for the mandatory health warning statement. Assess whether "GOVERNMENT WARNING:" appears in ALL CAPITALS and whether it appears BOLD (heavier weight than surrounding text). Assess whether the body text of the warning is NOT bold. Assess whether the warning appears visually separate from other label text.

2. Brand name: The primary commercial brand name of the product — typically the largest or most prominent text. Do NOT include sub-brand names, line names, or fanciful names (e.g., on a label with "JACKSE" as the brand and "Ghost Story" as a line name, extract only "JACKSE"). Do NOT include "Reserve", "Estate", "Select", etc. unless they are part of the core brand name.

3. Class/type: The TTB class or type designation — the legally required category of the beverage (e.g., "Kentucky Straight Bourbon Whiskey", "Cabernet Sauvignon", "India Pale Ale"). Do NOT include fanciful names, sub-brands, vineyard names, or marketing terms like "Reserve", "Estate Bottled", "Ghost Story", etc. Extract ONLY the regulatory class/type.

4. Alcohol content: The alcohol by volume statement. Common formats include "40% ALC/VOL", "Alc. 14.1% by Vol.", "13.5% ALC. BY VOL.", "ABV 5.0%". Extract the FULL statement exactly as printed, including any "Alc.", "by Vol.", "Proof" text.

5. Net contents: Volume statement (e.g., "750 mL", "12 FL OZ"). This may appear on any part of the label, or may not be visible if only one panel is shown. Set to null ONLY if genuinely not visible anywhere on the label.

6. Producer/bottler: Name and address of the responsible party. On wine labels this is often indicated by "Produced by", "Bottled by", "Estate Bottled", "Vinted by", etc. If no explicit prefix is present, the vineyard or estate name (e.g., "Jackse Estate Vineyard") IS the producer name, and the city/region below it (e.g., "St. Helena, Napa Valley") IS the producer address. Do NOT return null if this information is present in any form.

7. Country of origin: If visible (required for imported products).

8. Appellation of origin: For wines, the geographic designation (e.g., "Napa Valley"). Note: the same location text may serve as both appellation and producer address — extract it for BOTH fields.

9. Vintage year: For wines, the harvest year if shown.

10. Sulfites declaration: "Contains Sulfites" if present.

If a field is not visible or readable on the label, set it to null.
Set your confidence to 'low' if the image is blurry, partially obscured, or at a severe angle.
Add relevant notes about image quality issues in rawNotes.`

const toolName = "record_label_data"

func nullableString(desc string) map[string]any {
	return map[string]any{
		"type":        []string{"string", "null"},
		"description": desc,
	}
}

// labelTool forces the model to return label data as a structured tool
// invocation instead of free text.
var labelTool = anthropic.Tool{
	Name:        toolName,
	Description: "Record all extracted data from the alcohol beverage label image",
	InputSchema: anthropic.ToolInputSchema{
		Properties: map[string]any{
			"brandName": nullableString(
				"The primary brand name only (the largest/most prominent commercial name). Exclude sub-brands, line names, fanciful names, and terms like 'Reserve' or 'Estate'."),
			"classTypeDesignation": nullableString(
				"The TTB regulatory class/type designation ONLY (e.g., 'Cabernet Sauvignon', 'Kentucky Straight Bourbon Whiskey', 'India Pale Ale'). Exclude fanciful names, sub-brands, vineyard names, and marketing terms."),
			"alcoholContent": nullableString(
				"The full alcohol content statement exactly as printed (e.g., '40% ALC/VOL', 'Alc. 14.1% by Vol.', '90 Proof'). Include surrounding text like 'Alc.', 'by Vol.', 'Proof'."),
			"netContents": nullableString(
				"The net contents / volume statement (e.g., '750 mL', '12 FL OZ'). Null only if not visible on this label panel."),
			"producerName": nullableString(
				"The name of the producer, bottler, distiller, importer, or estate/vineyard. On wine labels, the vineyard or estate name (e.g. 'Jackse Estate Vineyard') counts as the producer name even without a 'Produced by' prefix."),
			"producerAddress": nullableString(
				"The address of the producer/bottler. On wine labels, the city and region (e.g. 'St. Helena, Napa Valley') counts as the producer address even if it also serves as the appellation."),
			"countryOfOrigin": nullableString(
				"Country of origin if stated on the label"),
			"appellation": nullableString(
				"Appellation of origin for wines — the geographic designation (e.g., 'Napa Valley', 'St. Helena, Napa Valley', 'Willamette Valley'). The same text may also serve as the producer address."),
			"vintageYear": nullableString(
				"The vintage/harvest year for wines (e.g., '2012', '2019'). Extract the four-digit year even if it is not explicitly labeled 'Vintage'."),
			"governmentWarning": map[string]any{
				"type":        "object",
				"description": "Government Health Warning Statement analysis",
				"properties": map[string]any{
					"present": map[string]any{
						"type":        "boolean",
						"description": "Whether a Government Warning statement is present",
					},
					"fullText": nullableString(
						"The complete text of the warning statement as it appears on the label"),
					"governmentWarningInCaps": map[string]any{
						"type":        "boolean",
						"description": `Whether "GOVERNMENT WARNING:" appears in all capital letters`,
					},
					"governmentWarningAppearsBold": map[string]any{
						"type":        "boolean",
						"description": `Whether "GOVERNMENT WARNING:" appears in bold/heavier type weight`,
					},
					"bodyTextAppearsBold": map[string]any{
						"type":        "boolean",
						"description": "Whether the body text after GOVERNMENT WARNING: appears bold (should be false for compliance)",
					},
					"separateFromOtherText": map[string]any{
						"type":        "boolean",
						"description": "Whether the warning statement appears visually separate and apart from other label text",
					},
				},
				"required": []string{
					"present",
					"fullText",
					"governmentWarningInCaps",
					"governmentWarningAppearsBold",
					"bodyTextAppearsBold",
					"separateFromOtherText",
				},
			},
			"sulfitesDeclaration": nullableString(
				"'Contains Sulfites' declaration if present"),
			"additionalText": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Any other notable text found on the label not captured in other fields",
			},
			"confidence": map[string]any{
				"type":        "string",
				"enum":        []string{"high", "medium", "low"},
				"description": "Confidence level in the extraction based on image quality",
			},
			"rawNotes": map[string]any{
				"type":        "string",
				"description": "Notes about image quality, readability issues, or other observations",
			},
		},
		Required: []string{
			"brandName",
			"classTypeDesignation",
			"alcoholContent",
			"netContents",
			"producerName",
			"producerAddress",
			"countryOfOrigin",
			"appellation",
			"vintageYear",
			"governmentWarning",
			"sulfitesDeclaration",
			"additionalText",
			"confidence",
			"rawNotes",
		},
	},
}
