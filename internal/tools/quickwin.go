package tools

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/parakeetchat/parakeet/internal/log"
)

// ReportTypes are the quick-win report variants the tool can generate.
var ReportTypes = []string{
	"ICP Check",
	"Brand Reputation Snapshot",
	"Overhead Check",
	"CRO Assessment",
	"Sales Tips",
	"AI in your Industry",
	"SEO Opportunities Report",
	"Weak CTA Detector",
	"AI Sales Playbook",
}

// reportFocus steers the shared report prompt per type.
var reportFocus = map[string]string{
	"ICP Check":                 "who the company's ideal customer profile appears to be and whether their messaging targets it",
	"Brand Reputation Snapshot": "how the company's brand comes across and where trust signals are missing",
	"Overhead Check":            "manual processes visible on the site that automation could remove",
	"CRO Assessment":            "conversion blockers on the page and concrete fixes",
	"Sales Tips":                "three sales plays tailored to how this company sells",
	"AI in your Industry":       "where AI is already changing this company's industry and where they could apply it",
	"SEO Opportunities Report":  "on-page SEO gaps and quick-win keyword opportunities",
	"Weak CTA Detector":         "weak or missing calls to action and stronger replacements",
	"AI Sales Playbook":         "an AI-assisted outbound playbook for this company's market",
}

const reportSystemPrompt = `You are a senior growth consultant producing a short, concrete analysis from a company's homepage. Be specific to what the page actually shows. Use plain prose with short sections. Keep it under 400 words.`

// placeholderPattern rejects values the model invented instead of asking the
// user.
var placeholderPattern = regexp.MustCompile(`(?i)^(unknown|n/a|none|tbd|placeholder|example|test)$`)

// maxPageChars bounds the scraped content passed to the model.
const maxPageChars = 12000

type quickWinInput struct {
	ReportType  string `json:"reportType" jsonschema_description:"Type of quick win report to generate"`
	CompanyName string `json:"companyName" jsonschema_description:"The actual company name as provided by the user. NEVER guess or use placeholder values."`
	CompanyURL  string `json:"companyUrl" jsonschema_description:"The actual company website URL as provided by the user (must start with https://). NEVER guess or use placeholder values."`
}

// registerQuickWinTool defines the report-generation tool: fetch the
// company's homepage, extract the readable content, and generate a short
// strategic analysis. Fetch plus generation can take 15-30s.
func registerQuickWinTool(g *genkit.Genkit, s *scraper, generate TextGenerator, logger log.Logger) ai.Tool {
	return genkit.DefineTool(
		g, NameGenerateQuickWin,
		"Run a Quick Win workflow to generate a short strategic analysis for a company. IMPORTANT: You MUST ask the user for their company name AND website URL before calling this tool. NEVER use placeholder values like \"Unknown\" - always get real input from the user first.",
		func(ctx *ai.ToolContext, input quickWinInput) (string, error) {
			focus, ok := reportFocus[input.ReportType]
			if !ok {
				return "", fmt.Errorf("unknown report type %q (available: %s)",
					input.ReportType, strings.Join(ReportTypes, ", "))
			}
			if err := validateCompanyInput(input); err != nil {
				return "", err
			}

			page, err := s.Fetch(ctx, input.CompanyURL)
			if err != nil {
				return "", fmt.Errorf("failed to fetch company homepage: %w", err)
			}

			logger.Info("generating quick win report",
				"report_type", input.ReportType,
				"company", input.CompanyName)

			report, err := generate(ctx, reportSystemPrompt, reportPrompt(input, focus, page))
			if err != nil {
				return "", fmt.Errorf("report generation failed: %w", err)
			}
			return report, nil
		},
	)
}

func validateCompanyInput(input quickWinInput) error {
	name := strings.TrimSpace(input.CompanyName)
	if len(name) < 2 || placeholderPattern.MatchString(name) {
		return fmt.Errorf("company name must be provided by the user, not a placeholder")
	}
	if placeholderPattern.MatchString(strings.TrimSpace(input.CompanyURL)) {
		return fmt.Errorf("company URL must be provided by the user, not a placeholder")
	}
	return nil
}

func reportPrompt(input quickWinInput, focus string, page *Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s report for the following company, focused on %s.\n\n", input.ReportType, focus)
	fmt.Fprintf(&b, "Company Name: %s\nCompany URL: %s\n\n", input.CompanyName, input.CompanyURL)
	fmt.Fprintf(&b, "Page title: %s\n", page.Title)
	if page.Description != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", page.Description)
	}
	b.WriteString("\nHomepage content:\n\n")
	b.WriteString(truncate(page.Content, maxPageChars))
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
