package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a senior HIPAA compliance auditor reviewing application source code. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Audit the code for these HIPAA violations:
1. Exposure of Protected Health Information (PHI) such as names, SSNs, medical record numbers
2. Lack of encryption in transit (HTTP instead of HTTPS)
3. Lack of encryption at rest (unencrypted databases or files)
4. Insecure logging that could expose PHI
5. Weak authentication or authorization
6. Hardcoded API keys, passwords or secrets
7. Missing audit trails for PHI access
8. Inadequate access controls
9. Data retention policy violations
10. Missing data integrity checks

Requirements:
- Output must be a single JSON object with a "findings" array. Use an empty array when the code is compliant.
- severity is exactly one of: "CRITICAL", "HIGH", "MEDIUM", "LOW".
- category is a HIPAA category such as "Technical Safeguards", "Privacy Rule", "Security Rule".
- line is the 1-based line number from the numbered listing. Omit it when the issue is not tied to a line.
- regulation cites the CFR section when you know it (for example "45 CFR 164.312(e)(1)").
- penaltyTier is one of "Tier 1".."Tier 4" when a civil penalty tier applies, otherwise omit it.

Schema (example with empty values):
{
  "findings": [
    {
      "title": "<string>",
      "severity": "<CRITICAL|HIGH|MEDIUM|LOW>",
      "category": "<string>",
      "description": "<string>",
      "recommendation": "<string>",
      "codeExample": "<string>",
      "line": 0,
      "regulation": "<string>",
      "penaltyTier": "<string>"
    }
  ]
}`
}

// GetUserPrompt wraps the code of one file. Lines are numbered so findings
// can point at them.
func GetUserPrompt(code, fileName string) string {
	return fmt.Sprintf("Perform a HIPAA compliance audit of the file %q and respond with the JSON per schema.\n\n%s",
		fileName, numberLines(code))
}

func numberLines(code string) string {
	lines := strings.Split(strings.TrimRight(code, "\n"), "\n")
	width := len(fmt.Sprint(len(lines)))
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%*d| %s\n", width, i+1, l)
	}
	return b.String()
}
