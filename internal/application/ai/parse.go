package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	domai "github.com/bryanwahyu/phiguard/internal/domain/ai"
	"github.com/bryanwahyu/phiguard/internal/domain/scans"
)

var errMissingFindings = errors.New("malformed oracle response: missing findings array")

// models sometimes wrap the array in prose or code fences
var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

// rawFinding is the wire shape requested by the audit prompt.
type rawFinding struct {
	Title          string  `json:"title"`
	Severity       string  `json:"severity"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation"`
	CodeExample    string  `json:"codeExample"`
	File           string  `json:"file"`
	Line           flexInt `json:"line"`
	Regulation     string  `json:"regulation"`
	PenaltyTier    string  `json:"penaltyTier"`
}

// flexInt accepts 12, 12.0 or "12". Fractions, values past MaxInt32 and
// anything else decode to 0 (line absent).
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	*n = 0
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	*n = flexInt(f)
	return nil
}

// ParseFindings validates an oracle answer against the finding schema.
// Entries without a title or with an unknown severity are dropped and counted
// in rejected. IDs are not assigned here.
func ParseFindings(raw string) (findings []scans.Finding, rejected int, err error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, 0, domai.ErrEmptyResponse
	}

	items, err := extractItems(text)
	if err != nil {
		return nil, 0, err
	}

	findings = make([]scans.Finding, 0, len(items))
	for _, item := range items {
		var rf rawFinding
		if err := json.Unmarshal(item, &rf); err != nil {
			rejected++
			continue
		}
		sev, ok := scans.ParseSeverity(rf.Severity)
		if !ok || strings.TrimSpace(rf.Title) == "" {
			rejected++
			continue
		}
		f := scans.Finding{
			Title:          strings.TrimSpace(rf.Title),
			Severity:       sev,
			Category:       rf.Category,
			Description:    rf.Description,
			Recommendation: rf.Recommendation,
			CodeExample:    rf.CodeExample,
			File:           rf.File,
			Regulation:     rf.Regulation,
			PenaltyTier:    rf.PenaltyTier,
		}
		if rf.Line > 0 {
			f.Line = int(rf.Line)
		}
		findings = append(findings, f)
	}
	return findings, rejected, nil
}

// extractItems accepts either a bare JSON array or an object with a
// "findings" array (JSON-object response mode). A valid object without that
// array is malformed, never an empty result.
func extractItems(text string) ([]json.RawMessage, error) {
	if strings.HasPrefix(text, "{") {
		var obj struct {
			Findings *[]json.RawMessage `json:"findings"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			if obj.Findings == nil {
				return nil, errMissingFindings
			}
			return *obj.Findings, nil
		}
	}

	candidate := text
	if m := jsonArray.FindString(text); m != "" {
		candidate = m
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &items); err != nil {
		return nil, fmt.Errorf("malformed oracle response: %w", err)
	}
	return items, nil
}
