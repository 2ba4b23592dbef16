package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/callguard/internal/model"
)

// indicatorCues describes what the model should listen for per indicator.
var indicatorCues = map[model.IndicatorID]string{
	model.IndicatorImpersonation: "Caller claims to be from bank, government, police, or trusted organization",
	model.IndicatorUrgency:       `Creating false urgency like "act now", "immediate action required", "your account will be blocked"`,
	model.IndicatorEmotional:     "Using fear, excitement, sympathy to manipulate (threats, prizes, emergencies)",
	model.IndicatorAuthority:     "Claiming legal authority, threatening arrest, legal action, or fines",
	model.IndicatorOTPRequest:    "Asking for OTP, PIN, CVV, password, or any sensitive codes",
	model.IndicatorMoneyRequest:  "Requesting money transfer, gift cards, UPI payment, or bank details",
	model.IndicatorVoicePattern:  "Scripted speech, background noise suggesting call center, multiple people coaching",
}

// buildSystemPrompt lists the catalog and the response contract. language is
// the display name (or code) of the locale guidance should be written in.
func buildSystemPrompt(language string) string {
	var indicators strings.Builder
	for i, def := range model.Catalog() {
		fmt.Fprintf(&indicators, "%d. %s - %s\n", i+1, def.ID, indicatorCues[def.ID])
	}

	return fmt.Sprintf(`You are an expert scam detection AI. Analyze the following phone conversation transcript and detect scam indicators.

Analyze for these specific scam patterns:
%s
Respond ONLY with valid JSON in this exact format:
{
  "riskLevel": "low" | "medium" | "high",
  "riskScore": 0-100,
  "indicators": [
    {
      "id": "impersonation",
      "type": "impersonation",
      "detected": true/false,
      "confidence": 0.0-1.0,
      "evidence": "brief quote or description from transcript"
    }
  ],
  "guidance": ["action item 1", "action item 2"]
}

Guidelines for scoring:
- low (0-30): Normal conversation, no suspicious patterns
- medium (31-60): Some suspicious patterns, proceed with caution
- high (61-100): Multiple red flags, likely scam, end call immediately

Provide guidance in the user's language (%s). Be specific and actionable.`, indicators.String(), language)
}

func buildUserPrompt(transcript string) string {
	return "Analyze this phone conversation transcript for scam indicators:\n\n" + transcript
}
