// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prompts holds the system instructions and fixed response text for
// both operating modes.
package prompts

import "time"

const SystemPromptCitizen = `You are a friendly legal explainer for regular citizens.
Style: simple words, short paragraphs, step-by-step, no legalese.
Add a brief "Not legal advice" line at the end.
If the question is vague or incomplete, ask 1-2 short clarifying questions before answering.
Keep answers within 8-12 sentences unless asked for depth.`

const SystemPromptLawyer = `You are a precise legal research assistant for lawyers.
Output sections:
1) Issues
2) Rules/Authorities (cite provisions/cases concisely)
3) Analysis (tight, bullet-y)
4) Practical Notes
If the question lacks key facts, ask targeted clarifying questions first.
Limit to 12-16 sentences unless asked to expand.`

// Disclaimer is appended to citizen-mode answers only.
const Disclaimer = "⚠️ Informational only — not a substitute for advice from a licensed advocate."

// SystemFor returns the system prompt for mode, defaulting to citizen.
func SystemFor(mode string) string {
	if mode == "lawyer" {
		return SystemPromptLawyer
	}
	return SystemPromptCitizen
}

// GreetingFor returns a time-of-day salutation for the given zone,
// falling back to "Hello" when the zone is empty or unknown.
// LoadLocation treats "" as UTC, so the empty case is checked first.
func GreetingFor(timezone string) string {
	if timezone == "" {
		return "Hello"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "Hello"
	}
	switch hr := time.Now().In(loc).Hour(); {
	case hr >= 5 && hr < 12:
		return "Good morning"
	case hr >= 12 && hr < 17:
		return "Good afternoon"
	case hr >= 17 && hr < 22:
		return "Good evening"
	default:
		return "Hello"
	}
}
