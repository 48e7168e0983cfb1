// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package triage implements the cheap checks that short-circuit a question
// before any provider call: greetings get a canned welcome, and questions
// too vague to answer get a clarification prompt.
package triage

import (
	"regexp"
	"strings"
)

var greetings = []string{
	"hi", "hello", "hey", "namaste",
	"good morning", "good afternoon", "good evening",
}

var (
	genericLegalRx  = regexp.MustCompile(`help|law|legal|case|section|advise|advice|problem`)
	specificTokenRx = regexp.MustCompile(`\d{3,4}|article|section|ipc|crpc|contract|gst|divorce|bail|notice|rti|consumer|writ|fir`)
)

// IsGreeting reports whether text opens with a salutation.
func IsGreeting(text string) bool {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, g := range greetings {
		if strings.HasPrefix(s, g) {
			return true
		}
	}
	return false
}

// LooksVague reports whether text is too thin to answer: very short, or
// generic legal words with no specific statute, section or number token.
func LooksVague(text string) bool {
	s := strings.ToLower(text)
	if len(s) < 6 {
		return true
	}
	return genericLegalRx.MatchString(s) && !specificTokenRx.MatchString(s)
}

// GreetingReply builds the canned welcome for mode.
func GreetingReply(mode string) string {
	suggestions := []string{
		"How to draft a basic rent agreement?",
		"What is Article 21 and why is it important?",
		"Process to file a consumer complaint online",
		"Bail basics: types and common conditions",
	}

	var lines []string
	if mode == "lawyer" {
		lines = append(lines,
			"👋 Ready for research. Paste facts or provisions.",
			`Try: "Key Supreme Court cases on anticipatory bail (Section 438 CrPC)"`,
		)
	} else {
		lines = append(lines,
			"👋 I can explain legal topics in simple language.",
			`Try: "How to send a legal notice for unpaid salary?"`,
		)
	}
	lines = append(lines, "", "Popular:")
	for _, s := range suggestions {
		lines = append(lines, "• "+s)
	}
	return strings.Join(lines, "\n")
}

// ClarifyReply builds the follow-up questions shown for a vague question.
func ClarifyReply(mode string) string {
	var followups []string
	if mode == "lawyer" {
		followups = []string{
			"Jurisdiction & forum?",
			"Relevant statutes/sections (if known)?",
			"Timeline or key facts (brief)?",
		}
	} else {
		followups = []string{
			"Which city/state applies?",
			"Is this civil (money/contract) or criminal?",
			"Any deadlines or documents already filed?",
		}
	}

	lines := []string{"I can help better with a bit more detail:"}
	for _, f := range followups {
		lines = append(lines, "• "+f)
	}
	lines = append(lines, "",
		`Or ask something like: "Steps to file police complaint for lost documents in Delhi."`)
	return strings.Join(lines, "\n")
}

// MissingFactsReply asks for the specific facts still needed before a
// document-drafting question can be answered.
func MissingFactsReply(missing []string) string {
	lines := []string{"Before I answer, I need a couple of details:"}
	for _, m := range missing {
		lines = append(lines, "• "+m)
	}
	return strings.Join(lines, "\n")
}
