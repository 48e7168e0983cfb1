// Copyright (C) 2025 LawMitra (dev@lawmitra.in)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package contextmem

import (
	"regexp"
	"strings"
)

// Intent is the closed set of document intents the pipeline understands.
type Intent string

const (
	IntentRentAgreement Intent = "rent_agreement"
	IntentLegalNotice   Intent = "legal_notice"
	IntentOther         Intent = "other"
)

var indianStates = []string{
	"andhra pradesh", "arunachal pradesh", "assam", "bihar", "chhattisgarh", "goa",
	"gujarat", "haryana", "himachal pradesh", "jharkhand", "karnataka", "kerala",
	"madhya pradesh", "maharashtra", "manipur", "meghalaya", "mizoram", "nagaland",
	"odisha", "punjab", "rajasthan", "sikkim", "tamil nadu", "telangana", "tripura",
	"uttar pradesh", "uttarakhand", "west bengal", "delhi", "jammu and kashmir",
	"ladakh", "puducherry", "chandigarh", "dadra and nagar haveli", "daman and diu",
	"andaman and nicobar islands", "lakshadweep",
}

var (
	rentIntentRx   = regexp.MustCompile(`\brent\s+agreement\b|\brental\s+agreement\b|\blease\s+agreement\b`)
	noticeIntentRx = regexp.MustCompile(`\blegal\s+notice\b`)
	placeRx        = regexp.MustCompile(`\b(?:in|at|within)\s+([a-zA-Z][a-zA-Z\s]{1,29})\b`)
	delhiRx        = regexp.MustCompile(`\bdelhi\b`)
)

// propertyWords maps property kinds to the words that imply them, applied in
// order with first match winning.
var propertyWords = []struct {
	kind string
	rx   *regexp.Regexp
}{
	{"house", regexp.MustCompile(`\b(house|villa|independent\s+house|residential)\b`)},
	{"apartment", regexp.MustCompile(`\b(apartment|flat|condo)\b`)},
	{"shop", regexp.MustCompile(`\b(shop|storefront|commercial)\b`)},
	{"office", regexp.MustCompile(`\b(office|workspace)\b`)},
	{"land", regexp.MustCompile(`\b(land|plot|site)\b`)},
}

// ExtractFacts pulls structured facts out of a raw question. Each fact is
// matched independently and simply omitted when absent; extraction never
// fails, it only yields fewer facts.
func ExtractFacts(text string) Facts {
	s := strings.ToLower(text)
	var facts Facts

	switch {
	case rentIntentRx.MatchString(s):
		facts.Intent = IntentRentAgreement
	case noticeIntentRx.MatchString(s):
		facts.Intent = IntentLegalNotice
	}

	if m := placeRx.FindStringSubmatch(s); m != nil {
		place := strings.TrimSpace(m[1])
		if isState(place) {
			facts.State = title(place)
		} else {
			facts.City = title(place)
		}
	}
	if facts.City == "" && delhiRx.MatchString(s) {
		facts.City = "Delhi"
	}
	if facts.State == "" {
		for _, st := range indianStates {
			if strings.Contains(s, st) {
				facts.State = title(st)
				break
			}
		}
	}

	for _, pw := range propertyWords {
		if pw.rx.MatchString(s) {
			facts.Property = pw.kind
			break
		}
	}

	return facts
}

// RequiredFacts lists the fields still missing for the session's intent.
// An intent that drafts a location-specific document needs to know where and
// for what kind of property; other intents need nothing.
func RequiredFacts(c Context) []string {
	if c.Intent != IntentRentAgreement && c.Intent != IntentLegalNotice {
		return nil
	}
	var missing []string
	if c.City == "" && c.State == "" {
		missing = append(missing, "city or state")
	}
	if c.Property == "" && c.Intent == IntentRentAgreement {
		missing = append(missing, "property kind (house, apartment, shop, office, land)")
	}
	return missing
}

// Summary renders the known facts as a short line for prompt inclusion,
// empty when nothing is known.
func Summary(c Context) string {
	var parts []string
	switch c.Intent {
	case IntentRentAgreement:
		parts = append(parts, "Intent: Rent Agreement")
	case IntentLegalNotice:
		parts = append(parts, "Intent: Legal Notice")
	}
	if c.City != "" {
		parts = append(parts, "City: "+c.City)
	}
	if c.State != "" {
		parts = append(parts, "State/UT: "+c.State)
	}
	if c.Property != "" {
		parts = append(parts, "Property: "+title(c.Property))
	}
	return strings.Join(parts, " · ")
}

func isState(place string) bool {
	for _, st := range indianStates {
		if place == st {
			return true
		}
	}
	return false
}

// title uppercases the first letter of each word. Inputs come from the
// extraction vocabulary, which is ASCII.
func title(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
