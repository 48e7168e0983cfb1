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

// Topic is the closed taxonomy used only for change detection.
type Topic string

const (
	TopicRentAgreement Topic = "rent_agreement"
	TopicLegalNotice   Topic = "legal_notice"
	TopicConsumer      Topic = "consumer"
	TopicConstitution  Topic = "constitution"
	TopicCriminal      Topic = "criminal"
	TopicCaseLaw       Topic = "case_law"
	TopicOther         Topic = "other"
)

// topicRule pairs a topic with the pattern that claims it. Rules are applied
// in order; the first match wins.
type topicRule struct {
	topic Topic
	rx    *regexp.Regexp
}

var topicRules = []topicRule{
	{TopicRentAgreement, regexp.MustCompile(`\b(rent|rental|lease|tenan\w*|landlord)\b`)},
	{TopicLegalNotice, regexp.MustCompile(`\b(legal\s+notice|notice\s+period|cease\s+and\s+desist)\b`)},
	{TopicConsumer, regexp.MustCompile(`\b(consumer|refund|warranty|defective|e-?commerce)\b`)},
	{TopicConstitution, regexp.MustCompile(`\b(constitution\w*|article\s+\d+|fundamental\s+rights?|writ)\b`)},
	{TopicCriminal, regexp.MustCompile(`\b(fir|bail|ipc|crpc|arrest\w*|criminal|police)\b`)},
	{TopicCaseLaw, regexp.MustCompile(`\b(judgment|case\s+law|precedent|supreme\s+court|high\s+court)\b`)},
}

// DetectTopic classifies text into the topic taxonomy. Unmatched text is
// TopicOther. The function is pure and never fails.
func DetectTopic(text string) Topic {
	s := strings.ToLower(text)
	for _, rule := range topicRules {
		if rule.rx.MatchString(s) {
			return rule.topic
		}
	}
	return TopicOther
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Jaccard computes token-set similarity between two texts: lowercased,
// punctuation stripped, whitespace tokenized, tokens shorter than three
// characters dropped. Returns 0 when both token sets are empty.
func Jaccard(a, b string) float64 {
	setA := tokens(a)
	setB := tokens(b)

	union := len(setA)
	inter := 0
	for tok := range setB {
		if _, ok := setA[tok]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokens(text string) map[string]struct{} {
	cleaned := nonAlnum.ReplaceAllString(strings.ToLower(text), "")
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) > 2 {
			set[tok] = struct{}{}
		}
	}
	return set
}
