package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Reserved keyword groups scanned before any rubric scoring, in this
// order. First hit wins and zeroes the score.
const (
	GroupCXCritical   = "cx_critical"
	GroupCompCritical = "comp_critical"
	GroupBizCritical  = "biz_critical"
)

// DefaultKeywords is the built-in trigger dictionary. All phrases are
// lowercase; matching is case-insensitive substring containment against
// the concatenated agent text. Deployments can replace the whole map
// with a YAML file (keywords_path in config.yaml).
var DefaultKeywords = map[string][]string{
	"greetings": {
		"hello", "hi", "welcome", "good morning", "good afternoon", "good evening",
		"thank you for contacting", "thanks for contacting", "how can i help", "my name is",
		"chatting with", "pleasure to meet", "reaching out", "assist you today",
	},
	"empathy": {
		"sorry", "apologize", "understand", "regret", "unfortunate", "frustrating",
		"bear with me", "my apologies", "sorry for the inconvenience", "i assure you",
		"totally understand", "hear that", "must be difficult", "resolve this",
		"on the same page", "make this right", "trouble you are facing", "i realize",
	},
	"hold": {
		"hold", "moment", "check", "bear with me", "allow me to check", "look into this",
		"researching", "brief hold", "few minutes", "consult", "pull up", "accessing",
		"give me a second", "quick check", "grabbing that info", "double check",
	},
	"warranty": {
		"warranty", "care", "support", "accessory", "guarantee", "repair", "depot",
		"onsite", "accidental", "damage", "protection", "sealed battery", "keep your drive",
		"adp", "premier", "upgrade warranty", "warranty status", "entitlement",
		"base warranty", "smart performance", "extended",
	},
	"closing": {
		"anything else", "further", "assist you", "other questions", "help you with",
		"additional questions", "support you", "else i can do", "proceed with",
		"ready to", "secure this",
	},
	"prof_closing": {
		"thank", "bye", "wonderful day", "great day", "rest of your day", "take care",
		"goodbye", "appreciate your business", "thanks for choosing", "thanks for shopping",
	},
	"csat": {
		"survey", "feedback", "short survey", "rate", "experience", "email",
		"satisfaction", "how i did", "valued feedback", "fill out",
	},
	"discovery": {
		"?", "what", "how", "need", "looking for", "intend to use", "purpose",
		"usage", "budget", "preference", "screen size", "processor", "storage",
		"primary use", "work", "school", "gaming", "editing", "business", "student",
		"heavy", "light", "travel", "desktop",
	},
	GroupCXCritical: {
		"shut up", "idiot", "stupid", "dumb", "hate you", "don't care", "whatever",
		"ridiculous", "liar", "waste of time", "bullshit", "damn",
	},
	GroupCompCritical: {
		"credit card", "cvv", "card number", "expiry", "social security", "ssn",
		"password", "login credentials", "pwd",
	},
	GroupBizCritical: {
		"stacking", "unauthorized discount", "fake price",
	},
}

// CoachingTips maps criterion ids (and the critical groups) to canned
// remediation text shown alongside FAIL verdicts.
var CoachingTips = map[string]string{
	"greet":           "Start with a standard greeting: 'Thank you for contacting us, my name is...'",
	"empathy":         "Use empathy statements like 'I understand how frustrating this is' or 'I apologize for the delay'.",
	"discovery":       "Ask at least 2 probing questions (Who, What, Where, When, Why) to uncover customer needs.",
	"hold":            "Ask for permission before placing the customer on hold: 'May I place you on a brief hold?'",
	"warranty":        "Don't forget to mention Warranty upgrades or Accessories (ADP, Premium Support).",
	"addressed":       "Ensure you explicitly ask if the customer needs further assistance.",
	"end_prof":        "Close professionally: 'Thank you for choosing us, have a great day.'",
	"csat":            "Remember to ask for the survey/feedback at the very end.",
	GroupCXCritical:   "Avoid negative words. Remain professional even if the customer is difficult.",
	GroupCompCritical: "NEVER ask for Credit Card details or Passwords in chat.",
}

// LoadKeywords returns the dictionary for this deployment: the built-in
// default, or the contents of path when set. The file replaces the map
// wholesale, so an override must carry the critical groups too.
func LoadKeywords(path string) (map[string][]string, error) {
	if path == "" {
		return DefaultKeywords, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	var kw map[string][]string
	if err := yaml.Unmarshal(data, &kw); err != nil {
		return nil, fmt.Errorf("parse keywords file %s: %w", path, err)
	}
	if len(kw) == 0 {
		return nil, fmt.Errorf("keywords file %s is empty", path)
	}
	return kw, nil
}
