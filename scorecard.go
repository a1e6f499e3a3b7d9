package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const scorecardConfigKey = "scorecard"

// DefaultScorecard mirrors the deployed rubric: weights are points, the
// keyword group names reference DefaultKeywords, and criteria without a
// group are subjective (graded manually, auto-pass in automatic mode).
func DefaultScorecard() []Criterion {
	sc := []Criterion{
		{ID: "greet", Name: "Opening: Greet & Intro", Weight: 2.0, KeywordGroup: "greetings", Category: "Opening"},
		{ID: "confirm", Name: "Opening: Confirm Name/Reason", Weight: 3.0, Category: "Opening"},
		{ID: "listening", Name: "Comm: Active Listening", Weight: 5.0, Category: "Communication"},
		{ID: "clear", Name: "Comm: Clear Language", Weight: 5.0, Category: "Communication"},
		{ID: "empathy", Name: "Comm: Empathy", Weight: 5.0, KeywordGroup: "empathy", Category: "Communication"},
		{ID: "tone", Name: "Comm: Tone", Weight: 2.0, Category: "Communication"},
		{ID: "hold", Name: "Comm: Hold Etiquette", Weight: 3.0, KeywordGroup: "hold", Category: "Communication"},
		{ID: "discovery", Name: "Sales: Discovery Questions", Weight: 7.5, KeywordGroup: "discovery", Category: "Sales"},
		{ID: "product", Name: "Sales: Product Knowledge", Weight: 7.5, Category: "Sales"},
		{ID: "solution", Name: "Sales: Right Solution", Weight: 7.5, Category: "Sales"},
		{ID: "objection", Name: "Sales: Objection Handling", Weight: 7.5, Category: "Sales"},
		{ID: "warranty", Name: "Sales: Warranty/Accessories", Weight: 15.0, KeywordGroup: "warranty", Category: "Sales"},
		{ID: "next_steps", Name: "Process: Next Steps", Weight: 5.0, Category: "Process"},
		{ID: "compliance", Name: "Process: Compliance", Weight: 10.0, Category: "Process"},
		{ID: "addressed", Name: "Closing: Query Addressed", Weight: 2.0, KeywordGroup: "closing", Category: "Closing"},
		{ID: "end_prof", Name: "Closing: Professional End", Weight: 2.0, KeywordGroup: "prof_closing", Category: "Closing"},
		{ID: "csat", Name: "Closing: CSAT Statement", Weight: 5.0, KeywordGroup: "csat", Category: "Closing"},
	}
	ResolveRules(sc)
	return sc
}

// ResolveRules assigns each criterion its grading rule from its id.
// Unknown ids get the generic keyword rule when a group is set and the
// subjective auto-pass rule otherwise, so supervisor-added criteria
// behave like the legacy engine treated them.
func ResolveRules(sc []Criterion) {
	for i := range sc {
		sc[i].Rule = ruleForCriterion(sc[i])
	}
}

func ruleForCriterion(c Criterion) Rule {
	switch c.ID {
	case "greet":
		return RuleGreeting
	case "discovery":
		return RuleDiscovery
	case "empathy":
		return RuleEmpathy
	case "warranty":
		return RuleWarranty
	case "end_prof":
		return RuleProfClosing
	case "hold":
		return RuleHoldAlwaysPass
	}
	if c.KeywordGroup != "" {
		return RuleGeneric
	}
	return RuleDefault
}

// ValidateScorecard enforces what the grading engine assumes: unique
// non-empty ids and non-negative weights. Called on load and save, never
// inside the engine itself.
func ValidateScorecard(sc []Criterion) error {
	seen := make(map[string]bool, len(sc))
	for _, c := range sc {
		if c.ID == "" {
			return fmt.Errorf("criterion %q has an empty id", c.Name)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate criterion id %q", c.ID)
		}
		seen[c.ID] = true
		if c.Weight < 0 {
			return fmt.Errorf("criterion %q has negative weight %v", c.ID, c.Weight)
		}
	}
	return nil
}

// LoadScorecard reads the persisted scorecard from the config table,
// seeding it with the default on first run. Rules are resolved here so
// grading never inspects id strings.
func LoadScorecard(db *sql.DB) ([]Criterion, error) {
	raw, err := GetConfigValue(db, scorecardConfigKey)
	if err == sql.ErrNoRows {
		sc := DefaultScorecard()
		if err := SaveScorecard(db, sc); err != nil {
			return nil, err
		}
		return sc, nil
	}
	if err != nil {
		return nil, err
	}

	var sc []Criterion
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return nil, fmt.Errorf("malformed persisted scorecard: %w", err)
	}
	if err := ValidateScorecard(sc); err != nil {
		return nil, err
	}
	ResolveRules(sc)
	return sc, nil
}

// SaveScorecard validates and persists the scorecard as a JSON array in
// the config table, replacing the previous value.
func SaveScorecard(db *sql.DB, sc []Criterion) error {
	if err := ValidateScorecard(sc); err != nil {
		return err
	}
	data, err := json.Marshal(sc)
	if err != nil {
		return err
	}
	return SetConfigValue(db, scorecardConfigKey, string(data))
}
