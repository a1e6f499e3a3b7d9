package main

import (
	"fmt"
	"strings"
)

// greetingWords is the bespoke greeting pattern: any of these anywhere
// in the agent text counts, in addition to the greetings keyword group.
var greetingWords = []string{"hi", "hello", "welcome", "assist"}

// AgentText builds the scoring text: agent messages only, lowercased,
// joined with single spaces in conversation order. Counterpart messages
// never contribute to keyword scoring.
func AgentText(msgs []Message) string {
	var parts []string
	for _, m := range msgs {
		if m.Role == RoleAgent {
			parts = append(parts, strings.ToLower(m.Text))
		}
	}
	return strings.Join(parts, " ")
}

// PerformGrading grades a transcript against a scorecard. It is pure and
// total: no I/O, no errors, identical output for identical input. A
// critical keyword hit short-circuits all rubric scoring and forces the
// score to zero with an empty breakdown.
func PerformGrading(msgs []Message, sc []Criterion, kw map[string][]string) GradeResult {
	result := GradeResult{Breakdown: map[string]string{}}

	text := AgentText(msgs)
	if text == "" {
		return result
	}

	if reason, tip := scanCritical(text, kw); reason != "" {
		result.CriticalFailure = reason
		if tip != "" {
			result.Tips = append(result.Tips, tip)
		}
		return result
	}

	for _, c := range sc {
		if criterionPasses(c, text, kw) {
			result.Breakdown[c.ID] = VerdictPass
		} else {
			result.Breakdown[c.ID] = VerdictFail
			result.Tips = append(result.Tips, coachingTip(c, kw))
		}
	}

	result.ScorePercent = scoreFromBreakdown(result.Breakdown, sc)
	return result
}

// scanCritical tests the reserved groups in fixed priority order:
// hostility, then compliance, then business. First hit wins; later
// groups are not scanned. Always plain substring containment.
func scanCritical(text string, kw map[string][]string) (reason, tip string) {
	if word := firstHit(text, kw[GroupCXCritical]); word != "" {
		return fmt.Sprintf("CX Critical: Found '%s'", word), CoachingTips[GroupCXCritical]
	}
	if word := firstHit(text, kw[GroupCompCritical]); word != "" {
		return fmt.Sprintf("Compliance Critical: Found '%s'", word), CoachingTips[GroupCompCritical]
	}
	if word := firstHit(text, kw[GroupBizCritical]); word != "" {
		return fmt.Sprintf("Business Critical: Found '%s'", word), ""
	}
	return "", ""
}

func criterionPasses(c Criterion, text string, kw map[string][]string) bool {
	keywords := kw[c.KeywordGroup]

	switch c.Rule {
	case RuleGreeting:
		return containsAny(text, greetingWords) || containsAny(text, keywords)
	case RuleDiscovery:
		// Two questions asked, or two distinct discovery phrases used.
		// Independent counts: either threshold alone passes.
		return strings.Count(text, "?") >= 2 || distinctHits(text, keywords) >= 2
	case RuleHoldAlwaysPass:
		// No reliable way to detect correct hold usage; defaults to
		// pass, same as every observed deployment. Supervisors fail it
		// through the manual override when warranted.
		return true
	case RuleEmpathy, RuleWarranty, RuleProfClosing, RuleGeneric:
		// An unknown group reference resolves to an empty set, which
		// counts as "no keywords to check" and passes.
		return len(keywords) == 0 || containsAny(text, keywords)
	case RuleDefault:
		// Subjective criteria (listening, tone, ...) auto-pass; the
		// override path is the human grader's hook.
		return true
	}
	return len(keywords) == 0 || containsAny(text, keywords)
}

// coachingTip returns the remediation line for a failed criterion: the
// canned tip when one exists, otherwise a generated one naming up to
// three example phrases from the criterion's keyword group.
func coachingTip(c Criterion, kw map[string][]string) string {
	if tip, ok := CoachingTips[c.ID]; ok {
		return fmt.Sprintf("%s: %s", c.Name, tip)
	}
	keywords := kw[c.KeywordGroup]
	if len(keywords) == 0 {
		return fmt.Sprintf("%s: review this area with your supervisor.", c.Name)
	}
	n := len(keywords)
	if n > 3 {
		n = 3
	}
	return fmt.Sprintf("%s: try phrases like '%s'.", c.Name, strings.Join(keywords[:n], "', '"))
}

// scoreFromBreakdown recomputes the weighted percentage from a verdict
// map. Every criterion counts toward the total weight, passed or not;
// the result is floored. A zero-weight scorecard scores 0 by convention.
func scoreFromBreakdown(breakdown map[string]string, sc []Criterion) int {
	var passed, total float64
	for _, c := range sc {
		total += c.Weight
		if breakdown[c.ID] == VerdictPass {
			passed += c.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return int(100 * passed / total)
}

// ApplyOverride replaces a single verdict in a graded result and
// recomputes the score from the edited breakdown. This is the only
// mutation path for a GradeResult after grading; the keyword scan is not
// re-run. Unknown criterion ids and critically-failed results are
// returned unchanged.
func ApplyOverride(res GradeResult, sc []Criterion, criterionID, verdict string) GradeResult {
	if res.CriticalFailure != "" {
		return res
	}
	if _, ok := res.Breakdown[criterionID]; !ok {
		return res
	}
	if verdict != VerdictPass && verdict != VerdictFail {
		return res
	}

	edited := GradeResult{
		Breakdown:       make(map[string]string, len(res.Breakdown)),
		CriticalFailure: res.CriticalFailure,
		Tips:            res.Tips,
	}
	for id, v := range res.Breakdown {
		edited.Breakdown[id] = v
	}
	edited.Breakdown[criterionID] = verdict
	edited.ScorePercent = scoreFromBreakdown(edited.Breakdown, sc)
	return edited
}

func containsAny(text string, keywords []string) bool {
	return firstHit(text, keywords) != ""
}

// firstHit returns the first phrase of keywords contained in text, in
// dictionary order, or "" when none match.
func firstHit(text string, keywords []string) string {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return k
		}
	}
	return ""
}

func distinctHits(text string, keywords []string) int {
	count := 0
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			count++
		}
	}
	return count
}
