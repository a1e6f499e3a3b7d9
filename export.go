package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RenderGradeReport builds the human-readable grade report: verdict
// header, per-criterion breakdown in scorecard order with display names,
// coaching tips, and the full transcript.
func RenderGradeReport(room Room, msgs []Message, sc []Criterion, res GradeResult, gradedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "QA Grade Report - Room #%d\n", room.ID)
	fmt.Fprintf(&b, "Host: %s | Counterpart: %s\n", room.Host, room.Counterpart)
	fmt.Fprintf(&b, "Graded at: %s\n\n", gradedAt.Format("2006-01-02 15:04:05"))

	if res.CriticalFailure != "" {
		// A critical verdict is not a low score: it zeroes the grade
		// outright and carries different remediation (compliance or
		// escalation, not coaching).
		fmt.Fprintf(&b, "CRITICAL FAILURE: %s\n", res.CriticalFailure)
		b.WriteString("Final Score: 0%\n")
	} else {
		fmt.Fprintf(&b, "Final Score: %d%%\n", res.ScorePercent)
	}

	if len(res.Breakdown) > 0 {
		b.WriteString("\nBreakdown:\n")
		for _, c := range sc {
			verdict, ok := res.Breakdown[c.ID]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "  [%s] %s (weight %g)\n", verdict, c.Name, c.Weight)
		}
	}

	if len(res.Tips) > 0 {
		b.WriteString("\nCoaching Suggestions:\n")
		for _, tip := range res.Tips {
			fmt.Fprintf(&b, "  - %s\n", tip)
		}
	}

	b.WriteString("\nTranscript:\n")
	if len(msgs) == 0 {
		b.WriteString("  (no messages)\n")
	}
	for _, m := range msgs {
		fmt.Fprintf(&b, "  [%s] %s (%s): %s\n",
			m.Timestamp.Format("15:04:05"), m.Sender, m.Role, m.Text)
	}

	return b.String()
}

// WriteGradeReportFile writes a rendered report under the export dir.
// File names carry a UUID suffix so repeated exports of the same room on
// the same day never clobber each other.
func WriteGradeReportFile(content, outputDir string, roomID int64, gradedAt time.Time) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("room%d_%s_%s.txt",
		roomID, gradedAt.Format("20060102"), uuid.NewString()[:8])
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}
