package gemini

import (
	"fmt"
	"strings"

	"github.com/concordia-classroom/concordia/internal/application/report"
	"github.com/concordia-classroom/concordia/pkg/timeutil"
)

// noEntries stands in for an empty behavior list.
const noEntries = "Keine Einträge vorhanden."

// BuildPrompt renders the German instruction for one student.
func BuildPrompt(in report.Input) string {
	lines := make([]string, 0, len(in.Incidents))
	for _, b := range in.Incidents {
		line := fmt.Sprintf("- %s: [%s] %s (Wertung: %d)",
			timeutil.FormatGerman(timeutil.FromUnixMilli(b.Timestamp)),
			b.Category,
			b.Observation,
			int(b.Severity),
		)
		if b.Notes != "" {
			line += " Notiz: " + b.Notes
		}
		lines = append(lines, line)
	}

	behavior := noEntries
	if len(lines) > 0 {
		behavior = strings.Join(lines, "\n")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Du bist ein erfahrener pädagogischer Assistent. Analysiere die folgenden Verhaltens- und Beteiligungsdaten für den Schüler/die Schülerin %s.\n\n", in.StudentName)
	fmt.Fprintf(&b, "Gesamte Mitarbeitspunktzahl: %d\n\n", in.ParticipationScore)
	b.WriteString("Verhaltenseinträge:\n")
	b.WriteString(behavior)
	b.WriteString("\n\n")
	b.WriteString("Bitte erstelle eine prägnante, konstruktive Zusammenfassung in 3 Stichpunkten für die Lehrkraft (auf Deutsch):\n")
	b.WriteString("1. Identifiziere eine Stärke.\n")
	b.WriteString("2. Identifiziere einen Verbesserungsbereich.\n")
	b.WriteString("3. Schlage eine spezifische Strategie für den Unterricht vor, um diesen Schüler zu unterstützen.\n")
	b.WriteString("Halte den Ton professionell und ermutigend.\n")
	return b.String()
}
