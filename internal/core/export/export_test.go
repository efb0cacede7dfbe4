package export

import (
	"strings"
	"testing"
	"time"

	"github.com/neilberkman/docchat/internal/core/config"
	"github.com/neilberkman/docchat/internal/core/models"
)

func TestTranscript_DefaultTemplate(t *testing.T) {
	score := 0.91
	conv := models.Conversation{ID: "7", Title: "What is X?"}
	msgs := []models.Message{
		{ID: "1", Role: models.RoleUser, Content: "What is X?"},
		{ID: "2", Role: models.RoleAssistant, Content: "X is a letter.", Sources: []models.Source{{Filename: "alphabet.pdf", SimilarityScore: &score}}},
		{ID: "tmp", Role: models.RoleUser, Content: "still sending", Provenance: models.Pending},
	}

	out, err := Transcript(config.DefaultExportTemplate, conv, msgs, time.Now())
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}

	for _, want := range []string{"# What is X?", "X is a letter.", "alphabet.pdf", "0.91"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "still sending") {
		t.Error("pending messages must not be exported")
	}
}

func TestTranscript_UntitledAndCustomTemplate(t *testing.T) {
	out, err := Transcript("{{title}}|{{message_count}}|{{#messages}}{{role}};{{/messages}}",
		models.Conversation{ID: "42"},
		[]models.Message{{Role: models.RoleUser, Content: "a"}, {Role: models.RoleAssistant, Content: "b"}},
		time.Now())
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if out != "Conversation 42|2|user;assistant;" {
		t.Errorf("got %q", out)
	}
}
