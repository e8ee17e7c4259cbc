package services

import "testing"

func TestParseAssistantReply_Continue(t *testing.T) {
	raw := `{"action": "continue", "message": "How many students per group?"}`

	action, message, draft := parseAssistantReply(raw)
	if action != "continue" {
		t.Errorf("action = %q, want continue", action)
	}
	if message != "How many students per group?" {
		t.Errorf("unexpected message: %q", message)
	}
	if draft != nil {
		t.Error("expected no project draft on continue")
	}
}

func TestParseAssistantReply_GenerateProject(t *testing.T) {
	raw := "```json\n" + `{
		"action": "generate_project",
		"project": {
			"title": "Market Day",
			"topic": "fractions",
			"life_skill": "budgeting",
			"group_size": 4,
			"duration_min": 45
		}
	}` + "\n```"

	action, _, draft := parseAssistantReply(raw)
	if action != "generate_project" {
		t.Fatalf("action = %q, want generate_project", action)
	}
	if draft == nil {
		t.Fatal("expected a project draft")
	}
	if draft.Title != "Market Day" || draft.Topic != "fractions" {
		t.Errorf("unexpected draft: %+v", draft)
	}
	if draft.GroupSize != 4 || draft.DurationMin != 45 {
		t.Errorf("unexpected draft numbers: %+v", draft)
	}
}

func TestParseAssistantReply_JSONBuriedInProse(t *testing.T) {
	raw := `Sure! Here is my reply: {"action": "continue", "message": "What topic?"} Hope that helps.`

	action, message, _ := parseAssistantReply(raw)
	if action != "continue" {
		t.Errorf("action = %q, want continue", action)
	}
	if message != "What topic?" {
		t.Errorf("unexpected message: %q", message)
	}
}

func TestParseAssistantReply_PlainText(t *testing.T) {
	raw := "What subject are you teaching?"

	action, message, draft := parseAssistantReply(raw)
	if action != "continue" {
		t.Errorf("action = %q, want continue", action)
	}
	if message != raw {
		t.Errorf("plain text should pass through, got %q", message)
	}
	if draft != nil {
		t.Error("expected no draft for plain text")
	}
}

func TestParseAssistantReply_GenerateWithoutProject(t *testing.T) {
	raw := `{"action": "generate_project", "message": "ready"}`

	action, _, draft := parseAssistantReply(raw)
	if action != "continue" {
		t.Errorf("generate without payload should degrade to continue, got %q", action)
	}
	if draft != nil {
		t.Error("expected no draft")
	}
}
