package dto

import "testing"

func TestCreateSessionRequestValidation(t *testing.T) {
	valid := CreateSessionRequest{Mode: "quick"}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}

	missing := CreateSessionRequest{}
	if err := missing.Validate(); err == nil {
		t.Error("missing mode must be rejected")
	}

	badMode := CreateSessionRequest{Mode: "marathon"}
	if err := badMode.Validate(); err == nil {
		t.Error("unknown mode must be rejected")
	}

	badDifficulty := CreateSessionRequest{Mode: "custom", Difficulty: "impossible"}
	if err := badDifficulty.Validate(); err == nil {
		t.Error("unknown difficulty must be rejected")
	}

	tooMany := CreateSessionRequest{Mode: "custom", QuestionCount: 200}
	if err := tooMany.Validate(); err == nil {
		t.Error("oversized question count must be rejected")
	}
}

func TestSubmitAnswerRequestValidation(t *testing.T) {
	zero := 0
	negative := -1

	valid := SubmitAnswerRequest{QuestionIndex: &zero, OptionIndex: &zero}
	if err := valid.Validate(); err != nil {
		t.Errorf("index zero is a valid slot: %v", err)
	}

	missing := SubmitAnswerRequest{}
	if err := missing.Validate(); err == nil {
		t.Error("missing indexes must be rejected")
	}

	bad := SubmitAnswerRequest{QuestionIndex: &negative, OptionIndex: &zero}
	if err := bad.Validate(); err == nil {
		t.Error("negative question index must be rejected")
	}
}

func TestFormatValidationErrors(t *testing.T) {
	req := CreateSessionRequest{Mode: "marathon"}
	err := req.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}

	formatted := FormatValidationErrors(err)
	if len(formatted) == 0 {
		t.Fatal("expected formatted errors")
	}
	if formatted[0].Field != "Mode" {
		t.Errorf("expected Mode field, got %s", formatted[0].Field)
	}
}
