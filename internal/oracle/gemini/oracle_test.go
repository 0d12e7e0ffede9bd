package gemini

import (
	"errors"
	"strings"
	"testing"

	"github.com/zoomfind/prodex/internal/domain"
	"github.com/zoomfind/prodex/internal/domain/category"
)

var testCandidates = []category.Candidate{
	{CategoryName: "Computers", SubcategoryName: "Gaming Laptops", SubcategoryURL: "/gaming-laptops"},
	{CategoryName: "Computers", SubcategoryName: "Ultrabooks", SubcategoryURL: "/ultrabooks"},
}

func TestParseChoice_ValidObject(t *testing.T) {
	text := `{"category_name":"Computers","subcategory_name":"Gaming Laptops","subcategory_url":"/gaming-laptops"}`

	pred, err := parseChoice(text, testCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.SubcategoryName != "Gaming Laptops" || pred.SubcategoryURL != "/gaming-laptops" {
		t.Errorf("unexpected prediction: %+v", pred)
	}
}

func TestParseChoice_FencedJSON(t *testing.T) {
	text := "```json\n{\"subcategory_name\":\"Ultrabooks\",\"subcategory_url\":\"/ultrabooks\"}\n```"

	pred, err := parseChoice(text, testCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred == nil || pred.SubcategoryName != "Ultrabooks" {
		t.Fatalf("unexpected prediction: %+v", pred)
	}
}

func TestParseChoice_ListResponse(t *testing.T) {
	text := `[{"subcategory_name":"Gaming Laptops","subcategory_url":"/gaming-laptops"}]`

	pred, err := parseChoice(text, testCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred == nil || pred.SubcategoryName != "Gaming Laptops" {
		t.Fatalf("unexpected prediction: %+v", pred)
	}
}

func TestParseChoice_ModelDeclines(t *testing.T) {
	pred, err := parseChoice(`{"error":"No suitable category found."}`, testCandidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred != nil {
		t.Fatalf("expected absent prediction, got %+v", pred)
	}
}

func TestParseChoice_HallucinatedCandidate(t *testing.T) {
	text := `{"subcategory_name":"Toasters","subcategory_url":"/toasters"}`

	_, err := parseChoice(text, testCandidates)
	if !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestParseChoice_Garbage(t *testing.T) {
	if _, err := parseChoice("not json at all", testCandidates); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
}

func TestBuildPrompt_IncludesCandidatesAndQuery(t *testing.T) {
	prompt, err := buildPrompt("gaming laptop", testCandidates)
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}
	if !strings.Contains(prompt, "gaming laptop") {
		t.Error("prompt missing user query")
	}
	if !strings.Contains(prompt, "/gaming-laptops") || !strings.Contains(prompt, "/ultrabooks") {
		t.Error("prompt missing candidate URLs")
	}
}
