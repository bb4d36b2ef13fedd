package utils

import (
	"testing"

	"whatrack/models"
)

func TestBuildComponentsWithoutVariables(t *testing.T) {
	static := []models.TemplateComponent{
		{Type: "header", Format: "TEXT", Text: "Pedido confirmado"},
		{Type: "body", Text: "Seu pedido foi enviado."},
	}

	got := BuildComponents(static, nil)
	if len(got) != 2 {
		t.Fatalf("want template structure passed through, got %d components", len(got))
	}
	if got[0].Type != "header" || got[1].Type != "body" {
		t.Fatalf("component order changed: %+v", got)
	}
}

func TestBuildComponentsWithVariables(t *testing.T) {
	static := []models.TemplateComponent{
		{Type: "body", Text: "Olá {{1}}, seu pedido {{2}} foi enviado."},
	}
	variables := models.OrderedVariables{
		{Name: "nome", Value: "Ana"},
		{Name: "pedido", Value: "123"},
	}

	got := BuildComponents(static, variables)
	if len(got) != 1 {
		t.Fatalf("want single body component, got %d", len(got))
	}
	if got[0].Type != "body" {
		t.Fatalf("want body component, got %q", got[0].Type)
	}
	if len(got[0].Parameters) != 2 {
		t.Fatalf("want 2 parameters, got %d", len(got[0].Parameters))
	}
	if got[0].Parameters[0].Type != "text" || got[0].Parameters[0].Text != "Ana" {
		t.Fatalf("first parameter = %+v, want text Ana", got[0].Parameters[0])
	}
	if got[0].Parameters[1].Type != "text" || got[0].Parameters[1].Text != "123" {
		t.Fatalf("second parameter = %+v, want text 123", got[0].Parameters[1])
	}
}
