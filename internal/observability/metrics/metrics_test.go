package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tenant_id", "vasp2"),
		attribute.String("payer_identifier", "bob@vasp1.example"),
		attribute.String("mode", "rich"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "payer_identifier" {
			t.Fatalf("expected payer_identifier to be dropped")
		}
	}
}
