package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/VirtuLab-core-poc-v1/server/internal/lab/model"
)

func TestRenderGuidePrompt(t *testing.T) {
	req := model.GuideRequest{
		Experiment: model.Experiment{
			ID:          "bunsen-burner",
			Title:       "Bunsen Burner",
			Description: "Explore flames.",
			Kind:        model.KindHeater,
			Section:     "Junior",
			Subject:     "Integrated Science",
		},
		Question: "Why is the flame blue?",
		Reading:  model.Reading{Kind: model.KindHeater, Lit: true, AirHoleLevel: 3, TemperatureC: 412.5},
		History: []*schema.Message{
			schema.AssistantMessage("Habari!", nil),
			schema.UserMessage("hello"),
		},
	}

	got, err := RenderGuidePrompt(context.Background(), req)
	if err != nil {
		t.Fatalf("RenderGuidePrompt: %v", err)
	}
	for _, want := range []string{
		"Lab: Bunsen Burner (Integrated Science, Junior).",
		"air hole Fully (level 3)",
		"412.5°C",
		"Recent conversation:\nAssistant: Habari!\nStudent: hello",
		`Student: "Why is the flame blue?"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}

func TestRenderGuidePromptWithoutHistory(t *testing.T) {
	got, err := RenderGuidePrompt(context.Background(), model.GuideRequest{
		Experiment: model.Experiment{Title: "Thermometer"},
		Question:   "hi",
		Reading:    model.Reading{Kind: model.KindThermometer, Sample: model.SampleIce},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "Recent conversation") {
		t.Fatalf("unexpected history section:\n%s", got)
	}
}
