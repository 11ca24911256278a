package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChallengeStepCarriesArguments(t *testing.T) {
	path := writeScenarioFixture(t, `-- Setup
local scene = Scenario.new("fixture")
scene:challenge({description = "Walk 1 mile a day.", minutes = 1})
scene:contribute(3, {as = "challenger"})

return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "fixture" {
		t.Fatalf("name = %q, want fixture", scenario.Name)
	}
	if len(scenario.Steps) != 2 {
		t.Fatalf("steps = %d, want %d", len(scenario.Steps), 2)
	}

	create := scenario.Steps[0]
	if create.Kind != "challenge" {
		t.Fatalf("step kind = %q, want %q", create.Kind, "challenge")
	}
	if create.Args["description"] != "Walk 1 mile a day." {
		t.Fatalf("description = %v, want fixture description", create.Args["description"])
	}
	if create.Args["minutes"] != 1 {
		t.Fatalf("minutes = %v, want 1", create.Args["minutes"])
	}

	deposit := scenario.Steps[1]
	if deposit.Args["amount"] != 3 {
		t.Fatalf("amount = %v, want 3", deposit.Args["amount"])
	}
	if deposit.Args["as"] != "challenger" {
		t.Fatalf("as = %v, want challenger", deposit.Args["as"])
	}
}

func TestScenarioNameDefaultsToFileName(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new()
scene:challenge({description = "x", minutes = 1})
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "scenario" {
		t.Fatalf("name = %q, want scenario", scenario.Name)
	}
}

func TestChallengeRequiresDescription(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("missing")
scene:challenge({minutes = 1})
return scene
`)

	_, err := LoadScenarioFromFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "challenge description is required") {
		t.Fatalf("error = %q, want challenge description is required", err.Error())
	}
}

func TestExpectEventsReadsList(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("events")
scene:expect_events({"ChallengeCreated", "Contribution"}, {challenge = "walk"})
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	step := scenario.Steps[0]
	got := readStringSlice(step.Args, "events")
	if strings.Join(got, ",") != "ChallengeCreated,Contribution" {
		t.Fatalf("events = %v, want [ChallengeCreated Contribution]", got)
	}
	if step.Args["challenge"] != "walk" {
		t.Fatalf("challenge = %v, want walk", step.Args["challenge"])
	}
}

func TestScriptMustReturnScenario(t *testing.T) {
	path := writeScenarioFixture(t, `return 42`)

	_, err := LoadScenarioFromFile(path)
	if err == nil || !strings.Contains(err.Error(), "must return Scenario") {
		t.Fatalf("error = %v, want must return Scenario", err)
	}
}

func writeScenarioFixture(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}
