package scenario

type scenarioState struct {
	// challenges maps scenario names to challenge ids.
	challenges map[string]string
	// current is the challenge commands apply to when none is named.
	current string
}
