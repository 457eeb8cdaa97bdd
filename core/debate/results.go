package debate

// Results is the structured summary fetched once the session is over.
type Results struct {
	Overall       string
	Consensus     string
	Agreements    []string
	Disagreements []Disagreement

	FinalPredictions []FinalPrediction
	Rationales       []Rationale
}

// FinalPrediction is a participant's closing prediction. Change is an optional
// human readable annotation such as "+12% Yes since round 1".
type FinalPrediction struct {
	SpeakerID   string
	SpeakerName string
	Predictions Predictions
	Change      string
}

// Disagreement is a topic the participants did not converge on, with each
// participant's position keyed by speaker name.
type Disagreement struct {
	Topic     string
	Positions map[string]string
}

// Rationale explains how a participant reached its final prediction.
type Rationale struct {
	SpeakerID    string
	SpeakerName  string
	Rationale    string
	KeyArguments []string
}

// HasConsensus reports whether the summary carries a consensus statement.
func (r Results) HasConsensus() bool {
	return r.Consensus != ""
}
