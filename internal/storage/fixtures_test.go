package storage

import "boolnet/internal/model"

func sampleSession(id, createdAt string) model.Session {
	return model.Session{
		VersionedRecord: CurrentVersion(),
		ID:              id,
		CreatedAtUTC:    createdAt,
		Components: []model.Component{
			{Name: "X", Rules: []int{1, 2}},
			{Name: "Y", Rules: []int{3}},
		},
		Definite: []model.Interaction{{Source: "X", Target: "Y", Sign: model.SignPositive}},
		Optional: []model.Interaction{{Source: "Y", Target: "X", Sign: model.SignNegative, Optional: true}},
		Experiments: []model.Experiment{{
			{Label: "0", Assignment: model.Assignment{"X": "1"}},
			{Label: "18", Assignment: model.Assignment{"X": "0", "Y": "1"}},
		}},
		TopologyCount: 2,
		Reference:     "first",
	}
}

func sampleResult(sessionID string, index int) model.TopologyResult {
	return model.TopologyResult{
		VersionedRecord: CurrentVersion(),
		SessionID:       sessionID,
		Index:           index,
		Topology:        model.Topology{{Source: "X", Target: "Y", Sign: model.SignPositive}},
		Components: []model.Component{
			{Name: "X", Rules: []int{1, 2}, Sources: []model.Source{{Name: "X", Sign: model.SignPositive}}},
			{Name: "Y", Rules: []int{3}, Sources: []model.Source{{Name: "X", Sign: model.SignPositive}}},
		},
		Consistency: model.ConsistencyMap{
			"X0": {1: model.VerdictConsistent, 2: model.VerdictInconsistent},
			"Y0": {3: model.VerdictUnknown},
		},
	}
}
