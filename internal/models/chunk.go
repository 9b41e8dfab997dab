package models

// Chunk is one free-form output chunk. Sentences lists the source sentence
// indices in ascending order; Cluster is -1 for unclustered singletons.
type Chunk struct {
	Text      string `json:"text"`
	Sentences []int  `json:"sentences"`
	Cluster   int    `json:"cluster"`
	Tokens    int    `json:"tokens"`
}

// Segment is a contiguous run of lines [Start, End) found by change-point detection.
type Segment struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Lines []string `json:"lines"`
}
