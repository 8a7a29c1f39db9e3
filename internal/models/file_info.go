package models

import "time"

// ArtifactKind classifies a generated artifact.
type ArtifactKind string

const (
	ArtifactPlot ArtifactKind = "plot"
	ArtifactCSV  ArtifactKind = "csv"
)

// FileInfo represents metadata about a generated artifact (plot or export).
type FileInfo struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Size      int64        `json:"size"`
	Kind      ArtifactKind `json:"kind"`
	CreatedAt time.Time    `json:"createdAt"`
}
