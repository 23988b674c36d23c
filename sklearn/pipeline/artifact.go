package pipeline

import (
	"time"

	"github.com/YuminosukeSato/greenforecast/core/model"
	"github.com/YuminosukeSato/greenforecast/pkg/errors"
)

// Artifact is a persisted, fitted pipeline together with the metadata needed
// to use it: the target it predicts, the candidate that won and the exact
// feature column order it was trained on. Exactly one of Regressor and
// Classifier is set.
type Artifact struct {
	Target       string
	ModelName    string
	HorizonSteps int
	Columns      []string
	TrainedAt    time.Time

	Regressor  *Regressor
	Classifier *Classifier
}

// Validate checks that exactly one fitted pipeline is present.
func (a *Artifact) Validate() error {
	switch {
	case a.Regressor != nil && a.Classifier != nil:
		return errors.NewValidationError("artifact", "holds both a regressor and a classifier", a.ModelName)
	case a.Regressor != nil:
		if !a.Regressor.IsFitted() {
			return errors.NewNotFittedError("pipeline.Regressor", "Save")
		}
	case a.Classifier != nil:
		if !a.Classifier.IsFitted() {
			return errors.NewNotFittedError("pipeline.Classifier", "Save")
		}
	default:
		return errors.NewValidationError("artifact", "holds no pipeline", a.ModelName)
	}
	return nil
}

// SaveArtifact validates and gob-encodes a to path.
func SaveArtifact(a *Artifact, path string) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return model.SaveModel(a, path)
}

// LoadArtifact reads an artifact written by SaveArtifact.
func LoadArtifact(path string) (*Artifact, error) {
	var a Artifact
	if err := model.LoadModel(&a, path); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid artifact %s", path)
	}
	return &a, nil
}
