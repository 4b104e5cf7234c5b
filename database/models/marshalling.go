package models

import (
	"encoding/json"

	itchio "github.com/itchio/go-itchio"
	"github.com/pkg/errors"
)

type JSON = string

func isEmptyJSON(in JSON) bool {
	return in == "" || in == "null"
}

// Game

func UnmarshalGame(in JSON) (*itchio.Game, error) {
	if isEmptyJSON(in) {
		return nil, nil
	}
	var out itchio.Game
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &out, nil
}

func MarshalGame(in *itchio.Game, out *JSON) error {
	contents, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}
	*out = string(contents)
	return nil
}

// Upload

func UnmarshalUpload(in JSON) (*itchio.Upload, error) {
	if isEmptyJSON(in) {
		return nil, nil
	}
	var out itchio.Upload
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &out, nil
}

func MarshalUpload(in *itchio.Upload, out *JSON) error {
	contents, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}
	*out = string(contents)
	return nil
}

// Build

func UnmarshalBuild(in JSON) (*itchio.Build, error) {
	if isEmptyJSON(in) {
		return nil, nil
	}
	var out itchio.Build
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &out, nil
}

func MarshalBuild(in *itchio.Build, out *JSON) error {
	contents, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}
	*out = string(contents)
	return nil
}

// Upgrade path (ordered list of builds, patches applied in sequence)

func UnmarshalUpgradePath(in JSON) ([]*itchio.Build, error) {
	if isEmptyJSON(in) {
		return nil, nil
	}
	var out []*itchio.Build
	err := json.Unmarshal([]byte(in), &out)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return out, nil
}

func MarshalUpgradePath(in []*itchio.Build, out *JSON) error {
	contents, err := json.Marshal(in)
	if err != nil {
		return errors.WithStack(err)
	}
	*out = string(contents)
	return nil
}
