package speaker

import (
	"errors"
	"fmt"
	"math"
)

// DefaultConfidence is reported when no profile backs an assignment.
const DefaultConfidence = 0.5

// Profile is the running centroid of every embedding assigned to one speaker.
type Profile struct {
	Centroid Embedding
	Count    int
}

// Params bounds a clustering step.
type Params struct {
	Threshold   float64
	MaxSpeakers int
}

// Assignment is the outcome of clustering one embedding.
type Assignment struct {
	SpeakerID  int
	Confidence float64
	Created    bool
	Similarity float64
}

// State is the ordered set of speaker profiles discovered during one run.
// Speaker ids are profile positions in creation order. A State is never
// modified in place; Assign returns the next State.
type State struct {
	profiles []Profile
}

// Len reports the number of speakers discovered.
func (s State) Len() int {
	return len(s.profiles)
}

// Profiles returns a copy of the profiles in creation order.
func (s State) Profiles() []Profile {
	out := make([]Profile, len(s.profiles))
	for i, p := range s.profiles {
		out[i] = Profile{Centroid: append(Embedding(nil), p.Centroid...), Count: p.Count}
	}
	return out
}

// Confidence maps the cosine between e and the centroid of speaker id into
// [0, 1]. Unknown ids yield DefaultConfidence.
func (s State) Confidence(e Embedding, id int) float64 {
	if id < 0 || id >= len(s.profiles) {
		return DefaultConfidence
	}
	return (Cosine(e, s.profiles[id].Centroid) + 1) / 2
}

// Assign attributes a unit embedding to a speaker and returns the updated
// state. The best match above Threshold wins; otherwise a new speaker is
// created while fewer than MaxSpeakers exist, else the best match is used
// regardless of threshold. The matched centroid becomes the running mean and
// is re-normalized. A merge that cancels the centroid out leaves the profile
// unchanged. The state never holds more than MaxSpeakers profiles.
func (s State) Assign(e Embedding, p Params) (State, Assignment, error) {
	if p.MaxSpeakers < 1 {
		return s, Assignment{}, fmt.Errorf("max speakers must be at least 1, got %d", p.MaxSpeakers)
	}
	if len(e) == 0 {
		return s, Assignment{}, errors.New("embedding is empty")
	}
	for _, v := range e {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, Assignment{}, errors.New("embedding has non-finite values")
		}
	}
	if len(s.profiles) > 0 && len(s.profiles[0].Centroid) != len(e) {
		return s, Assignment{}, fmt.Errorf("embedding dimension %d does not match speaker profiles (%d)", len(e), len(s.profiles[0].Centroid))
	}

	best, bestSim := -1, math.Inf(-1)
	for i, profile := range s.profiles {
		if sim := Cosine(e, profile.Centroid); sim > bestSim {
			best, bestSim = i, sim
		}
	}

	next := State{profiles: make([]Profile, len(s.profiles), len(s.profiles)+1)}
	copy(next.profiles, s.profiles)

	if len(s.profiles) < p.MaxSpeakers && (best < 0 || bestSim <= p.Threshold) {
		centroid := append(Embedding(nil), e...)
		next.profiles = append(next.profiles, Profile{Centroid: centroid, Count: 1})
		id := len(next.profiles) - 1
		if best < 0 {
			bestSim = 0
		}
		return next, Assignment{SpeakerID: id, Confidence: next.Confidence(e, id), Created: true, Similarity: bestSim}, nil
	}

	current := s.profiles[best]
	count := float64(current.Count)
	merged := make(Embedding, len(e))
	for i := range merged {
		merged[i] = (current.Centroid[i]*count + e[i]) / (count + 1)
	}
	if merged.Norm() <= normFloor {
		return next, Assignment{SpeakerID: best, Confidence: next.Confidence(e, best), Similarity: bestSim}, nil
	}
	next.profiles[best] = Profile{Centroid: merged.Normalize(), Count: current.Count + 1}
	return next, Assignment{SpeakerID: best, Confidence: next.Confidence(e, best), Similarity: bestSim}, nil
}
