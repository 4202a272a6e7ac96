package classifier

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrPrediction is returned when inference fails.
	ErrPrediction = errors.New("prediction error")
	// ErrLookup is returned when a predicted class has no label.
	ErrLookup = errors.New("lookup error")
	// ErrSchema is returned when an artifact does not match the extractor.
	ErrSchema = errors.New("schema error")
)

// genreMap is the fixed index → label mapping the models were trained with.
var genreMap = map[int]string{
	0: "Dance",
	1: "Classical",
	2: "Rock",
}

// Genre is one entry of the label map.
type Genre struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Label returns the display label for a class index.
func Label(index int) (string, error) {
	label, ok := genreMap[index]
	if !ok {
		return "", fmt.Errorf("%w: no genre for class %d", ErrLookup, index)
	}
	return label, nil
}

// Genres lists the label map ordered by index.
func Genres() []Genre {
	out := make([]Genre, 0, len(genreMap))
	for idx, label := range genreMap {
		out = append(out, Genre{Index: idx, Label: label})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Labels returns every known label ordered by index.
func Labels() []string {
	genres := Genres()
	out := make([]string, len(genres))
	for i, g := range genres {
		out[i] = g.Label
	}
	return out
}
